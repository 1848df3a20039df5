package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBackend() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url must be set")
	}
	if c.Backend.RequestTimeout < 0 {
		return errors.New("backend.request_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if strings.TrimSpace(c.Recognition.BaseURL) == "" {
		return errors.New("recognition.base_url must be set")
	}
	if c.Recognition.Threshold <= 0 || c.Recognition.Threshold >= 1 {
		return errors.New("recognition.threshold must be between 0 and 1 exclusive")
	}
	if c.Recognition.RequestTimeout < 0 {
		return errors.New("recognition.request_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.PollInterval <= 0 {
		return errors.New("capture.poll_interval must be positive")
	}
	if c.Capture.MaxAttempts <= 0 {
		return errors.New("capture.max_attempts must be positive")
	}
	if c.Capture.SuccessLinger < 0 {
		return errors.New("capture.success_linger must not be negative")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if strings.TrimSpace(c.Camera.Device) == "" {
		return errors.New("camera.device must be set")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return errors.New("camera.width and camera.height must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
