package config

const (
	defaultDataDir              = "~/.local/share/rollcall"
	defaultLogDir               = "~/.local/share/rollcall/logs"
	defaultAPIBind              = "127.0.0.1:7610"
	defaultBackendBaseURL       = "http://localhost:8000/api"
	defaultBackendTimeout       = 15
	defaultRecognitionBaseURL   = "http://localhost:5000/api"
	defaultRecognitionThreshold = 0.30
	defaultRecognitionTimeout   = 10
	defaultPollIntervalSeconds  = 2
	defaultMaxAttempts          = 20
	defaultSuccessLingerSeconds = 3
	defaultCameraDevice         = "/dev/video0"
	defaultCameraWidth          = 1280
	defaultCameraHeight         = 720
	defaultFFmpegBinary         = "ffmpeg"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Backend: Backend{
			BaseURL:        defaultBackendBaseURL,
			RequestTimeout: defaultBackendTimeout,
		},
		Recognition: Recognition{
			BaseURL:        defaultRecognitionBaseURL,
			Threshold:      defaultRecognitionThreshold,
			RequestTimeout: defaultRecognitionTimeout,
		},
		Capture: Capture{
			PollInterval:  defaultPollIntervalSeconds,
			MaxAttempts:   defaultMaxAttempts,
			SuccessLinger: defaultSuccessLingerSeconds,
		},
		Camera: Camera{
			Device:       defaultCameraDevice,
			Width:        defaultCameraWidth,
			Height:       defaultCameraHeight,
			FFmpegBinary: defaultFFmpegBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
