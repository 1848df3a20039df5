package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"rollcall/internal/config"
	"rollcall/internal/daemonctl"
	"rollcall/internal/lms"
)

type commandContext struct {
	addrFlag   *string
	tokenFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		tokenFlag:  tokenFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) daemonAddr() string {
	if c.addrFlag != nil && strings.TrimSpace(*c.addrFlag) != "" {
		return strings.TrimSpace(*c.addrFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil && strings.TrimSpace(cfg.Paths.APIBind) != "" {
		return cfg.Paths.APIBind
	}
	return "127.0.0.1:7610"
}

func (c *commandContext) apiToken() string {
	if c.tokenFlag != nil && strings.TrimSpace(*c.tokenFlag) != "" {
		return strings.TrimSpace(*c.tokenFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Paths.APIToken
	}
	return ""
}

// withClient runs fn with a daemon control client and a signal-aware context.
func (c *commandContext) withClient(fn func(context.Context, *daemonctl.Client) error) error {
	client, err := daemonctl.New(c.daemonAddr(), c.apiToken())
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, client)
}

// lmsClient builds a direct LMS client sharing the daemon's credential file,
// for commands that talk to the backend without going through the daemon.
func (c *commandContext) lmsClient() (*lms.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	credsPath := filepath.Join(cfg.Paths.DataDir, "credentials.json")
	return lms.NewClient(cfg.Backend.BaseURL, lms.NewFileStore(credsPath),
		lms.WithTimeout(cfg.BackendTimeout()),
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
