package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"rollcall/internal/config"
	"rollcall/internal/daemon"
	"rollcall/internal/journal"
	"rollcall/internal/lms"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
)

// buildDaemon wires the daemon's dependencies from configuration. The LMS
// client persists its credential pair under the data directory so a restart
// does not force a fresh login.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := journal.Open(cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	credsPath := filepath.Join(cfg.Paths.DataDir, "credentials.json")
	lmsClient, err := lms.NewClient(cfg.Backend.BaseURL, lms.NewFileStore(credsPath),
		lms.WithLogger(logger),
		lms.WithTimeout(cfg.BackendTimeout()),
		lms.WithSessionExpiredHook(func() {
			logger.Warn("session expired, operator must log in again",
				logging.String(logging.FieldComponent, "lms"))
		}),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("new lms client: %w", err)
	}

	recognizer, err := recognition.NewClient(cfg.Recognition.BaseURL,
		recognition.WithTimeout(cfg.RecognitionTimeout()),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("new recognition client: %w", err)
	}

	d, err := daemon.New(cfg, store, lmsClient, recognizer, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}
