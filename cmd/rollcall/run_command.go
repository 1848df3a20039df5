package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"rollcall/internal/camera"
	"rollcall/internal/capture"
	"rollcall/internal/logging"
	"rollcall/internal/recognition"
)

// newRunCommand runs a capture in-process, without the daemon. Useful for
// trying out a camera and recognition setup before installing rollcalld.
func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <session-id>",
		Short: "Run a capture in-process without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || sessionID <= 0 {
				return fmt.Errorf("invalid session id %q", args[0])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			lmsClient, err := ctx.lmsClient()
			if err != nil {
				return err
			}
			recognizer, err := recognition.NewClient(cfg.Recognition.BaseURL,
				recognition.WithTimeout(cfg.RecognitionTimeout()),
			)
			if err != nil {
				return err
			}
			source, err := camera.NewV4L2Source(
				cfg.Camera.Device,
				cfg.Camera.Width,
				cfg.Camera.Height,
				cfg.Camera.FFmpegBinary,
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			finished := make(chan capture.Outcome, 1)
			controller, err := capture.New(source, recognizer, lmsClient, capture.Options{
				SessionID:     sessionID,
				Threshold:     cfg.Recognition.Threshold,
				PollInterval:  cfg.PollInterval(),
				MaxAttempts:   cfg.Capture.MaxAttempts,
				SuccessLinger: cfg.SuccessLinger(),
			}, capture.Callbacks{
				OnStatus: func(status string) {
					fmt.Fprintln(out, status)
				},
				OnSuccess: func(success capture.Success) {
					fmt.Fprintf(out, "Attendance marked for %s at %s\n", success.User.Username, success.JoinedTime)
				},
				OnFinish: func(outcome capture.Outcome) {
					finished <- outcome
				},
			}, logging.NewNop())
			if err != nil {
				return err
			}
			defer controller.Close()

			runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := controller.StartCamera(runCtx); err != nil {
				return err
			}
			if err := controller.Start(runCtx); err != nil {
				return err
			}

			select {
			case outcome := <-finished:
				if outcome.State != capture.StateSucceeded && outcome.State != capture.StateStopped {
					return fmt.Errorf("capture run ended in %s", stateLabel(outcome.State.String()))
				}
				return nil
			case <-runCtx.Done():
				controller.Stop()
				return nil
			}
		},
	}
}
