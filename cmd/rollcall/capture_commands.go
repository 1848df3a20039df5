package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/daemonctl"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Control attendance capture runs",
	}
	cmd.AddCommand(newCaptureStartCommand(ctx))
	cmd.AddCommand(newCaptureStopCommand(ctx))
	return cmd
}

func newCaptureStartCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start a capture run for a class session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || sessionID <= 0 {
				return fmt.Errorf("invalid session id %q", args[0])
			}

			return ctx.withClient(func(reqCtx context.Context, client *daemonctl.Client) error {
				run, err := client.StartCapture(reqCtx, sessionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Capture run %s started for session %d\n", run.RunID, run.SessionID)
				if !wait {
					return nil
				}
				return watchRun(reqCtx, cmd, client)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll the daemon until the run finishes")
	return cmd
}

// watchRun polls daemon status until the active run reaches a terminal
// state, echoing progress lines as they change.
func watchRun(ctx context.Context, cmd *cobra.Command, client *daemonctl.Client) error {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastLine string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		run := status.ActiveRun
		if run == nil {
			return nil
		}

		if line := strings.TrimSpace(run.Status); line != "" && line != lastLine {
			fmt.Fprintln(out, line)
			lastLine = line
		}

		switch run.State {
		case "scanning", "camera_ready", "idle":
			continue
		}

		fmt.Fprintf(out, "Run finished: %s after %d attempts\n", stateLabel(run.State), run.Attempts)
		if run.State != "succeeded" && run.State != "stopped" {
			return fmt.Errorf("capture run ended in %s", stateLabel(run.State))
		}
		return nil
	}
}

func newCaptureStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active capture run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *daemonctl.Client) error {
				stopped, err := client.StopCapture(reqCtx)
				if err != nil {
					return err
				}
				if stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Capture run stopped")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No capture run is active")
				}
				return nil
			})
		},
	}
}
