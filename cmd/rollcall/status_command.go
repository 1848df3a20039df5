package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rollcall/internal/api"
	"rollcall/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *daemonctl.Client) error {
				status, err := client.Status(reqCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderDaemonStatus(status, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func renderDaemonStatus(status *api.DaemonStatus, colorize bool) []string {
	lines := renderSectionHeader("Rollcall Daemon", colorize)

	runningKind := statusError
	if status.Running {
		runningKind = statusOK
	}
	lines = append(lines, renderStatusLine("Running", runningKind, fmt.Sprintf("pid %d", status.PID), colorize))

	authKind := statusWarn
	authMsg := "log in to mark attendance"
	if status.Authenticated {
		authKind = statusOK
		authMsg = ""
		if status.TokenExpired {
			authMsg = "token expired; refreshes on next request"
		}
	}
	lines = append(lines, renderStatusLine("Authenticated", authKind, authMsg, colorize))

	cameraKind := statusWarn
	cameraMsg := status.CameraDevice + " not detected"
	if status.CameraPresent {
		cameraKind = statusOK
		cameraMsg = status.CameraDevice
	}
	lines = append(lines, renderStatusLine("Camera", cameraKind, cameraMsg, colorize))

	if run := status.ActiveRun; run != nil {
		msg := stateLabel(run.State)
		if run.State == "scanning" {
			msg = fmt.Sprintf("%s (%d/%d)", msg, run.Attempts, run.MaxAttempts)
		}
		if strings.TrimSpace(run.Status) != "" {
			msg += ": " + run.Status
		}
		lines = append(lines, renderStatusLine("Capture", stateKind(run.State), msg, colorize))
	} else {
		lines = append(lines, renderStatusLine("Capture", statusInfo, "no run since startup", colorize))
	}

	if len(status.RunCounts) > 0 {
		states := make([]string, 0, len(status.RunCounts))
		for state := range status.RunCounts {
			states = append(states, state)
		}
		sort.Strings(states)
		parts := make([]string, 0, len(states))
		for _, state := range states {
			parts = append(parts, fmt.Sprintf("%s %d", stateLabel(state), status.RunCounts[state]))
		}
		lines = append(lines, renderStatusLine("Journal", statusInfo, strings.Join(parts, ", "), colorize))
	}

	lines = append(lines, renderStatusLine("Database", statusInfo, status.JournalDBPath, colorize))
	return lines
}
