package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rollcall/internal/api"
	"rollcall/internal/daemonctl"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var sessionID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled capture runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *daemonctl.Client) error {
				runs, err := client.History(reqCtx, limit, sessionID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No capture runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(runs))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().Int64Var(&sessionID, "session", 0, "Only show runs for this class session")
	return cmd
}

func renderHistoryTable(runs []api.HistoryEntry) string {
	tw := listTable(table.Row{"Session", "State", "User", "Confidence", "Attempts", "Ended"}, 1, 3, 4, 5)
	for _, run := range runs {
		var user any = "-"
		if run.UserID != 0 {
			user = run.UserID
		}
		var confidence any = "-"
		if run.Confidence > 0 {
			confidence = fmt.Sprintf("%.1f%%", run.Confidence)
		}
		ended := "-"
		if !run.EndedAt.IsZero() {
			ended = run.EndedAt.Local().Format(time.DateTime)
		}
		tw.AppendRow(table.Row{run.SessionID, stateLabel(run.State), user, confidence, run.Attempts, ended})
	}
	return tw.Render()
}
