package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rollcall/internal/lms"
)

func newClassesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List classes from the LMS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.lmsClient()
			if err != nil {
				return err
			}
			reqCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			classes, err := client.ListClasses(reqCtx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(classes) == 0 {
				fmt.Fprintln(out, "No classes found")
				return nil
			}
			fmt.Fprintln(out, renderClassesTable(classes))
			return nil
		},
	}
}

func renderClassesTable(classes []lms.Class) string {
	tw := listTable(table.Row{"ID", "Code", "Name", "Lecturer"}, 1)
	for _, class := range classes {
		tw.AppendRow(table.Row{class.ID, class.Code, class.Name, class.Lecturer})
	}
	return tw.Render()
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <class-id>",
		Short: "List attendance sessions for a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || classID <= 0 {
				return fmt.Errorf("invalid class id %q", args[0])
			}

			client, err := ctx.lmsClient()
			if err != nil {
				return err
			}
			reqCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sessions, err := client.ListSessions(reqCtx, classID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found")
				return nil
			}
			fmt.Fprintln(out, renderSessionsTable(sessions))
			return nil
		},
	}
}

func renderSessionsTable(sessions []lms.ClassSession) string {
	tw := listTable(table.Row{"ID", "Title", "Start", "End"}, 1)
	for _, session := range sessions {
		tw.AppendRow(table.Row{session.ID, session.Title, session.StartTime, session.EndTime})
	}
	return tw.Render()
}
