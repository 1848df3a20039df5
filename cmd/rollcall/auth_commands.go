package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rollcall/internal/daemonctl"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate the daemon against the LMS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			if strings.TrimSpace(email) == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Email: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if strings.TrimSpace(email) == "" || password == "" {
				return errors.New("email and password are required")
			}

			return ctx.withClient(func(reqCtx context.Context, client *daemonctl.Client) error {
				user, err := client.Login(reqCtx, email, password, remember)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "LMS account email")
	cmd.Flags().StringVar(&password, "password", "", "LMS account password")
	cmd.Flags().BoolVar(&remember, "remember", false, "Request a long-lived session")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the daemon's stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *daemonctl.Client) error {
				if err := client.Logout(reqCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}
