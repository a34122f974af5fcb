package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/spf13/cobra"
)

const passwordEnv = "ZONECHARGE_PASSWORD"

func newLoginCmd(app *app) *cobra.Command {
	var (
		username      string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the billing service",
		Long:  "Exchange a username and password for an API token. The token is kept in the configured secret store and reused by later commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				secret, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = secret
			}
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if password == "" {
				return fmt.Errorf("password required: pass --password-stdin or set %s", passwordEnv)
			}

			var state domain.SessionState
			err := runRequest(cmd, app, "Logging in...", func(ctx context.Context) error {
				var err error
				state, err = app.session.Login(ctx, domain.Credentials{Username: username, Password: password})
				return err
			})
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					return fmt.Errorf("login: invalid username or password: %w", err)
				}
				return fmt.Errorf("login: %w", err)
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "Logged in as %s (%s).\n", state.Username, state.Role); err != nil {
				return err
			}
			if snap := app.store.Snapshot(); snap.BalanceKnown {
				if _, err := fmt.Fprintf(out, "Balance: %s\n", snap.Balance); err != nil {
					return err
				}
			}
			if !state.PollingAllowed() {
				_, err = fmt.Fprintln(out, "Zone polling runs for user accounts only.")
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	_ = cmd.MarkFlagRequired("username")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return err
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("read password from stdin: empty input")
	}

	return password, nil
}
