package cmd

import (
	"fmt"

	statusadapter "github.com/bnema/zonecharge/internal/adapters/render/status"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/spf13/cobra"
)

type whoamiOutput struct {
	Authenticated  bool    `json:"authenticated"`
	Username       string  `json:"username,omitempty"`
	Role           string  `json:"role"`
	PollingAllowed bool    `json:"polling_allowed"`
	Balance        *string `json:"balance,omitempty"`
}

func newWhoamiCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := app.session.Restore(cmd.Context())
			if err != nil {
				return fmt.Errorf("restore session: %w", err)
			}
			snap := app.store.Snapshot()

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), newWhoamiOutput(state, snap.BalanceKnown, snap.Balance))
			}

			rendered := app.dashboardRenderer(statusadapter.Dashboard{
				Session: state,
				Balance: snap,
			}, statusadapter.RenderOptions{Now: app.now(), StaleAfter: dashboardStaleAfter})

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func newWhoamiOutput(state domain.SessionState, balanceKnown bool, balance domain.AccountBalance) whoamiOutput {
	out := whoamiOutput{
		Authenticated:  state.IsAuthenticated,
		Username:       state.Username,
		Role:           string(state.Role),
		PollingAllowed: state.PollingAllowed(),
	}
	if balanceKnown {
		value := balance.String()
		out.Balance = &value
	}

	return out
}
