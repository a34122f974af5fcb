package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/spf13/cobra"
)

func newBalanceCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Fetch the account balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := restoreSession(cmd, app); err != nil {
				return err
			}

			var balance domain.AccountBalance
			err := runRequest(cmd, app, "Fetching balance...", func(ctx context.Context) error {
				var err error
				balance, err = app.client.FetchBalance(ctx)
				return err
			})
			if err != nil {
				return apiFailure(cmd, app, "fetch balance", err)
			}
			app.store.ApplyBalance(balance)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Balance string `json:"balance"`
				}{Balance: balance.String()})
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", balance)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}
