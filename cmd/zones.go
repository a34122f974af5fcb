package cmd

import (
	"fmt"

	statusadapter "github.com/bnema/zonecharge/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

func newZonesCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List priced zones and their rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := restoreSession(cmd, app); err != nil {
				return err
			}

			logics, err := app.zones.ActiveChargingLogics(cmd.Context())
			if err != nil {
				return apiFailure(cmd, app, "list zones", err)
			}

			if asJSON {
				out := make([]zoneOutput, 0, len(logics))
				for _, logic := range logics {
					out = append(out, toZoneOutput(logic))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), statusadapter.RenderZones(logics))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}
