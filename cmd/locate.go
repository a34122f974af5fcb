package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	statusadapter "github.com/bnema/zonecharge/internal/adapters/render/status"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/spf13/cobra"
)

type locateOutput struct {
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Accuracy   float64     `json:"accuracy"`
	CapturedAt time.Time   `json:"captured_at"`
	Zone       *zoneOutput `json:"zone"`
}

func newLocateCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Take one location fix and show the zone it falls in",
		Long:  "Acquire a single location fix and ask the billing service which zone applies there. Nothing is charged.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := restoreSession(cmd, app); err != nil {
				return err
			}

			source, err := app.newLocationSource()
			if err != nil {
				return fmt.Errorf("location source: %w", err)
			}
			defer closeSource(source, app.logger)

			acquire := app.cfg.CoordinatorConfig().AcquireOptions
			ctx, cancel := context.WithTimeout(cmd.Context(), app.cfg.Location.Timeout)
			defer cancel()

			sample, err := source.GetOneShot(ctx, acquire)
			if err != nil {
				return fmt.Errorf("locate: %w", err)
			}
			if err := app.deviceRepo.SaveLastLocation(cmd.Context(), sample); err != nil {
				app.logger.Warn("locate: persist last location failed", "error", err)
			}

			req, err := domain.NewChargeEvaluationRequest(sample, app.now())
			if err != nil {
				return fmt.Errorf("locate: %w", err)
			}

			var zone *domain.ChargingLogic
			logic, err := app.zones.LookupZone(cmd.Context(), req)
			switch {
			case err == nil:
				zone = &logic
			case errors.Is(err, domain.ErrNoZone):
			default:
				return apiFailure(cmd, app, "lookup zone", err)
			}

			if asJSON {
				out := locateOutput{
					Latitude:   sample.Latitude,
					Longitude:  sample.Longitude,
					Accuracy:   sample.Accuracy,
					CapturedAt: sample.CapturedAt,
				}
				if zone != nil {
					z := toZoneOutput(*zone)
					out.Zone = &z
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(w, "position: %s, %s\n", req.Latitude, req.Longitude); err != nil {
				return err
			}
			if zone == nil {
				_, err = fmt.Fprintln(w, "No active zone at this position.")
				return err
			}
			_, err = fmt.Fprintln(w, statusadapter.RenderZoneMatch(*zone))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}
