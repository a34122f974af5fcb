package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	statusadapter "github.com/bnema/zonecharge/internal/adapters/render/status"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/spf13/cobra"
)

const dashboardStaleAfter = 30 * time.Second

var errNotLoggedIn = fmt.Errorf("%w: run `zc login` first", domain.ErrNotAuthenticated)

// restoreSession brings the saved session back and fails when nobody is
// logged in.
func restoreSession(cmd *cobra.Command, app *app) (domain.SessionState, error) {
	state, err := app.session.Restore(cmd.Context())
	if err != nil {
		return state, fmt.Errorf("restore session: %w", err)
	}
	if !state.IsAuthenticated {
		return state, errNotLoggedIn
	}

	return state, nil
}

// runRequest runs one billing request behind a spinner on stderr.
func runRequest(cmd *cobra.Command, app *app, label string, request func(context.Context) error) error {
	elapsed, err := statusadapter.RunRequest(cmd.Context(), cmd.ErrOrStderr(), statusadapter.RequestOptions{
		Label: label,
		Now:   app.now,
	}, request)
	app.logger.Debug("api: request finished", "label", label, "elapsed", elapsed, "error", err)

	return err
}

// apiFailure wraps a billing error for action. A rejected token ends the
// session so the next command asks for a new login.
func apiFailure(cmd *cobra.Command, app *app, action string, err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		app.session.Expire(cmd.Context())
		return fmt.Errorf("%s: session expired, run `zc login` again: %w", action, err)
	}

	return fmt.Errorf("%s: %w", action, err)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

type zoneOutput struct {
	ID         int64  `json:"id"`
	LocationID int64  `json:"location_id,omitempty"`
	Location   string `json:"location"`
	Amount     string `json:"amount"`
	RateUnit   string `json:"rate_unit"`
	Active     bool   `json:"active"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
}

func toZoneOutput(logic domain.ChargingLogic) zoneOutput {
	return zoneOutput{
		ID:         logic.ID,
		LocationID: logic.LocationID,
		Location:   logic.LocationName,
		Amount:     logic.Amount.StringFixed(2),
		RateUnit:   string(logic.RateUnit),
		Active:     logic.Active,
		StartTime:  logic.StartTime,
		EndTime:    logic.EndTime,
	}
}
