package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
)

// PermissionRecovery lets the user re-request location access after the
// coordinator ended up in the denied state.
type PermissionRecovery struct {
	coordinator *Coordinator
	checker     ports.PermissionChecker
	logger      *slog.Logger
}

// NewPermissionRecovery wires recovery to coordinator. The checker is taken
// from the location source when it can report permission without prompting.
func NewPermissionRecovery(coordinator *Coordinator, source ports.LocationSource, logger *slog.Logger) *PermissionRecovery {
	if logger == nil {
		logger = slog.Default()
	}
	checker, _ := source.(ports.PermissionChecker)

	return &PermissionRecovery{
		coordinator: coordinator,
		checker:     checker,
		logger:      logger,
	}
}

// Available reports whether a retry would be accepted right now.
func (r *PermissionRecovery) Available() bool {
	return r.coordinator.Status().State == StatePermissionDenied
}

// Retry asks for location again. A permanently denied permission is reported
// without prompting; otherwise the one-shot acquisition runs to completion.
func (r *PermissionRecovery) Retry(ctx context.Context) error {
	if !r.Available() {
		return ErrRetryNotApplicable
	}

	if r.checker != nil {
		state, err := r.checker.Permission(ctx)
		if err != nil {
			r.logger.Debug("permission: query failed, prompting anyway", "error", err)
		} else if state == domain.PermissionDenied {
			return fmt.Errorf("%w: enable location access for this device and retry", domain.ErrPermissionDenied)
		}
	}

	if err := r.coordinator.retryAcquisition(ctx); err != nil {
		return fmt.Errorf("retry location: %w", err)
	}

	r.logger.Info("permission: location access recovered")
	return nil
}
