package ports

import (
	"context"

	"github.com/bnema/zonecharge/internal/domain"
)

// LocationSource wraps a platform position provider. Failures are reported as
// domain.ErrPermissionDenied, domain.ErrLocationTimeout or
// domain.ErrPositionUnavailable. Sources never retry on their own.
//
// opts.Timeout bounds GetOneShot. A watch reports domain.ErrLocationTimeout
// through onError each time opts.Timeout passes without an accepted sample and
// keeps running.
type LocationSource interface {
	StartWatch(opts domain.LocationOptions, onSample func(domain.LocationSample), onError func(error)) (WatchHandle, error)
	GetOneShot(ctx context.Context, opts domain.LocationOptions) (domain.LocationSample, error)
}

// WatchHandle releases a running watch. Stop is safe to call more than once.
type WatchHandle interface {
	Stop() error
}

// PermissionChecker is implemented by sources that can report their permission
// state without prompting the user.
type PermissionChecker interface {
	Permission(ctx context.Context) (domain.PermissionState, error)
}
