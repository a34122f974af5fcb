package domain

import "errors"

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationTimeout     = errors.New("location acquisition timed out")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrUnauthorized        = errors.New("auth token rejected")
	ErrNoZone              = errors.New("no active zone at this position")
	ErrNoLastLocation      = errors.New("no last known location")
	ErrSecretNotFound      = errors.New("secret not found")
)

// IsLocationFailure reports whether err belongs to the location acquisition taxonomy.
func IsLocationFailure(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrLocationTimeout) ||
		errors.Is(err, ErrPositionUnavailable)
}
