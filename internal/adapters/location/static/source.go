// Package static serves a fixed position, for kiosks and fixed chargers.
package static

import (
	"context"
	"fmt"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
)

var (
	_ ports.LocationSource    = (*Source)(nil)
	_ ports.PermissionChecker = (*Source)(nil)
)

type Source struct {
	latitude  float64
	longitude float64
	clock     ports.Clock
}

func NewSource(latitude, longitude float64, clock ports.Clock) (*Source, error) {
	sample := domain.LocationSample{Latitude: latitude, Longitude: longitude}
	if !sample.Finite() || latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("%w: static position (%v, %v)", domain.ErrInvalidCoordinates, latitude, longitude)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Source{latitude: latitude, longitude: longitude, clock: clock}, nil
}

func (s *Source) Permission(context.Context) (domain.PermissionState, error) {
	return domain.PermissionGranted, nil
}

func (s *Source) GetOneShot(ctx context.Context, _ domain.LocationOptions) (domain.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocationSample{}, err
	}
	return s.sample(), nil
}

// StartWatch delivers the position once. It never changes, so the watch never
// reports a timeout.
func (s *Source) StartWatch(_ domain.LocationOptions, onSample func(domain.LocationSample), _ func(error)) (ports.WatchHandle, error) {
	onSample(s.sample())
	return handle{}, nil
}

func (s *Source) sample() domain.LocationSample {
	return domain.LocationSample{
		Latitude:   s.latitude,
		Longitude:  s.longitude,
		CapturedAt: s.clock.Now().UTC(),
	}
}

type handle struct{}

func (handle) Stop() error {
	return nil
}
