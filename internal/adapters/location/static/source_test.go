package static

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestNewSourceRejectsInvalidCoordinates(t *testing.T) {
	for _, coords := range [][2]float64{{math.NaN(), 0}, {0, math.Inf(1)}, {91, 0}, {0, -181}} {
		_, err := NewSource(coords[0], coords[1], nil)
		require.ErrorIs(t, err, domain.ErrInvalidCoordinates)
	}
}

func TestStaticSourceServesFixedPosition(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 30, 15, 0, time.UTC)
	src, err := NewSource(37.7749, -122.4194, fixedClock{at: at})
	require.NoError(t, err)

	got, err := src.GetOneShot(context.Background(), domain.LocationOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.LocationSample{Latitude: 37.7749, Longitude: -122.4194, CapturedAt: at}, got)

	var watched []domain.LocationSample
	handle, err := src.StartWatch(domain.LocationOptions{}, func(s domain.LocationSample) { watched = append(watched, s) }, nil)
	require.NoError(t, err)
	require.NoError(t, handle.Stop())
	require.NoError(t, handle.Stop())
	assert.Equal(t, []domain.LocationSample{got}, watched)

	state, err := src.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, state)
}

func TestStaticSourceHonoursCancellation(t *testing.T) {
	src, err := NewSource(0, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.GetOneShot(ctx, domain.LocationOptions{})
	require.ErrorIs(t, err, context.Canceled)
}
