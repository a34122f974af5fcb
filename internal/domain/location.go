package domain

import (
	"math"
	"time"
)

type LocationSample struct {
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	CapturedAt time.Time
}

// LocationOptions tunes a location acquisition. Zero values mean "source default".
type LocationOptions struct {
	HighAccuracy bool
	MaxSampleAge time.Duration
	Timeout      time.Duration
}

func (s LocationSample) IsZero() bool {
	return s.CapturedAt.IsZero() && s.Latitude == 0 && s.Longitude == 0
}

func (s LocationSample) Finite() bool {
	return isFinite(s.Latitude) && isFinite(s.Longitude)
}

// Age reports how old the sample is at now. Samples without a capture time are
// treated as infinitely old.
func (s LocationSample) Age(now time.Time) time.Duration {
	if s.CapturedAt.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return now.Sub(s.CapturedAt)
}

func (s LocationSample) FreshEnough(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return s.Age(now) <= maxAge
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
