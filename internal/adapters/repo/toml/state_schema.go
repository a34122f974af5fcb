package toml

import (
	"fmt"
	"math"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
)

const currentStateVersion = 1

type stateSchema struct {
	Version      int             `toml:"version"`
	LastLocation *locationSchema `toml:"last_location,omitempty"`
	Profile      *profileSchema  `toml:"profile,omitempty"`
}

func (s *stateSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentStateVersion
	}
}

func (s stateSchema) validateVersion() error {
	if s.Version > currentStateVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentStateVersion)
	}

	return nil
}

type locationSchema struct {
	Latitude   float64 `toml:"latitude"`
	Longitude  float64 `toml:"longitude"`
	Accuracy   float64 `toml:"accuracy,omitempty"`
	CapturedAt string  `toml:"captured_at,omitempty"`
}

type profileSchema struct {
	Username string `toml:"username"`
	Role     string `toml:"role"`
	Balance  string `toml:"balance,omitempty"`
}

func toLocationSchema(sample domain.LocationSample) *locationSchema {
	return &locationSchema{
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Accuracy:   sample.Accuracy,
		CapturedAt: formatTime(sample.CapturedAt),
	}
}

func fromLocationSchema(location *locationSchema) (domain.LocationSample, bool) {
	if location == nil {
		return domain.LocationSample{}, false
	}

	sample := domain.LocationSample{
		Latitude:   location.Latitude,
		Longitude:  location.Longitude,
		Accuracy:   location.Accuracy,
		CapturedAt: parseTime(location.CapturedAt),
	}
	if !sample.Finite() || math.Abs(sample.Latitude) > 90 || math.Abs(sample.Longitude) > 180 {
		return domain.LocationSample{}, false
	}

	return sample, true
}

func toProfileSchema(profile domain.UserProfile) *profileSchema {
	entry := &profileSchema{
		Username: profile.Username,
		Role:     string(profile.Role),
	}
	if profile.Balance != nil {
		entry.Balance = profile.Balance.String()
	}

	return entry
}

func fromProfileSchema(entry *profileSchema) domain.UserProfile {
	profile := domain.UserProfile{
		Username: entry.Username,
		Role:     domain.ParseRole(entry.Role),
	}
	if entry.Balance != "" {
		if balance, err := domain.ParseAccountBalance(entry.Balance); err == nil {
			profile.Balance = &balance
		}
	}

	return profile
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
