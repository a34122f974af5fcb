// Package location holds the pieces shared by the location sources: the JSON
// fix payload written by platform location daemons and the freshness and
// accuracy filter applied to every sample.
package location

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
)

// Fix is the wire form of one position report:
//
//	{"latitude": 37.7749, "longitude": -122.4194, "accuracy": 12.5, "timestamp": "2026-03-01T08:30:15Z"}
//
// timestamp may also be unix seconds.
type Fix struct {
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Accuracy  float64         `json:"accuracy"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// DecodeFix parses data into a sample. Malformed or out-of-range payloads wrap
// domain.ErrPositionUnavailable.
func DecodeFix(data []byte) (domain.LocationSample, error) {
	var fix Fix
	if err := json.Unmarshal(data, &fix); err != nil {
		return domain.LocationSample{}, fmt.Errorf("%w: decode fix: %v", domain.ErrPositionUnavailable, err)
	}
	if err := validateFix(fix); err != nil {
		return domain.LocationSample{}, fmt.Errorf("%w: %v", domain.ErrPositionUnavailable, err)
	}

	capturedAt, err := parseTimestamp(fix.Timestamp)
	if err != nil {
		return domain.LocationSample{}, fmt.Errorf("%w: %v", domain.ErrPositionUnavailable, err)
	}

	return domain.LocationSample{
		Latitude:   *fix.Latitude,
		Longitude:  *fix.Longitude,
		Accuracy:   fix.Accuracy,
		CapturedAt: capturedAt,
	}, nil
}

// EncodeFix is the inverse of DecodeFix; timestamps are written as RFC 3339.
func EncodeFix(sample domain.LocationSample) ([]byte, error) {
	lat, lon := sample.Latitude, sample.Longitude
	ts, err := json.Marshal(sample.CapturedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	return json.Marshal(Fix{Latitude: &lat, Longitude: &lon, Accuracy: sample.Accuracy, Timestamp: ts})
}

func validateFix(fix Fix) error {
	if fix.Latitude == nil {
		return fmt.Errorf("latitude: required")
	}
	if fix.Longitude == nil {
		return fmt.Errorf("longitude: required")
	}
	if lat := *fix.Latitude; math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if lon := *fix.Longitude; math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if fix.Accuracy < 0 {
		return fmt.Errorf("accuracy: must not be negative")
	}
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("timestamp: required")
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return time.Time{}, fmt.Errorf("timestamp: %v", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp: %v", err)
		}
		return ts.UTC(), nil
	}

	seconds, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || seconds <= 0 || math.IsInf(seconds, 0) {
		return time.Time{}, fmt.Errorf("timestamp: must be RFC 3339 or positive unix seconds")
	}
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

// Filter rejects samples that do not satisfy the requested options.
type Filter struct {
	// AccuracyThreshold is the worst accuracy, in metres, accepted when
	// HighAccuracy is requested. Zero disables the check.
	AccuracyThreshold float64
}

func (f Filter) Check(sample domain.LocationSample, opts domain.LocationOptions, now time.Time) error {
	if !sample.FreshEnough(now, opts.MaxSampleAge) {
		return fmt.Errorf("%w: fix is %s old, limit %s", domain.ErrPositionUnavailable,
			sample.Age(now).Truncate(time.Millisecond), opts.MaxSampleAge)
	}
	if opts.HighAccuracy && f.AccuracyThreshold > 0 && sample.Accuracy > f.AccuracyThreshold {
		return fmt.Errorf("%w: accuracy %.1fm exceeds %.1fm", domain.ErrPositionUnavailable,
			sample.Accuracy, f.AccuracyThreshold)
	}
	return nil
}
