package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/zonecharge/internal/adapters/location"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 8, 30, 15, 0, time.UTC)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newTestSource(t *testing.T, threshold float64) (*Source, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fix.json")
	src, err := NewSource(Config{Path: path, AccuracyThreshold: threshold}, fixedClock{at: now}, nil)
	require.NoError(t, err)

	return src, path
}

func writeFix(t *testing.T, path string, sample domain.LocationSample) {
	t.Helper()

	data, err := location.EncodeFix(sample)
	require.NoError(t, err)

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func sampleAt(lat, lon float64, age time.Duration) domain.LocationSample {
	return domain.LocationSample{Latitude: lat, Longitude: lon, Accuracy: 5, CapturedAt: now.Add(-age)}
}

func TestNewSourceRequiresPath(t *testing.T) {
	_, err := NewSource(Config{Path: "  "}, nil, nil)
	require.Error(t, err)
}

func TestGetOneShotReadsCurrentFix(t *testing.T) {
	src, path := newTestSource(t, 0)
	want := sampleAt(37.7749, -122.4194, 200*time.Millisecond)
	writeFix(t, path, want)

	got, err := src.GetOneShot(context.Background(), domain.LocationOptions{MaxSampleAge: time.Second, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetOneShotWaitsForFreshFix(t *testing.T) {
	src, path := newTestSource(t, 0)
	writeFix(t, path, sampleAt(1, 1, time.Hour))

	fresh := sampleAt(37.7749, -122.4194, 0)
	data, err := location.EncodeFix(fresh)
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path+".tmp", data, 0o600)
		_ = os.Rename(path+".tmp", path)
	}()

	got, err := src.GetOneShot(context.Background(), domain.LocationOptions{MaxSampleAge: time.Second, Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestGetOneShotTimesOutWithoutFix(t *testing.T) {
	src, _ := newTestSource(t, 0)

	_, err := src.GetOneShot(context.Background(), domain.LocationOptions{Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, domain.ErrLocationTimeout)
	assert.Contains(t, err.Error(), "no such file")
}

func TestGetOneShotRejectsInaccurateFixWhenHighAccuracyRequested(t *testing.T) {
	src, path := newTestSource(t, 3)
	writeFix(t, path, sampleAt(1, 1, 0))

	_, err := src.GetOneShot(context.Background(), domain.LocationOptions{HighAccuracy: true, Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, domain.ErrLocationTimeout)
	assert.Contains(t, err.Error(), "accuracy")

	got, err := src.GetOneShot(context.Background(), domain.LocationOptions{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Latitude)
}

func TestGetOneShotReportsPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	src, path := newTestSource(t, 0)
	writeFix(t, path, sampleAt(1, 1, 0))
	require.NoError(t, os.Chmod(path, 0o000))

	_, err := src.GetOneShot(context.Background(), domain.LocationOptions{Timeout: time.Second})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	state, err := src.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDenied, state)
}

func TestPermission(t *testing.T) {
	src, path := newTestSource(t, 0)

	state, err := src.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionPrompt, state)

	writeFix(t, path, sampleAt(1, 1, 0))
	state, err = src.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, state)
}

func TestStartWatchDeliversRewrites(t *testing.T) {
	src, path := newTestSource(t, 0)
	writeFix(t, path, sampleAt(1, 1, 0))

	var (
		mu      sync.Mutex
		samples []domain.LocationSample
	)
	handle, err := src.StartWatch(domain.LocationOptions{}, func(s domain.LocationSample) {
		mu.Lock()
		samples = append(samples, s)
		mu.Unlock()
	}, func(error) {})
	require.NoError(t, err)
	defer func() { _ = handle.Stop() }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(samples) >= 1
	}, time.Second, 5*time.Millisecond)

	writeFix(t, path, sampleAt(2, 2, 0))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(samples) > 0 && samples[len(samples)-1].Latitude == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartWatchReportsInvalidFix(t *testing.T) {
	src, path := newTestSource(t, 0)
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	errs := make(chan error, 4)
	handle, err := src.StartWatch(domain.LocationOptions{}, func(domain.LocationSample) {}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	require.NoError(t, err)
	defer func() { _ = handle.Stop() }()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, domain.ErrPositionUnavailable)
	case <-time.After(time.Second):
		t.Fatal("no error delivered")
	}
}

func TestStartWatchReportsTimeoutWhenFixGoesQuiet(t *testing.T) {
	src, path := newTestSource(t, 0)
	writeFix(t, path, sampleAt(37.7749, -122.4194, 0))

	samples := make(chan domain.LocationSample, 4)
	errs := make(chan error, 4)
	handle, err := src.StartWatch(domain.LocationOptions{Timeout: 50 * time.Millisecond},
		func(s domain.LocationSample) { samples <- s },
		func(err error) {
			select {
			case errs <- err:
			default:
			}
		})
	require.NoError(t, err)
	defer func() { _ = handle.Stop() }()

	<-samples
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, domain.ErrLocationTimeout)
	case <-time.After(time.Second):
		t.Fatal("no timeout delivered")
	}
}

func TestStartWatchFailsForMissingDirectory(t *testing.T) {
	src, err := NewSource(Config{Path: filepath.Join(t.TempDir(), "missing", "fix.json")}, fixedClock{at: now}, nil)
	require.NoError(t, err)

	_, err = src.StartWatch(domain.LocationOptions{}, func(domain.LocationSample) {}, func(error) {})
	require.ErrorIs(t, err, domain.ErrPositionUnavailable)
}

func TestWatchStopIsIdempotent(t *testing.T) {
	src, _ := newTestSource(t, 0)

	handle, err := src.StartWatch(domain.LocationOptions{}, func(domain.LocationSample) {}, func(error) {})
	require.NoError(t, err)

	require.NoError(t, handle.Stop())
	require.NoError(t, handle.Stop())

	select {
	case <-handle.(*watch).done:
	case <-time.After(time.Second):
		t.Fatal("watch goroutine did not exit")
	}
}
