package location

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
)

// StartFunc starts a watch delivering filtered samples and errors.
type StartFunc func(onSample func(domain.LocationSample), onError func(error)) (ports.WatchHandle, error)

// OneShot waits for the first acceptable sample from a watch. Permission
// errors end the wait at once; other errors are remembered and reported with
// domain.ErrLocationTimeout when ctx expires.
func OneShot(ctx context.Context, opts domain.LocationOptions, start StartFunc) (domain.LocationSample, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	samples := make(chan domain.LocationSample, 1)
	denied := make(chan error, 1)

	var (
		mu      sync.Mutex
		lastErr error
	)

	handle, err := start(
		func(sample domain.LocationSample) {
			select {
			case samples <- sample:
			default:
			}
		},
		func(err error) {
			if errors.Is(err, domain.ErrPermissionDenied) {
				select {
				case denied <- err:
				default:
				}
				return
			}
			if errors.Is(err, domain.ErrLocationTimeout) {
				return
			}
			mu.Lock()
			lastErr = err
			mu.Unlock()
		},
	)
	if err != nil {
		return domain.LocationSample{}, err
	}
	defer func() { _ = handle.Stop() }()

	select {
	case sample := <-samples:
		return sample, nil
	case err := <-denied:
		return domain.LocationSample{}, err
	case <-ctx.Done():
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.LocationSample{}, ctx.Err()
		}
		mu.Lock()
		cause := lastErr
		mu.Unlock()
		if cause != nil {
			return domain.LocationSample{}, fmt.Errorf("%w: last error: %v", domain.ErrLocationTimeout, cause)
		}
		return domain.LocationSample{}, fmt.Errorf("%w: no fix received", domain.ErrLocationTimeout)
	}
}
