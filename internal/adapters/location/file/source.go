// Package file reads position fixes from a JSON file kept up to date by a
// platform location daemon (gpsd bridge, phone companion app, test harness).
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/zonecharge/internal/adapters/location"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
	"github.com/fsnotify/fsnotify"
)

var (
	_ ports.LocationSource    = (*Source)(nil)
	_ ports.PermissionChecker = (*Source)(nil)
)

type Config struct {
	Path              string
	AccuracyThreshold float64
}

type Source struct {
	path   string
	filter location.Filter
	clock  ports.Clock
	logger *slog.Logger
}

func NewSource(cfg Config, clock ports.Clock, logger *slog.Logger) (*Source, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("location fix file path is required")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		path:   filepath.Clean(path),
		filter: location.Filter{AccuracyThreshold: cfg.AccuracyThreshold},
		clock:  clock,
		logger: logger,
	}, nil
}

func (s *Source) Path() string {
	return s.path
}

// Permission probes the fix file without reading a sample. A missing file is
// reported as prompt: the daemon may simply not be running yet.
func (s *Source) Permission(_ context.Context) (domain.PermissionState, error) {
	f, err := os.Open(s.path)
	switch {
	case err == nil:
		_ = f.Close()
		return domain.PermissionGranted, nil
	case errors.Is(err, fs.ErrPermission):
		return domain.PermissionDenied, nil
	case errors.Is(err, fs.ErrNotExist):
		return domain.PermissionPrompt, nil
	default:
		return domain.PermissionPrompt, fmt.Errorf("probe fix file: %w", err)
	}
}

func (s *Source) GetOneShot(ctx context.Context, opts domain.LocationOptions) (domain.LocationSample, error) {
	return location.OneShot(ctx, opts, func(onSample func(domain.LocationSample), onError func(error)) (ports.WatchHandle, error) {
		return s.StartWatch(opts, onSample, onError)
	})
}

// StartWatch delivers the current fix and then every rewrite of the file.
// Samples arrive on the watch goroutine. When opts.Timeout passes without an
// accepted fix, onError receives domain.ErrLocationTimeout from a timer.
func (s *Source) StartWatch(opts domain.LocationOptions, onSample func(domain.LocationSample), onError func(error)) (ports.WatchHandle, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: create file watcher: %w", domain.ErrPositionUnavailable, err)
	}

	// Daemons usually replace the file by rename, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, classify(fmt.Errorf("watch %s: %w", dir, err))
	}

	w := &watch{
		watcher: watcher,
		dog:     location.NewWatchdog(opts.Timeout, onError),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run(w, opts, onSample, onError)

	s.logger.Debug("location: file watch started", "path", s.path)
	return w, nil
}

func (s *Source) run(w *watch, opts domain.LocationOptions, onSample func(domain.LocationSample), onError func(error)) {
	defer close(w.done)

	deliver := func() {
		sample, err := s.read(opts)
		if w.stopped() {
			return
		}
		if err != nil {
			onError(err)
			return
		}
		w.dog.Feed()
		onSample(sample)
	}

	deliver()
	name := filepath.Base(s.path)
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			deliver()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("location: file watch error", "path", s.path, "error", err)
		}
	}
}

func (s *Source) read(opts domain.LocationOptions) (domain.LocationSample, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.LocationSample{}, classify(fmt.Errorf("read fix %s: %w", s.path, err))
	}

	sample, err := location.DecodeFix(data)
	if err != nil {
		return domain.LocationSample{}, fmt.Errorf("fix %s: %w", s.path, err)
	}
	if err := s.filter.Check(sample, opts, s.clock.Now()); err != nil {
		return domain.LocationSample{}, err
	}

	return sample, nil
}

func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrPositionUnavailable, err)
}

type watch struct {
	watcher *fsnotify.Watcher
	dog     *location.Watchdog
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (w *watch) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// Stop ends the watch. Safe to call more than once and from a callback.
func (w *watch) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		w.dog.Stop()
		err = w.watcher.Close()
	})
	return err
}
