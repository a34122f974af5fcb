package location

import (
	"fmt"
	"sync"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
)

// Watchdog reports domain.ErrLocationTimeout through onError each time a
// watch goes timeout without an accepted sample. A zero timeout disables it.
type Watchdog struct {
	timeout time.Duration
	onError func(error)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewWatchdog(timeout time.Duration, onError func(error)) *Watchdog {
	w := &Watchdog{timeout: timeout, onError: onError}
	if timeout > 0 {
		w.timer = time.AfterFunc(timeout, w.expire)
	}
	return w
}

func (w *Watchdog) expire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.timer.Reset(w.timeout)
	w.mu.Unlock()

	w.onError(fmt.Errorf("%w: no fix within %s", domain.ErrLocationTimeout, w.timeout))
}

// Feed restarts the countdown after an accepted sample.
func (w *Watchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil && !w.stopped {
		w.timer.Reset(w.timeout)
	}
}

// Stop disarms the watchdog. A report already running may still complete.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
