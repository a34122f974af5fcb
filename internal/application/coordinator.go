package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
)

type CoordinatorState string

const (
	StateIdle                       CoordinatorState = "idle"
	StateAwaitingLocationPermission CoordinatorState = "awaiting_location_permission"
	StateWatching                   CoordinatorState = "watching"
	StatePermissionDenied           CoordinatorState = "permission_denied"
)

type TickOutcome int

const (
	TickInactive TickOutcome = iota
	TickSkippedBusy
	TickNoSample
	TickInvalidCoordinates
	TickStarted
)

func (o TickOutcome) String() string {
	switch o {
	case TickInactive:
		return "inactive"
	case TickSkippedBusy:
		return "skipped_busy"
	case TickNoSample:
		return "no_sample"
	case TickInvalidCoordinates:
		return "invalid_coordinates"
	case TickStarted:
		return "started"
	default:
		return fmt.Sprintf("tick_outcome(%d)", int(o))
	}
}

var ErrRetryNotApplicable = errors.New("location retry is only possible after a permission failure")

const (
	defaultTickInterval      = time.Second
	defaultLocationTimeout   = 20 * time.Second
	defaultEvaluationTimeout = 10 * time.Second
	persistTimeout           = 2 * time.Second
)

type CoordinatorConfig struct {
	TickInterval time.Duration
	// LocationTimeout bounds the initial acquisition only; steady-state ticks
	// never wait for a fix.
	LocationTimeout   time.Duration
	EvaluationTimeout time.Duration
	WatchOptions      domain.LocationOptions
	AcquireOptions    domain.LocationOptions
	// ResumeFromLastKnown starts watching from the persisted fix instead of
	// blocking on a new acquisition. ResumeMaxAge limits how old it may be.
	ResumeFromLastKnown bool
	ResumeMaxAge        time.Duration
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		TickInterval:      defaultTickInterval,
		LocationTimeout:   defaultLocationTimeout,
		EvaluationTimeout: defaultEvaluationTimeout,
		WatchOptions: domain.LocationOptions{
			HighAccuracy: true,
			MaxSampleAge: time.Second,
			Timeout:      5 * time.Second,
		},
		AcquireOptions: domain.LocationOptions{
			Timeout: defaultLocationTimeout,
		},
		ResumeFromLastKnown: true,
	}
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.LocationTimeout <= 0 {
		c.LocationTimeout = defaultLocationTimeout
	}
	if c.EvaluationTimeout <= 0 {
		c.EvaluationTimeout = defaultEvaluationTimeout
	}
	if c.AcquireOptions.Timeout <= 0 || c.AcquireOptions.Timeout > c.LocationTimeout {
		c.AcquireOptions.Timeout = c.LocationTimeout
	}

	return c
}

type CoordinatorStatus struct {
	State       CoordinatorState
	LastError   error
	LastSample  domain.LocationSample
	HasSample   bool
	InFlight    bool
	Ticks       uint64
	Skipped     uint64
	Evaluations uint64
	Failures    uint64
}

type CoordinatorListener func(CoordinatorStatus)

type sessionAuthority interface {
	State() domain.SessionState
	OnChange(listener SessionListener) func()
	Expire(ctx context.Context)
}

// Coordinator runs the geofence polling loop: it owns the location watch, the
// tick timer and the single in-flight charge evaluation.
type Coordinator struct {
	cfg     CoordinatorConfig
	source  ports.LocationSource
	billing ports.BillingAPI
	store   *BalanceStore
	session sessionAuthority
	devices ports.DeviceStateRepository
	clock   ports.Clock
	logger  *slog.Logger

	mu         sync.Mutex
	state      CoordinatorState
	lastErr    error
	latest     domain.LocationSample
	hasSample  bool
	watch      ports.WatchHandle
	loopStop   chan struct{}
	loopDone   chan struct{}
	lifetime   context.Context
	cancel     context.CancelFunc
	detach     func()
	listeners  map[int]CoordinatorListener
	listenerID int

	// lifecycleMu serializes Start against teardowns so a slow teardown can
	// never overwrite the state a later Stop or Start left behind.
	lifecycleMu sync.Mutex
	// applyMu orders result application against session invalidation so a
	// result is never applied after Stop has returned.
	applyMu sync.Mutex
	epoch   atomic.Uint64
	// inFlight holds the epoch owning the evaluation slot, zero when free.
	inFlight atomic.Uint64
	workers  sync.WaitGroup

	ticks       atomic.Uint64
	skipped     atomic.Uint64
	evaluations atomic.Uint64
	failures    atomic.Uint64
}

func NewCoordinator(
	cfg CoordinatorConfig,
	source ports.LocationSource,
	billing ports.BillingAPI,
	store *BalanceStore,
	session sessionAuthority,
	devices ports.DeviceStateRepository,
	clock ports.Clock,
	logger *slog.Logger,
) *Coordinator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		cfg:       cfg.withDefaults(),
		source:    source,
		billing:   billing,
		store:     store,
		session:   session,
		devices:   devices,
		clock:     clock,
		logger:    logger,
		state:     StateIdle,
		listeners: map[int]CoordinatorListener{},
	}
}

// Attach subscribes the coordinator to session changes and applies the
// current session immediately.
func (c *Coordinator) Attach() {
	c.mu.Lock()
	if c.detach != nil {
		c.mu.Unlock()
		return
	}
	c.detach = c.session.OnChange(c.handleSession)
	c.mu.Unlock()

	c.handleSession(c.session.State())
}

// Detach unsubscribes from the session and stops polling.
func (c *Coordinator) Detach() {
	c.mu.Lock()
	detach := c.detach
	c.detach = nil
	c.mu.Unlock()

	if detach != nil {
		detach()
	}
	c.Stop()
}

func (c *Coordinator) handleSession(state domain.SessionState) {
	if state.PollingAllowed() {
		c.Start()
		return
	}
	c.Stop()
}

// Start begins location acquisition. It is a no-op unless the coordinator is idle.
func (c *Coordinator) Start() {
	c.lifecycleMu.Lock()
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.lifecycleMu.Unlock()
		return
	}
	epoch := c.epoch.Add(1)
	c.lifetime, c.cancel = context.WithCancel(context.Background())
	lifetime := c.lifetime
	c.state = StateAwaitingLocationPermission
	c.lastErr = nil
	c.mu.Unlock()
	c.lifecycleMu.Unlock()

	c.logger.Info("coordinator: awaiting location")
	c.emit()

	if sample, ok := c.lastKnown(lifetime); ok {
		c.logger.Info("coordinator: resuming from last known location", "captured_at", sample.CapturedAt)
		if err := c.beginWatching(epoch, sample); err != nil {
			c.logger.Warn("coordinator: resume failed", "error", err)
		}
		return
	}

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		_ = c.acquire(lifetime, epoch)
	}()
}

// Stop tears down the timer and then the location watch, discarding any
// evaluation still in flight. It is idempotent.
func (c *Coordinator) Stop() {
	c.teardown(0, StateIdle, nil)
}

// Tick runs one polling step. The ticker calls it; it may also be invoked
// directly and is a no-op outside the watching state.
func (c *Coordinator) Tick() TickOutcome {
	c.ticks.Add(1)

	c.mu.Lock()
	if c.state != StateWatching || c.loopStop == nil {
		c.mu.Unlock()
		return TickInactive
	}
	epoch := c.epoch.Load()
	lifetime := c.lifetime
	sample, hasSample := c.latest, c.hasSample
	c.mu.Unlock()

	if !c.claimSlot(epoch) {
		c.skipped.Add(1)
		c.logger.Debug("coordinator: tick skipped, evaluation in flight")
		return TickSkippedBusy
	}

	if !hasSample {
		c.releaseSlot(epoch)
		return TickNoSample
	}

	req, err := domain.NewChargeEvaluationRequest(sample, c.clock.Now())
	if err != nil {
		c.releaseSlot(epoch)
		c.failures.Add(1)
		c.logger.Warn("coordinator: tick aborted", "error", err)
		return TickInvalidCoordinates
	}

	c.workers.Add(1)
	go c.evaluate(lifetime, epoch, req)

	return TickStarted
}

// claimSlot takes the evaluation slot for epoch. A slot still held by an
// ended session does not count as busy.
func (c *Coordinator) claimSlot(epoch uint64) bool {
	for {
		owner := c.inFlight.Load()
		if owner == epoch {
			return false
		}
		if c.inFlight.CompareAndSwap(owner, epoch) {
			return true
		}
	}
}

func (c *Coordinator) releaseSlot(epoch uint64) {
	c.inFlight.CompareAndSwap(epoch, 0)
}

// Wait blocks until running acquisitions and evaluations have returned.
func (c *Coordinator) Wait() {
	c.workers.Wait()
}

func (c *Coordinator) Status() CoordinatorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.statusLocked()
}

func (c *Coordinator) OnStateChange(listener CoordinatorListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.listenerID
	c.listenerID++
	c.listeners[id] = listener

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// retryAcquisition re-enters acquisition from the denied state and blocks
// until it resolves.
func (c *Coordinator) retryAcquisition(ctx context.Context) error {
	c.lifecycleMu.Lock()
	c.mu.Lock()
	if c.state != StatePermissionDenied {
		c.mu.Unlock()
		c.lifecycleMu.Unlock()
		return ErrRetryNotApplicable
	}
	if !c.session.State().PollingAllowed() {
		c.mu.Unlock()
		c.lifecycleMu.Unlock()
		return domain.ErrNotAuthenticated
	}
	if c.cancel != nil {
		c.cancel()
	}
	epoch := c.epoch.Add(1)
	c.lifetime, c.cancel = context.WithCancel(context.Background())
	lifetime := c.lifetime
	c.state = StateAwaitingLocationPermission
	c.lastErr = nil
	c.mu.Unlock()
	c.lifecycleMu.Unlock()

	c.logger.Info("coordinator: retrying location acquisition")
	c.emit()

	acquireCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(lifetime, cancel)
	defer stopAfter()

	return c.acquire(acquireCtx, epoch)
}

func (c *Coordinator) acquire(ctx context.Context, epoch uint64) error {
	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.LocationTimeout)
	defer cancel()

	sample, err := c.source.GetOneShot(acquireCtx, c.cfg.AcquireOptions)
	if err == nil && !sample.Finite() {
		err = fmt.Errorf("%w: source returned %w", domain.ErrPositionUnavailable, domain.ErrInvalidCoordinates)
	}
	if err != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrLocationTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrLocationTimeout, err)
		}
		c.deny(epoch, err)
		return err
	}

	c.persist(sample)
	return c.beginWatching(epoch, sample)
}

func (c *Coordinator) deny(epoch uint64, err error) {
	c.mu.Lock()
	if c.epoch.Load() != epoch || c.state != StateAwaitingLocationPermission {
		c.mu.Unlock()
		return
	}
	c.state = StatePermissionDenied
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Warn("coordinator: location unavailable", "error", err)
	c.emit()
}

var errStaleSession = errors.New("session ended before location was acquired")

func (c *Coordinator) beginWatching(epoch uint64, sample domain.LocationSample) error {
	c.mu.Lock()
	if c.epoch.Load() != epoch || c.state != StateAwaitingLocationPermission {
		c.mu.Unlock()
		return errStaleSession
	}
	c.latest = sample
	c.hasSample = true
	c.mu.Unlock()

	handle, err := c.source.StartWatch(c.cfg.WatchOptions, c.onSample(epoch), c.onWatchError(epoch))
	if err != nil {
		c.deny(epoch, fmt.Errorf("start location watch: %w", err))
		return err
	}

	c.mu.Lock()
	if c.epoch.Load() != epoch || c.state != StateAwaitingLocationPermission {
		c.mu.Unlock()
		c.stopWatch(handle)
		return errStaleSession
	}
	c.watch = handle
	c.loopStop = make(chan struct{})
	c.loopDone = make(chan struct{})
	stop, done := c.loopStop, c.loopDone
	c.state = StateWatching
	c.lastErr = nil
	c.mu.Unlock()

	go c.loop(stop, done)

	c.logger.Info("coordinator: watching", "interval", c.cfg.TickInterval)
	c.emit()
	c.Tick()

	return nil
}

func (c *Coordinator) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Coordinator) onSample(epoch uint64) func(domain.LocationSample) {
	return func(sample domain.LocationSample) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.epoch.Load() != epoch {
			return
		}
		c.latest = sample
		c.hasSample = true
	}
}

func (c *Coordinator) onWatchError(epoch uint64) func(error) {
	return func(err error) {
		if !errors.Is(err, domain.ErrPermissionDenied) {
			c.logger.Debug("coordinator: location watch error ignored", "error", err)
			return
		}

		// The source may invoke this from its own delivery goroutine, which
		// stopping the watch can wait on.
		go c.teardown(epoch, StatePermissionDenied, err)
	}
}

func (c *Coordinator) teardown(expectEpoch uint64, next CoordinatorState, cause error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	if expectEpoch != 0 && c.epoch.Load() != expectEpoch {
		c.mu.Unlock()
		return
	}
	if c.state == StateIdle && next == StateIdle {
		c.mu.Unlock()
		return
	}
	stop, done := c.loopStop, c.loopDone
	c.loopStop, c.loopDone = nil, nil
	watch := c.watch
	c.watch = nil
	cancel := c.cancel
	c.cancel = nil
	sample, hasSample := c.latest, c.hasSample
	c.mu.Unlock()

	c.invalidate()

	if stop != nil {
		close(stop)
		<-done
	}
	if watch != nil {
		c.stopWatch(watch)
	}
	if cancel != nil {
		cancel()
	}
	if hasSample {
		c.persist(sample)
	}

	c.mu.Lock()
	c.state = next
	c.lastErr = cause
	if next == StateIdle {
		c.latest = domain.LocationSample{}
		c.hasSample = false
	}
	c.mu.Unlock()

	if cause != nil {
		c.logger.Warn("coordinator: stopped", "state", next, "error", cause)
	} else {
		c.logger.Info("coordinator: stopped", "state", next)
	}
	c.emit()
}

func (c *Coordinator) invalidate() {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.epoch.Add(1)
}

func (c *Coordinator) evaluate(lifetime context.Context, epoch uint64, req domain.ChargeEvaluationRequest) {
	defer c.workers.Done()
	defer c.releaseSlot(epoch)
	defer func() {
		if r := recover(); r != nil {
			c.failures.Add(1)
			c.logger.Error("coordinator: evaluation panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(lifetime, c.cfg.EvaluationTimeout)
	defer cancel()

	result, err := c.billing.CheckAndCharge(ctx, req)
	if err != nil {
		c.handleFailure(epoch, fmt.Errorf("check and charge: %w", err))
		return
	}

	applied := c.applyIfCurrent(epoch, func() {
		c.store.ApplyResult(result)
		if result.Transaction != nil && result.Balance == nil {
			c.store.ApplyOptimisticCharge(result.Transaction.Amount)
		}
	})
	if !applied {
		c.logger.Debug("coordinator: discarded result from ended session")
		return
	}
	c.evaluations.Add(1)

	if result.Transaction == nil || result.Balance != nil {
		return
	}

	balance, err := c.billing.FetchBalance(ctx)
	if err != nil {
		c.handleFailure(epoch, fmt.Errorf("fetch balance: %w", err))
		return
	}
	c.applyIfCurrent(epoch, func() {
		c.store.ApplyBalance(balance)
	})
}

func (c *Coordinator) applyIfCurrent(epoch uint64, apply func()) bool {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	if c.epoch.Load() != epoch {
		return false
	}
	apply()
	return true
}

func (c *Coordinator) handleFailure(epoch uint64, err error) {
	c.failures.Add(1)

	if errors.Is(err, domain.ErrUnauthorized) {
		if c.epoch.Load() != epoch {
			return
		}
		c.logger.Warn("coordinator: token rejected, ending session", "error", err)
		c.session.Expire(context.Background())
		return
	}

	reported := c.applyIfCurrent(epoch, func() {
		c.store.ReportFailure(err)
	})
	if reported {
		c.logger.Warn("coordinator: evaluation failed", "error", err)
	}
}

func (c *Coordinator) lastKnown(ctx context.Context) (domain.LocationSample, bool) {
	if !c.cfg.ResumeFromLastKnown || c.devices == nil {
		return domain.LocationSample{}, false
	}

	sample, err := c.devices.LoadLastLocation(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoLastLocation) {
			c.logger.Warn("coordinator: load last location failed", "error", err)
		}
		return domain.LocationSample{}, false
	}
	if !sample.Finite() || !sample.FreshEnough(c.clock.Now(), c.cfg.ResumeMaxAge) {
		return domain.LocationSample{}, false
	}

	return sample, true
}

func (c *Coordinator) persist(sample domain.LocationSample) {
	if c.devices == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.devices.SaveLastLocation(ctx, sample); err != nil {
		c.logger.Warn("coordinator: save last location failed", "error", err)
	}
}

func (c *Coordinator) stopWatch(handle ports.WatchHandle) {
	if err := handle.Stop(); err != nil {
		c.logger.Warn("coordinator: stop location watch failed", "error", err)
	}
}

func (c *Coordinator) emit() {
	c.mu.Lock()
	status := c.statusLocked()
	listeners := make([]CoordinatorListener, 0, len(c.listeners))
	for _, listener := range c.listeners {
		listeners = append(listeners, listener)
	}
	c.mu.Unlock()

	for _, listener := range listeners {
		listener(status)
	}
}

func (c *Coordinator) statusLocked() CoordinatorStatus {
	owner := c.inFlight.Load()

	return CoordinatorStatus{
		State:       c.state,
		LastError:   c.lastErr,
		LastSample:  c.latest,
		HasSample:   c.hasSample,
		InFlight:    owner != 0 && owner == c.epoch.Load(),
		Ticks:       c.ticks.Load(),
		Skipped:     c.skipped.Load(),
		Evaluations: c.evaluations.Load(),
		Failures:    c.failures.Load(),
	}
}
