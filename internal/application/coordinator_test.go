package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sanFrancisco = domain.LocationSample{
	Latitude:   37.7749,
	Longitude:  -122.4194,
	Accuracy:   12,
	CapturedAt: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
}

func TestCoordinatorStartsWatchingAfterAcquisition(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())
	f.billing.respond(domain.ChargeEvaluationResult{}, nil)

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()

	requests := f.billing.requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "37.7749000", requests[0].Latitude)
	assert.Equal(t, "-122.4194000", requests[0].Longitude)
	assert.Equal(t, "2026-03-01T08:30:15.250Z", requests[0].Timestamp)
	assert.Equal(t, 1, f.source.watchCount())
}

func TestCoordinatorChargeThenLeaveZone(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())

	var call int
	f.billing.setCheckAndCharge(func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
		call++
		if call == 1 {
			return domain.ChargeEvaluationResult{
				MatchedZone: &domain.ZoneInfo{ID: 4, Name: "Downtown"},
				Transaction: &domain.TransactionInfo{Amount: dec("0.50"), RateUnit: domain.RateHour},
				Balance:     balanceOf("9.50"),
			}, nil
		}
		return domain.ChargeEvaluationResult{}, nil
	})

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()

	snap := f.store.Snapshot()
	require.NotNil(t, snap.Zone)
	assert.Equal(t, "Downtown", snap.Zone.Name)
	assert.Equal(t, "per hour", snap.Zone.RateUnit.Label())
	assert.Equal(t, "9.50", snap.Balance.String())

	require.Equal(t, TickStarted, f.coordinator.Tick())
	f.coordinator.Wait()

	snap = f.store.Snapshot()
	assert.Nil(t, snap.Zone)
	assert.Equal(t, "9.50", snap.Balance.String())
}

func TestCoordinatorKeepsAtMostOneEvaluationInFlight(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())

	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	f.billing.setCheckAndCharge(func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
		entered <- struct{}{}
		<-release
		return domain.ChargeEvaluationResult{}, nil
	})

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	<-entered

	for range 3 {
		assert.Equal(t, TickSkippedBusy, f.coordinator.Tick())
	}
	assert.True(t, f.coordinator.Status().InFlight)
	assert.Equal(t, uint64(3), f.coordinator.Status().Skipped)

	close(release)
	f.coordinator.Wait()

	assert.Equal(t, TickStarted, f.coordinator.Tick())
	f.coordinator.Wait()
	assert.Len(t, f.billing.requests(), 2)
}

func TestCoordinatorFailureLeavesStoreUntouched(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())

	var call int
	f.billing.setCheckAndCharge(func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
		call++
		if call == 1 {
			return domain.ChargeEvaluationResult{
				MatchedZone: &domain.ZoneInfo{ID: 4, Name: "Downtown"},
				Transaction: &domain.TransactionInfo{Amount: dec("0.50"), RateUnit: domain.RateHour},
				Balance:     balanceOf("9.50"),
			}, nil
		}
		return domain.ChargeEvaluationResult{}, errors.New("status 500")
	})

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()
	before := f.store.Snapshot()

	require.Equal(t, TickStarted, f.coordinator.Tick())
	f.coordinator.Wait()

	after := f.store.Snapshot()
	assert.Equal(t, before.Balance, after.Balance)
	assert.Equal(t, before.Zone, after.Zone)
	assert.Contains(t, after.Advisory, "status 500")
	assert.Equal(t, StateWatching, f.coordinator.Status().State)
	assert.Equal(t, uint64(1), f.coordinator.Status().Failures)
}

func TestCoordinatorReconcilesOptimisticChargeWithServerBalance(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())
	f.store.ApplyBalance(domain.NewAccountBalance(dec("10.00")))

	f.billing.respond(domain.ChargeEvaluationResult{
		MatchedZone: &domain.ZoneInfo{ID: 4, Name: "Downtown"},
		Transaction: &domain.TransactionInfo{Amount: dec("0.50"), RateUnit: domain.RateHour},
	}, nil)

	var during BalanceSnapshot
	f.billing.setFetchBalance(func(context.Context) (domain.AccountBalance, error) {
		during = f.store.Snapshot()
		return domain.NewAccountBalance(dec("9.60")), nil
	})

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()

	assert.True(t, during.Optimistic)
	assert.Equal(t, "9.50", during.Balance.String())

	snap := f.store.Snapshot()
	assert.False(t, snap.Optimistic)
	assert.Equal(t, "9.60", snap.Balance.String())
	assert.Equal(t, 1, f.billing.balanceCallCount())
}

func TestCoordinatorStopHaltsTimerAndWatch(t *testing.T) {
	f := newCoordinatorFixtureWith(t, userSession(), func(cfg *CoordinatorConfig) {
		cfg.TickInterval = 5 * time.Millisecond
	})
	f.billing.respond(domain.ChargeEvaluationResult{}, nil)

	f.coordinator.Attach()
	require.Eventually(t, func() bool { return len(f.billing.requests()) >= 3 }, time.Second, time.Millisecond)

	f.coordinator.Stop()
	f.coordinator.Wait()
	settled := len(f.billing.requests())

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, f.billing.requests(), settled)
	assert.Equal(t, TickInactive, f.coordinator.Tick())
	assert.Equal(t, StateIdle, f.coordinator.Status().State)
	assert.Equal(t, 1, f.source.stopCount())

	saved, ok := f.devices.last()
	require.True(t, ok)
	assert.Equal(t, sanFrancisco, saved)

	f.coordinator.Stop()
	assert.Equal(t, 1, f.source.stopCount())
}

func TestCoordinatorSkipsInvalidCoordinatesWithoutNetworkCall(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())
	f.billing.respond(domain.ChargeEvaluationResult{}, nil)

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()
	require.Len(t, f.billing.requests(), 1)

	f.source.deliver(domain.LocationSample{Latitude: math.NaN(), Longitude: 4.5})

	assert.Equal(t, TickInvalidCoordinates, f.coordinator.Tick())
	f.coordinator.Wait()
	assert.Len(t, f.billing.requests(), 1)
	assert.False(t, f.coordinator.Status().InFlight)
}

func TestCoordinatorDiscardsResultFromEndedSession(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())

	entered := make(chan struct{})
	release := make(chan struct{})
	f.billing.setCheckAndCharge(func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
		close(entered)
		<-release
		return domain.ChargeEvaluationResult{
			MatchedZone: &domain.ZoneInfo{ID: 4, Name: "Downtown"},
			Transaction: &domain.TransactionInfo{Amount: dec("0.50"), RateUnit: domain.RateHour},
			Balance:     balanceOf("9.50"),
		}, nil
	})

	f.coordinator.Attach()
	<-entered

	f.session.set(domain.AnonymousSession())
	assert.Equal(t, StateIdle, f.coordinator.Status().State)

	close(release)
	f.coordinator.Wait()

	snap := f.store.Snapshot()
	assert.False(t, snap.BalanceKnown)
	assert.Nil(t, snap.Zone)
}

func TestCoordinatorExpiresSessionOnRejectedToken(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())
	f.billing.respond(domain.ChargeEvaluationResult{}, fmt.Errorf("status 401: %w", domain.ErrUnauthorized))

	f.coordinator.Attach()
	f.waitForState(t, StateIdle)
	f.coordinator.Wait()

	assert.Equal(t, 1, f.session.expireCount())
	assert.False(t, f.session.State().IsAuthenticated)
	assert.Empty(t, f.store.Snapshot().Advisory)
	assert.Equal(t, 1, f.source.stopCount())
}

func TestCoordinatorRecoversFromPanickingEvaluation(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())

	var call int
	f.billing.setCheckAndCharge(func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
		call++
		if call == 1 {
			panic("decoder exploded")
		}
		return domain.ChargeEvaluationResult{}, nil
	})

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()

	assert.False(t, f.coordinator.Status().InFlight)
	assert.Equal(t, TickStarted, f.coordinator.Tick())
	f.coordinator.Wait()
}

func TestCoordinatorIgnoresSessionsThatMayNotPoll(t *testing.T) {
	admin := domain.SessionState{IsAuthenticated: true, Role: domain.RoleAdmin, Username: "root"}
	f := newCoordinatorFixture(t, admin)

	f.coordinator.Attach()

	assert.Equal(t, StateIdle, f.coordinator.Status().State)
	assert.Zero(t, f.source.oneShotCount())
	assert.Equal(t, TickInactive, f.coordinator.Tick())
}

func TestCoordinatorResumesFromLastKnownLocation(t *testing.T) {
	f := newCoordinatorFixtureWith(t, userSession(), func(cfg *CoordinatorConfig) {
		cfg.ResumeFromLastKnown = true
	})
	f.devices.store(sanFrancisco)
	f.billing.respond(domain.ChargeEvaluationResult{}, nil)

	f.coordinator.Attach()

	assert.Equal(t, StateWatching, f.coordinator.Status().State)
	f.coordinator.Wait()
	assert.Zero(t, f.source.oneShotCount())
	assert.Len(t, f.billing.requests(), 1)
}

func TestCoordinatorDeniesOnAcquisitionTimeout(t *testing.T) {
	f := newCoordinatorFixtureWith(t, userSession(), func(cfg *CoordinatorConfig) {
		cfg.LocationTimeout = 20 * time.Millisecond
	})
	f.source.setOneShot(func(ctx context.Context, _ domain.LocationOptions) (domain.LocationSample, error) {
		<-ctx.Done()
		return domain.LocationSample{}, ctx.Err()
	})

	f.coordinator.Attach()
	f.waitForState(t, StatePermissionDenied)

	assert.ErrorIs(t, f.coordinator.Status().LastError, domain.ErrLocationTimeout)
	assert.Empty(t, f.billing.requests())
}

func TestCoordinatorWatchPermissionLossTearsDown(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())
	f.billing.respond(domain.ChargeEvaluationResult{}, nil)

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()

	f.source.fail(domain.ErrLocationTimeout)
	assert.Equal(t, StateWatching, f.coordinator.Status().State)

	f.source.fail(domain.ErrPermissionDenied)
	f.waitForState(t, StatePermissionDenied)

	assert.ErrorIs(t, f.coordinator.Status().LastError, domain.ErrPermissionDenied)
	assert.Equal(t, 1, f.source.stopCount())
	assert.Equal(t, TickInactive, f.coordinator.Tick())
}

func TestCoordinatorLogoutDuringPermissionLossEndsIdle(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())
	f.billing.respond(domain.ChargeEvaluationResult{}, nil)

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()

	release := f.source.holdStops()
	t.Cleanup(release)

	f.source.fail(domain.ErrPermissionDenied)
	require.Eventually(t, func() bool { return f.source.stoppingCount() == 1 }, time.Second, time.Millisecond)

	loggedOut := make(chan struct{})
	go func() {
		defer close(loggedOut)
		f.session.set(domain.AnonymousSession())
	}()

	select {
	case <-loggedOut:
		t.Fatal("logout returned while the watch was still stopping")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	<-loggedOut
	assert.Equal(t, StateIdle, f.coordinator.Status().State)

	f.session.set(userSession())
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()
	assert.Equal(t, 2, f.source.watchCount())
	assert.Len(t, f.billing.requests(), 2)
}

func TestCoordinatorNewSessionIgnoresEvaluationFromEndedSession(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	f.billing.setCheckAndCharge(func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
		entered <- struct{}{}
		<-release
		return domain.ChargeEvaluationResult{}, nil
	})
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	f.coordinator.Attach()
	<-entered

	f.session.set(domain.AnonymousSession())
	f.session.set(userSession())
	f.waitForState(t, StateWatching)

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("new session never evaluated while the old evaluation was pending")
	}
	assert.True(t, f.coordinator.Status().InFlight)
	assert.Zero(t, f.coordinator.Status().Skipped)

	close(release)
	f.coordinator.Wait()
	assert.Len(t, f.billing.requests(), 2)
	assert.False(t, f.coordinator.Status().InFlight)
}

func TestCoordinatorNotifiesStateListeners(t *testing.T) {
	f := newCoordinatorFixture(t, userSession())
	f.billing.respond(domain.ChargeEvaluationResult{}, nil)

	var mu sync.Mutex
	var states []CoordinatorState
	f.coordinator.OnStateChange(func(status CoordinatorStatus) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, status.State)
	})

	f.coordinator.Attach()
	f.waitForState(t, StateWatching)
	f.coordinator.Wait()
	f.coordinator.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []CoordinatorState{StateAwaitingLocationPermission, StateWatching, StateIdle}, states)
}

type coordinatorFixture struct {
	coordinator *Coordinator
	source      *fakeLocationSource
	billing     *fakeBilling
	session     *fakeSession
	devices     *memoryDeviceState
	store       *BalanceStore
}

func newCoordinatorFixture(t *testing.T, session domain.SessionState) coordinatorFixture {
	return newCoordinatorFixtureWith(t, session, nil)
}

func newCoordinatorFixtureWith(t *testing.T, session domain.SessionState, configure func(*CoordinatorConfig)) coordinatorFixture {
	t.Helper()

	cfg := DefaultCoordinatorConfig()
	cfg.TickInterval = time.Hour
	cfg.ResumeFromLastKnown = false
	if configure != nil {
		configure(&cfg)
	}

	clock := fixedClock{now: time.Date(2026, 3, 1, 8, 30, 15, 250_000_000, time.UTC)}
	f := coordinatorFixture{
		source:  newFakeLocationSource(sanFrancisco),
		billing: &fakeBilling{},
		session: &fakeSession{state: session},
		devices: &memoryDeviceState{},
		store:   NewBalanceStore(clock),
	}
	f.coordinator = NewCoordinator(cfg, f.source, f.billing, f.store, f.session, f.devices, clock, discardLogger())

	t.Cleanup(func() {
		f.coordinator.Stop()
		f.coordinator.Wait()
	})

	return f
}

func (f coordinatorFixture) waitForState(t *testing.T, want CoordinatorState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.coordinator.Status().State == want
	}, time.Second, time.Millisecond, "coordinator never reached %s", want)
}

func userSession() domain.SessionState {
	return domain.SessionState{IsAuthenticated: true, Role: domain.RoleUser, Username: "alice"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type fakeLocationSource struct {
	mu         sync.Mutex
	oneShot    func(context.Context, domain.LocationOptions) (domain.LocationSample, error)
	permission domain.PermissionState
	onSample   func(domain.LocationSample)
	onError    func(error)
	oneShots   int
	watches    int
	stops      int
	stopping   int
	stopGate   chan struct{}
}

func newFakeLocationSource(sample domain.LocationSample) *fakeLocationSource {
	return &fakeLocationSource{
		oneShot: func(context.Context, domain.LocationOptions) (domain.LocationSample, error) {
			return sample, nil
		},
	}
}

func (s *fakeLocationSource) StartWatch(_ domain.LocationOptions, onSample func(domain.LocationSample), onError func(error)) (ports.WatchHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.watches++
	s.onSample = onSample
	s.onError = onError

	return &fakeWatch{source: s}, nil
}

func (s *fakeLocationSource) GetOneShot(ctx context.Context, opts domain.LocationOptions) (domain.LocationSample, error) {
	s.mu.Lock()
	s.oneShots++
	oneShot := s.oneShot
	s.mu.Unlock()

	return oneShot(ctx, opts)
}

func (s *fakeLocationSource) setOneShot(fn func(context.Context, domain.LocationOptions) (domain.LocationSample, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oneShot = fn
}

func (s *fakeLocationSource) deliver(sample domain.LocationSample) {
	s.mu.Lock()
	onSample := s.onSample
	s.mu.Unlock()

	if onSample != nil {
		onSample(sample)
	}
}

func (s *fakeLocationSource) fail(err error) {
	s.mu.Lock()
	onError := s.onError
	s.mu.Unlock()

	if onError != nil {
		onError(err)
	}
}

func (s *fakeLocationSource) oneShotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oneShots
}

func (s *fakeLocationSource) watchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watches
}

// holdStops makes every watch Stop block until the returned func is called.
func (s *fakeLocationSource) holdStops() func() {
	gate := make(chan struct{})
	s.mu.Lock()
	s.stopGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (s *fakeLocationSource) stoppingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *fakeLocationSource) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeWatch struct {
	source *fakeLocationSource
	once   sync.Once
}

func (w *fakeWatch) Stop() error {
	w.source.mu.Lock()
	w.source.stopping++
	gate := w.source.stopGate
	w.source.mu.Unlock()
	if gate != nil {
		<-gate
	}

	w.once.Do(func() {
		w.source.mu.Lock()
		defer w.source.mu.Unlock()
		w.source.stops++
		w.source.onSample = nil
		w.source.onError = nil
	})
	return nil
}

// permissionAwareSource reports a fixed permission state without prompting.
type permissionAwareSource struct {
	*fakeLocationSource
}

func (s permissionAwareSource) Permission(context.Context) (domain.PermissionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission, nil
}

type fakeBilling struct {
	mu             sync.Mutex
	checkAndCharge func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error)
	fetchBalance   func(context.Context) (domain.AccountBalance, error)
	seen           []domain.ChargeEvaluationRequest
	balanceCalls   int
}

func (b *fakeBilling) CheckAndCharge(ctx context.Context, req domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
	b.mu.Lock()
	b.seen = append(b.seen, req)
	fn := b.checkAndCharge
	b.mu.Unlock()

	if fn == nil {
		return domain.ChargeEvaluationResult{}, nil
	}
	return fn(ctx, req)
}

func (b *fakeBilling) FetchBalance(ctx context.Context) (domain.AccountBalance, error) {
	b.mu.Lock()
	b.balanceCalls++
	fn := b.fetchBalance
	b.mu.Unlock()

	if fn == nil {
		return domain.AccountBalance{}, errors.New("unexpected balance fetch")
	}
	return fn(ctx)
}

func (b *fakeBilling) respond(result domain.ChargeEvaluationResult, err error) {
	b.setCheckAndCharge(func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
		return result, err
	})
}

func (b *fakeBilling) setCheckAndCharge(fn func(context.Context, domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkAndCharge = fn
}

func (b *fakeBilling) setFetchBalance(fn func(context.Context) (domain.AccountBalance, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchBalance = fn
}

func (b *fakeBilling) requests() []domain.ChargeEvaluationRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ChargeEvaluationRequest(nil), b.seen...)
}

func (b *fakeBilling) balanceCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balanceCalls
}

type fakeSession struct {
	mu        sync.Mutex
	state     domain.SessionState
	listeners []SessionListener
	expired   int
}

func (s *fakeSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) OnChange(listener SessionListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
	return func() {}
}

func (s *fakeSession) Expire(context.Context) {
	s.mu.Lock()
	s.expired++
	s.mu.Unlock()

	s.set(domain.AnonymousSession())
}

func (s *fakeSession) set(state domain.SessionState) {
	s.mu.Lock()
	s.state = state
	listeners := append([]SessionListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(state)
	}
}

func (s *fakeSession) expireCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

type memoryDeviceState struct {
	mu      sync.Mutex
	sample  domain.LocationSample
	has     bool
	profile domain.UserProfile
	saved   bool
}

func (m *memoryDeviceState) LoadLastLocation(context.Context) (domain.LocationSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.has {
		return domain.LocationSample{}, domain.ErrNoLastLocation
	}
	return m.sample, nil
}

func (m *memoryDeviceState) SaveLastLocation(_ context.Context, sample domain.LocationSample) error {
	m.store(sample)
	return nil
}

func (m *memoryDeviceState) LoadProfile(context.Context) (domain.UserProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, m.saved, nil
}

func (m *memoryDeviceState) SaveProfile(_ context.Context, profile domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = profile
	m.saved = true
	return nil
}

func (m *memoryDeviceState) ClearProfile(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = domain.UserProfile{}
	m.saved = false
	return nil
}

func (m *memoryDeviceState) store(sample domain.LocationSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sample = sample
	m.has = true
}

func (m *memoryDeviceState) last() (domain.LocationSample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sample, m.has
}
