package application

import (
	"sync"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
	"github.com/shopspring/decimal"
)

// ZoneDisplay is what the user sees while a charge is being applied.
type ZoneDisplay struct {
	ZoneID   int64
	Name     string
	Amount   decimal.Decimal
	RateUnit domain.RateUnit
}

type BalanceSnapshot struct {
	Balance      domain.AccountBalance
	BalanceKnown bool
	// Optimistic is set while Balance is a local estimate awaiting server truth.
	Optimistic bool
	Zone       *ZoneDisplay
	Advisory   string
	UpdatedAt  time.Time
}

type BalanceListener func(BalanceSnapshot)

// BalanceStore is the single writer of the account balance and zone display.
type BalanceStore struct {
	// writeMu serializes updates with their notifications so listeners observe
	// snapshots in order. Listeners must not write to the store.
	writeMu   sync.Mutex
	mu        sync.Mutex
	snapshot  BalanceSnapshot
	listeners map[int]BalanceListener
	nextID    int
	clock     ports.Clock
}

func NewBalanceStore(clock ports.Clock) *BalanceStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &BalanceStore{
		listeners: map[int]BalanceListener{},
		clock:     clock,
	}
}

// ApplyResult reconciles one evaluation result. A balance in the result always
// overwrites the current value, optimistic or not.
func (s *BalanceStore) ApplyResult(result domain.ChargeEvaluationResult) {
	s.update(func(snap *BalanceSnapshot) {
		if result.Balance != nil {
			snap.Balance = domain.NewAccountBalance(result.Balance.Amount)
			snap.BalanceKnown = true
			snap.Optimistic = false
		}

		if result.Transaction != nil {
			snap.Zone = zoneDisplayFor(result)
		} else {
			snap.Zone = nil
		}
		snap.Advisory = ""
	})
}

// ApplyOptimisticCharge bridges the gap between a confirmed transaction and the
// next authoritative balance.
func (s *BalanceStore) ApplyOptimisticCharge(amount decimal.Decimal) {
	s.update(func(snap *BalanceSnapshot) {
		if !snap.BalanceKnown {
			return
		}
		snap.Balance = snap.Balance.Sub(amount)
		snap.Optimistic = true
	})
}

func (s *BalanceStore) ApplyBalance(balance domain.AccountBalance) {
	s.update(func(snap *BalanceSnapshot) {
		snap.Balance = domain.NewAccountBalance(balance.Amount)
		snap.BalanceKnown = true
		snap.Optimistic = false
	})
}

// ReportFailure records an advisory for a failed evaluation. Balance and zone
// display keep their last known good values.
func (s *BalanceStore) ReportFailure(err error) {
	if err == nil {
		return
	}

	s.update(func(snap *BalanceSnapshot) {
		snap.Advisory = err.Error()
	})
}

func (s *BalanceStore) Reset() {
	s.update(func(snap *BalanceSnapshot) {
		*snap = BalanceSnapshot{}
	})
}

// TrackSession seeds the balance from the session profile on login and clears
// the store on logout.
func (s *BalanceStore) TrackSession(gate *SessionGate) func() {
	return gate.OnChange(func(state domain.SessionState) {
		if !state.IsAuthenticated {
			s.Reset()
			return
		}
		if profile := gate.Profile(); profile.Balance != nil {
			s.ApplyBalance(*profile.Balance)
		}
	})
}

func (s *BalanceStore) Get() domain.AccountBalance {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot.Balance
}

func (s *BalanceStore) Snapshot() BalanceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copySnapshot(s.snapshot)
}

// Subscribe registers listener for every change. The returned func removes it.
func (s *BalanceStore) Subscribe(listener BalanceListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *BalanceStore) update(mutate func(*BalanceSnapshot)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	mutate(&s.snapshot)
	s.snapshot.UpdatedAt = s.clock.Now()
	snap := copySnapshot(s.snapshot)
	listeners := make([]BalanceListener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(snap)
	}
}

func zoneDisplayFor(result domain.ChargeEvaluationResult) *ZoneDisplay {
	zone := &ZoneDisplay{
		Amount:   result.Transaction.Amount,
		RateUnit: result.Transaction.RateUnit,
	}
	if result.MatchedZone != nil {
		zone.ZoneID = result.MatchedZone.ID
		zone.Name = result.MatchedZone.Name
	}
	if zone.Name == "" && result.ChargingLogic != nil {
		zone.Name = result.ChargingLogic.LocationName
	}
	if zone.Name == "" {
		zone.Name = "Unknown"
	}

	return zone
}

func copySnapshot(snap BalanceSnapshot) BalanceSnapshot {
	if snap.Zone != nil {
		zone := *snap.Zone
		snap.Zone = &zone
	}
	return snap
}
