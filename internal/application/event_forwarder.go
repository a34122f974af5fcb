package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/zonecharge/internal/ports"
)

const (
	TopicBalanceUpdated    = "zonecharge.balance.updated"
	TopicZoneEntered       = "zonecharge.zone.entered"
	TopicZoneLeft          = "zonecharge.zone.left"
	TopicCoordinatorStatus = "zonecharge.coordinator.status"

	publishTimeout = 2 * time.Second
)

type BalanceEvent struct {
	Balance    string    `json:"balance"`
	Optimistic bool      `json:"optimistic"`
	At         time.Time `json:"at"`
}

type ZoneEvent struct {
	ZoneID   int64     `json:"zone_id"`
	Name     string    `json:"name"`
	Amount   string    `json:"amount,omitempty"`
	RateUnit string    `json:"rate_unit,omitempty"`
	At       time.Time `json:"at"`
}

type CoordinatorEvent struct {
	State     CoordinatorState `json:"state"`
	LastError string           `json:"last_error,omitempty"`
}

// EventForwarder republishes balance, zone and coordinator changes for other
// local consumers. Publish failures are logged and never reach the caller.
type EventForwarder struct {
	publisher ports.EventPublisher
	logger    *slog.Logger

	mu        sync.Mutex
	last      BalanceSnapshot
	hasLast   bool
	lastState CoordinatorState
}

func NewEventForwarder(publisher ports.EventPublisher, logger *slog.Logger) *EventForwarder {
	if logger == nil {
		logger = slog.Default()
	}

	return &EventForwarder{publisher: publisher, logger: logger}
}

// Bind subscribes the forwarder to store and coordinator. The returned func
// removes both subscriptions.
func (f *EventForwarder) Bind(store *BalanceStore, coordinator *Coordinator) func() {
	unsubscribeStore := store.Subscribe(f.HandleSnapshot)
	unsubscribeCoordinator := func() {}
	if coordinator != nil {
		unsubscribeCoordinator = coordinator.OnStateChange(f.HandleStatus)
	}

	return func() {
		unsubscribeStore()
		unsubscribeCoordinator()
	}
}

func (f *EventForwarder) HandleSnapshot(snap BalanceSnapshot) {
	f.mu.Lock()
	prev, hadPrev := f.last, f.hasLast
	f.last, f.hasLast = copySnapshot(snap), true
	f.mu.Unlock()

	if snap.BalanceKnown && (!hadPrev || !prev.BalanceKnown || !prev.Balance.Equal(snap.Balance) || prev.Optimistic != snap.Optimistic) {
		f.publish(TopicBalanceUpdated, BalanceEvent{
			Balance:    snap.Balance.String(),
			Optimistic: snap.Optimistic,
			At:         snap.UpdatedAt,
		})
	}

	var prevZone *ZoneDisplay
	if hadPrev {
		prevZone = prev.Zone
	}

	switch {
	case snap.Zone != nil && (prevZone == nil || prevZone.ZoneID != snap.Zone.ZoneID || prevZone.Name != snap.Zone.Name):
		f.publish(TopicZoneEntered, ZoneEvent{
			ZoneID:   snap.Zone.ZoneID,
			Name:     snap.Zone.Name,
			Amount:   snap.Zone.Amount.StringFixed(2),
			RateUnit: string(snap.Zone.RateUnit),
			At:       snap.UpdatedAt,
		})
	case snap.Zone == nil && prevZone != nil:
		f.publish(TopicZoneLeft, ZoneEvent{
			ZoneID: prevZone.ZoneID,
			Name:   prevZone.Name,
			At:     snap.UpdatedAt,
		})
	}
}

func (f *EventForwarder) HandleStatus(status CoordinatorStatus) {
	f.mu.Lock()
	changed := f.lastState != status.State
	f.lastState = status.State
	f.mu.Unlock()

	if !changed {
		return
	}

	event := CoordinatorEvent{State: status.State}
	if status.LastError != nil {
		event.LastError = status.LastError.Error()
	}
	f.publish(TopicCoordinatorStatus, event)
}

func (f *EventForwarder) publish(topic string, event any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := f.publisher.Publish(ctx, topic, event); err != nil {
		f.logger.Warn("events: publish failed", "topic", topic, "error", err)
	}
}
