package application

import (
	"errors"
	"testing"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports/mocks"
	"github.com/stretchr/testify/mock"
)

func TestEventForwarderPublishesZoneTransitions(t *testing.T) {
	publisher := mocks.NewMockEventPublisher(t)
	store := NewBalanceStore(nil)
	forwarder := NewEventForwarder(publisher, discardLogger())
	forwarder.Bind(store, nil)

	publisher.EXPECT().Publish(mockAnyContext(), TopicBalanceUpdated, mock.MatchedBy(func(e BalanceEvent) bool {
		return e.Balance == "9.50" && !e.Optimistic
	})).Return(nil).Once()
	publisher.EXPECT().Publish(mockAnyContext(), TopicZoneEntered, mock.MatchedBy(func(e ZoneEvent) bool {
		return e.ZoneID == 4 && e.Name == "Downtown" && e.Amount == "0.50" && e.RateUnit == "hour"
	})).Return(nil).Once()

	store.ApplyResult(domain.ChargeEvaluationResult{
		MatchedZone: &domain.ZoneInfo{ID: 4, Name: "Downtown"},
		Transaction: &domain.TransactionInfo{Amount: dec("0.50"), RateUnit: domain.RateHour},
		Balance:     balanceOf("9.50"),
	})

	publisher.EXPECT().Publish(mockAnyContext(), TopicZoneLeft, mock.MatchedBy(func(e ZoneEvent) bool {
		return e.ZoneID == 4 && e.Name == "Downtown"
	})).Return(nil).Once()

	store.ApplyResult(domain.ChargeEvaluationResult{})
}

func TestEventForwarderSkipsUnchangedBalance(t *testing.T) {
	publisher := mocks.NewMockEventPublisher(t)
	store := NewBalanceStore(nil)
	NewEventForwarder(publisher, discardLogger()).Bind(store, nil)

	publisher.EXPECT().Publish(mockAnyContext(), TopicBalanceUpdated, mock.Anything).Return(nil).Once()

	store.ApplyBalance(domain.NewAccountBalance(dec("5")))
	store.ApplyBalance(domain.NewAccountBalance(dec("5.00")))
	store.ReportFailure(errors.New("timeout"))
}

func TestEventForwarderSwallowsPublishErrors(t *testing.T) {
	publisher := mocks.NewMockEventPublisher(t)
	forwarder := NewEventForwarder(publisher, discardLogger())

	publisher.EXPECT().Publish(mockAnyContext(), TopicCoordinatorStatus, CoordinatorEvent{
		State:     StatePermissionDenied,
		LastError: "location permission denied",
	}).Return(errors.New("nats: connection closed")).Once()

	forwarder.HandleStatus(CoordinatorStatus{State: StatePermissionDenied, LastError: domain.ErrPermissionDenied})
	forwarder.HandleStatus(CoordinatorStatus{State: StatePermissionDenied, LastError: domain.ErrPermissionDenied})
}
