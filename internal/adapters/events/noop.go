package events

import (
	"context"

	"github.com/bnema/zonecharge/internal/ports"
)

var _ ports.EventPublisher = (*NoopPublisher)(nil)

// NoopPublisher is used when nats.url is not configured.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
