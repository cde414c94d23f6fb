package events

import (
	"context"
)

// Publisher delivers sale events to downstream consumers (receipt printing,
// reporting). Delivery is best effort from the register's point of view.
type Publisher interface {
	PublishSaleCompleted(ctx context.Context, ev EventEnvelope) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) PublishSaleCompleted(context.Context, EventEnvelope) error { return nil }
func (NopPublisher) Close() error { return nil }
