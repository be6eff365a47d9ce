package ingestion

import (
	"context"

	"pool-analytics-lab/internal/domain"
)

// BatchSource provides decoded ledger events for a block range.
type BatchSource interface {
	// Fetch returns events with block in [from, to] (inclusive).
	// Events may be unordered; Manager enforces deterministic ordering.
	Fetch(ctx context.Context, from, to uint64) ([]*domain.Event, error)
}

// StreamSource delivers ledger events as they become available.
// The channel is closed when the source is exhausted or ctx is cancelled.
type StreamSource interface {
	Subscribe(ctx context.Context) (<-chan *Message, error)
}

// Message is one delivered event. Ack marks it as durably processed so an
// at-least-once source does not redeliver it.
type Message struct {
	Event *domain.Event
	ack   func(ctx context.Context) error
}

// NewMessage wraps an event with an acknowledgement callback. ack may be nil.
func NewMessage(ev *domain.Event, ack func(ctx context.Context) error) *Message {
	return &Message{Event: ev, ack: ack}
}

// Ack acknowledges the message.
func (m *Message) Ack(ctx context.Context) error {
	if m.ack == nil {
		return nil
	}
	return m.ack(ctx)
}
