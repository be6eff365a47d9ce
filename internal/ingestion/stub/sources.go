package stub

import (
	"context"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/ingestion"
)

// Source returns fixed in-memory events for testing.
// Events can be intentionally unordered to test sorting.
// Implements ingestion.BatchSource and ingestion.StreamSource.
type Source struct {
	events []*domain.Event
	acked  []domain.Ordinal
}

// NewSource creates a new stub source with the given events.
func NewSource(events []*domain.Event) *Source {
	return &Source{events: events}
}

// Fetch returns copies of the events in the block range.
func (s *Source) Fetch(_ context.Context, from, to uint64) ([]*domain.Event, error) {
	var result []*domain.Event
	for _, ev := range s.events {
		if ev.Block >= from && ev.Block <= to {
			copy := *ev
			result = append(result, &copy)
		}
	}
	return result, nil
}

// Subscribe streams every event in slice order, then closes the channel.
func (s *Source) Subscribe(ctx context.Context) (<-chan *ingestion.Message, error) {
	ch := make(chan *ingestion.Message, len(s.events))
	for _, ev := range s.events {
		copy := *ev
		ord := copy.Ordinal
		ch <- ingestion.NewMessage(&copy, func(context.Context) error {
			s.acked = append(s.acked, ord)
			return nil
		})
	}
	close(ch)
	return ch, nil
}

// Acked returns the ordinals acknowledged so far, in ack order.
func (s *Source) Acked() []domain.Ordinal {
	return s.acked
}
