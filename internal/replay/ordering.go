package replay

import (
	"fmt"
	"sort"

	"pool-analytics-lab/internal/domain"
)

// SortEvents orders events by (block ASC, tx_index ASC, log_index ASC, type ASC).
// Type is a tie-breaker when the ordinal is equal.
func SortEvents(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return CompareEvents(events[i], events[j]) < 0
	})
}

// MergeEvents combines event streams into one sorted stream.
func MergeEvents(streams ...[]*domain.Event) []*domain.Event {
	var n int
	for _, s := range streams {
		n += len(s)
	}
	events := make([]*domain.Event, 0, n)
	for _, s := range streams {
		events = append(events, s...)
	}
	SortEvents(events)
	return events
}

// ValidateOrder returns ErrInvalidOrdering unless ordinals strictly increase.
func ValidateOrder(events []*domain.Event) error {
	for i := 1; i < len(events); i++ {
		if events[i].Ordinal.Compare(events[i-1].Ordinal) <= 0 {
			return fmt.Errorf("event %d at %d/%d/%d: %w", i,
				events[i].Block, events[i].TxIndex, events[i].LogIndex, ErrInvalidOrdering)
		}
	}
	return nil
}

// CompareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func CompareEvents(a, b *domain.Event) int {
	if c := a.Ordinal.Compare(b.Ordinal); c != 0 {
		return c
	}
	if a.Type != b.Type {
		if a.Type < b.Type {
			return -1
		}
		return 1
	}
	return 0
}
