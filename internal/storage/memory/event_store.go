package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[domain.Ordinal]*domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[domain.Ordinal]*domain.Event),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if exists.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if e == nil || e.Type == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.Ordinal]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[e.Ordinal] = cloneEvent(e)
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[domain.Ordinal]struct{}, len(events))

	// First pass: check for duplicates (existing + intra-batch)
	for _, e := range events {
		if e == nil || e.Type == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.Ordinal]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.Ordinal]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.Ordinal] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range events {
		s.data[e.Ordinal] = cloneEvent(e)
	}

	return nil
}

// GetByBlockRange retrieves events with block in [from, to] (inclusive).
func (s *EventStore) GetByBlockRange(_ context.Context, from, to uint64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.Block >= from && e.Block <= to {
			result = append(result, cloneEvent(e))
		}
	}
	sortByOrdinal(result)
	return result, nil
}

// GetAll retrieves every event ordered by ordinal ASC.
func (s *EventStore) GetAll(_ context.Context) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Event, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, cloneEvent(e))
	}
	sortByOrdinal(result)
	return result, nil
}

// Last returns the highest stored event. Returns ErrNotFound if empty.
func (s *EventStore) Last(_ context.Context) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *domain.Event
	for _, e := range s.data {
		if last == nil || e.Ordinal.Compare(last.Ordinal) > 0 {
			last = e
		}
	}
	if last == nil {
		return nil, storage.ErrNotFound
	}
	return cloneEvent(last), nil
}

func sortByOrdinal(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Ordinal.Compare(events[j].Ordinal) < 0
	})
}

// cloneEvent copies the event and its payload so callers cannot mutate stored state.
func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	if e.PoolRegistered != nil {
		p := *e.PoolRegistered
		p.Assets = append([]common.Address(nil), e.PoolRegistered.Assets...)
		p.Weights = append([]decimal.Decimal(nil), e.PoolRegistered.Weights...)
		c.PoolRegistered = &p
	}
	if e.Swap != nil {
		p := *e.Swap
		c.Swap = &p
	}
	if e.BalanceChange != nil {
		p := *e.BalanceChange
		p.Deltas = append([]domain.AssetDelta(nil), e.BalanceChange.Deltas...)
		c.BalanceChange = &p
	}
	if e.ShareTransfer != nil {
		p := *e.ShareTransfer
		c.ShareTransfer = &p
	}
	if e.SwapFeeChange != nil {
		p := *e.SwapFeeChange
		c.SwapFeeChange = &p
	}
	return &c
}

var _ storage.EventStore = (*EventStore)(nil)
