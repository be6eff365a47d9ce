package memory

import (
	"context"
	"sort"
	"sync"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// EntityStore is an in-memory implementation of storage.EntityStore.
type EntityStore struct {
	mu   sync.RWMutex
	data map[domain.Kind]map[string][]byte
}

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		data: make(map[domain.Kind]map[string][]byte),
	}
}

// Get returns the encoded entity. Returns ErrNotFound if not exists.
func (s *EntityStore) Get(_ context.Context, kind domain.Kind, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[kind][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneBytes(data), nil
}

// Commit upserts all records atomically.
func (s *EntityStore) Commit(_ context.Context, records []storage.Record) error {
	if len(records) == 0 {
		return nil
	}

	// Validate before touching state so a bad record leaves nothing written
	for _, r := range records {
		if r.Kind == "" || r.ID == "" || len(r.Data) == 0 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		byID, ok := s.data[r.Kind]
		if !ok {
			byID = make(map[string][]byte)
			s.data[r.Kind] = byID
		}
		byID[r.ID] = cloneBytes(r.Data)
	}
	return nil
}

// List returns every record of a kind, ordered by id ASC.
func (s *EntityStore) List(_ context.Context, kind domain.Kind) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.data[kind]
	result := make([]storage.Record, 0, len(byID))
	for id, data := range byID {
		result = append(result, storage.Record{Kind: kind, ID: id, Data: cloneBytes(data)})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Len returns the number of stored records of a kind.
func (s *EntityStore) Len(kind domain.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[kind])
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ storage.EntityStore = (*EntityStore)(nil)
