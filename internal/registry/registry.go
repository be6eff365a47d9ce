// Package registry is the entity registry every derived component reads and writes through.
//
// Work for one event happens inside a Tx: reads see the committed state plus the
// Tx's own pending writes, and Commit hands every pending record to the store in a
// single atomic call. A Tx that is never committed leaves no trace.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// Reader reads encoded entities.
type Reader interface {
	// Get returns the encoded entity and whether it exists.
	Get(ctx context.Context, kind domain.Kind, id string) ([]byte, bool, error)
}

// Registry hands out units of work over an EntityStore.
type Registry struct {
	store storage.EntityStore
}

// New creates a Registry over store.
func New(store storage.EntityStore) *Registry {
	return &Registry{store: store}
}

// Begin starts a unit of work.
func (r *Registry) Begin() *Tx {
	return &Tx{
		store:   r.store,
		pending: make(map[recordKey][]byte),
	}
}

// Reader returns a read-only view of committed state.
func (r *Registry) Reader() Reader {
	return storeReader{store: r.store}
}

// Store returns the underlying store.
func (r *Registry) Store() storage.EntityStore {
	return r.store
}

type storeReader struct {
	store storage.EntityStore
}

func (s storeReader) Get(ctx context.Context, kind domain.Kind, id string) ([]byte, bool, error) {
	data, err := s.store.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

type recordKey struct {
	kind domain.Kind
	id   string
}

// Tx buffers the writes of one event.
type Tx struct {
	store   storage.EntityStore
	pending map[recordKey][]byte
}

// Get returns the pending write for (kind, id) if any, otherwise the committed record.
func (tx *Tx) Get(ctx context.Context, kind domain.Kind, id string) ([]byte, bool, error) {
	if data, ok := tx.pending[recordKey{kind, id}]; ok {
		return data, true, nil
	}
	return storeReader{store: tx.store}.Get(ctx, kind, id)
}

// Upsert encodes e and stages it for commit.
func (tx *Tx) Upsert(e domain.Entity) error {
	id := e.EntityID()
	if id == "" {
		return fmt.Errorf("upsert %s: %w", e.EntityKind(), storage.ErrInvalidInput)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", e.EntityKind(), id, err)
	}
	tx.pending[recordKey{e.EntityKind(), id}] = data
	return nil
}

// Pending returns the number of staged records.
func (tx *Tx) Pending() int {
	return len(tx.pending)
}

// Records returns the staged records ordered by (kind, id).
func (tx *Tx) Records() []storage.Record {
	records := make([]storage.Record, 0, len(tx.pending))
	for k, data := range tx.pending {
		records = append(records, storage.Record{Kind: k.kind, ID: k.id, Data: data})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Kind != records[j].Kind {
			return records[i].Kind < records[j].Kind
		}
		return records[i].ID < records[j].ID
	})
	return records
}

// Commit writes every staged record atomically and clears the Tx.
func (tx *Tx) Commit(ctx context.Context) error {
	if len(tx.pending) == 0 {
		return nil
	}
	if err := tx.store.Commit(ctx, tx.Records()); err != nil {
		return err
	}
	tx.pending = make(map[recordKey][]byte)
	return nil
}

// Discard drops every staged record.
func (tx *Tx) Discard() {
	tx.pending = make(map[recordKey][]byte)
}

// Entity constrains a pointer-to-struct entity type for the generic helpers.
type Entity[T any] interface {
	*T
	domain.Entity
}

// Load decodes the entity with id. Returns nil if absent.
func Load[T any, PT Entity[T]](ctx context.Context, r Reader, id string) (PT, error) {
	kind := PT(new(T)).EntityKind()

	data, ok, err := r.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", kind, id, err)
	}
	if !ok {
		return nil, nil
	}

	out := PT(new(T))
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", kind, id, err)
	}
	return out, nil
}

// GetOrCreate loads the entity with id, or stages init() when absent.
// created reports whether init ran. init must return an entity whose id is id.
func GetOrCreate[T any, PT Entity[T]](ctx context.Context, tx *Tx, id string, init func() PT) (PT, bool, error) {
	existing, err := Load[T, PT](ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	fresh := init()
	if fresh.EntityID() != id {
		return nil, false, fmt.Errorf("create %s: initializer id %q != %q: %w",
			fresh.EntityKind(), fresh.EntityID(), id, storage.ErrInvalidInput)
	}
	if err := tx.Upsert(fresh); err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

// List decodes every committed entity of type T, ordered by id.
func List[T any, PT Entity[T]](ctx context.Context, store storage.EntityStore) ([]PT, error) {
	kind := PT(new(T)).EntityKind()

	records, err := store.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	out := make([]PT, 0, len(records))
	for _, r := range records {
		e := PT(new(T))
		if err := json.Unmarshal(r.Data, e); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", kind, r.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}
