package postgres

import (
	"context"
	"fmt"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// EntityStore implements storage.EntityStore using PostgreSQL.
type EntityStore struct {
	pool *Pool
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(pool *Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

const upsertEntityQuery = `
	INSERT INTO entities (kind, id, data, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (kind, id) DO UPDATE
	SET data = EXCLUDED.data, updated_at = now()
`

// Get returns the encoded entity. Returns ErrNotFound if not exists.
func (s *EntityStore) Get(ctx context.Context, kind domain.Kind, id string) ([]byte, error) {
	query := `SELECT data FROM entities WHERE kind = $1 AND id = $2`

	var data []byte
	err := s.pool.QueryRow(ctx, query, string(kind), id).Scan(&data)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity %s/%s: %w", kind, id, err)
	}
	return data, nil
}

// Commit upserts all records in a single transaction.
func (s *EntityStore) Commit(ctx context.Context, records []storage.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r.Kind == "" || r.ID == "" || len(r.Data) == 0 {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if _, err := tx.Exec(ctx, upsertEntityQuery, string(r.Kind), r.ID, r.Data); err != nil {
			return fmt.Errorf("upsert entity %s/%s: %w", r.Kind, r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// List returns every record of a kind, ordered by id ASC.
func (s *EntityStore) List(ctx context.Context, kind domain.Kind) ([]storage.Record, error) {
	query := `SELECT id, data FROM entities WHERE kind = $1 ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list entities %s: %w", kind, err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		r := storage.Record{Kind: kind}
		if err := rows.Scan(&r.ID, &r.Data); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}

	return records, nil
}
