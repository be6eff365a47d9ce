package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const insertEventQuery = `
	INSERT INTO ledger_events (
		block, tx_index, log_index, event_type, timestamp, tx_hash, pool, payload
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Insert adds a new event. Returns ErrDuplicateKey if (block, tx_index, log_index) exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	args, err := eventArgs(e)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertEventQuery, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		args, err := eventArgs(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertEventQuery, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByBlockRange retrieves events with block in [from, to] (inclusive).
func (s *EventStore) GetByBlockRange(ctx context.Context, from, to uint64) ([]*domain.Event, error) {
	query := `
		SELECT payload FROM ledger_events
		WHERE block >= $1 AND block <= $2
		ORDER BY block ASC, tx_index ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("get events by block range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetAll retrieves every event ordered by ordinal ASC.
func (s *EventStore) GetAll(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT payload FROM ledger_events
		ORDER BY block ASC, tx_index ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Last returns the highest stored event. Returns ErrNotFound if the log is empty.
func (s *EventStore) Last(ctx context.Context) (*domain.Event, error) {
	query := `
		SELECT payload FROM ledger_events
		ORDER BY block DESC, tx_index DESC, log_index DESC
		LIMIT 1
	`

	var payload []byte
	if err := s.pool.QueryRow(ctx, query).Scan(&payload); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last event: %w", err)
	}

	var e domain.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return &e, nil
}

func eventArgs(e *domain.Event) ([]any, error) {
	if e == nil || e.Type == "" {
		return nil, storage.ErrInvalidInput
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}
	return []any{
		int64(e.Block),
		int64(e.TxIndex),
		int64(e.LogIndex),
		string(e.Type),
		e.Timestamp,
		e.TxHash.Hex(),
		domain.AddrID(e.Pool()),
		payload,
	}, nil
}

// scanEvents decodes payload rows into events.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		var e domain.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode event payload: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
