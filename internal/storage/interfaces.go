package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"pool-analytics-lab/internal/domain"
)

// Record is one encoded entity.
type Record struct {
	Kind domain.Kind
	ID   string
	Data []byte
}

// EntityStore provides keyed access to encoded entities.
// Entities are only ever inserted or overwritten, never deleted.
type EntityStore interface {
	// Get returns the encoded entity. Returns ErrNotFound if not exists.
	Get(ctx context.Context, kind domain.Kind, id string) ([]byte, error)

	// Commit upserts all records atomically: either every record is written or none is.
	Commit(ctx context.Context, records []Record) error

	// List returns every record of a kind, ordered by id ASC.
	List(ctx context.Context, kind domain.Kind) ([]Record, error)
}

// EventStore provides access to the append-only ledger_events log.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if (block, tx_index, log_index) exists.
	Insert(ctx context.Context, e *domain.Event) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByBlockRange retrieves events with block in [from, to] (inclusive), ordered by ordinal ASC.
	GetByBlockRange(ctx context.Context, from, to uint64) ([]*domain.Event, error)

	// GetAll retrieves every event ordered by ordinal ASC.
	GetAll(ctx context.Context) ([]*domain.Event, error)

	// Last returns the highest stored event. Returns ErrNotFound if the log is empty.
	Last(ctx context.Context) (*domain.Event, error)
}

// HistoryStore provides access to immutable price and liquidity history.
type HistoryStore interface {
	// InsertPriceObservations adds observations. Fails entire batch on duplicate id.
	InsertPriceObservations(ctx context.Context, obs []*domain.PriceObservation) error

	// InsertLiquiditySnapshots adds snapshots. Fails entire batch on duplicate id.
	InsertLiquiditySnapshots(ctx context.Context, snaps []*domain.LiquiditySnapshot) error

	// GetPriceObservations retrieves observations of asset quoted in pricingAsset, ordered by block ASC.
	GetPriceObservations(ctx context.Context, asset, pricingAsset common.Address) ([]*domain.PriceObservation, error)

	// GetLiquiditySnapshots retrieves a pool's snapshots ordered by block ASC.
	GetLiquiditySnapshots(ctx context.Context, pool common.Address) ([]*domain.LiquiditySnapshot, error)
}
