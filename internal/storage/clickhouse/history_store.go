package clickhouse

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// HistoryStore implements storage.HistoryStore using ClickHouse.
type HistoryStore struct {
	conn *Conn
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(conn *Conn) *HistoryStore {
	return &HistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// InsertPriceObservations adds observations. Fails entire batch on duplicate id.
func (s *HistoryStore) InsertPriceObservations(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(obs))
	for _, o := range obs {
		if o == nil {
			return storage.ErrInvalidInput
		}
		ids = append(ids, o.EntityID())
	}
	if err := s.checkNew(ctx, "price_observations", ids); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_observations (
			id, pool, asset, pricing_asset, price, block, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.EntityID(), domain.AddrID(o.Pool), domain.AddrID(o.Asset), domain.AddrID(o.PricingAsset),
			o.Price, o.Block, o.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// InsertLiquiditySnapshots adds snapshots. Fails entire batch on duplicate id.
func (s *HistoryStore) InsertLiquiditySnapshots(ctx context.Context, snaps []*domain.LiquiditySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	ids := make([]string, 0, len(snaps))
	for _, sn := range snaps {
		if sn == nil {
			return storage.ErrInvalidInput
		}
		ids = append(ids, sn.EntityID())
	}
	if err := s.checkNew(ctx, "liquidity_snapshots", ids); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO liquidity_snapshots (
			id, pool, pricing_asset, block, timestamp, pool_value, value_usd,
			pool_total_shares, pool_share_value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sn := range snaps {
		err = batch.Append(
			sn.EntityID(), domain.AddrID(sn.Pool), domain.AddrID(sn.PricingAsset),
			sn.Block, sn.Timestamp, sn.PoolValue, sn.ValueUSD,
			sn.PoolTotalShares, sn.PoolShareValue,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetPriceObservations retrieves observations of asset in pricingAsset, ordered by block ASC.
func (s *HistoryStore) GetPriceObservations(ctx context.Context, asset, pricingAsset common.Address) ([]*domain.PriceObservation, error) {
	query := `
		SELECT pool, asset, pricing_asset, price, block, timestamp
		FROM price_observations FINAL
		WHERE asset = ? AND pricing_asset = ?
		ORDER BY block ASC, pool ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.AddrID(asset), domain.AddrID(pricingAsset))
	if err != nil {
		return nil, fmt.Errorf("query price observations: %w", err)
	}
	defer rows.Close()

	var result []*domain.PriceObservation
	for rows.Next() {
		var (
			pool, base, quote string
			price             decimal.Decimal
			block             uint64
			ts                int64
		)
		if err := rows.Scan(&pool, &base, &quote, &price, &block, &ts); err != nil {
			return nil, fmt.Errorf("scan price observation: %w", err)
		}
		result = append(result, &domain.PriceObservation{
			Pool:         common.HexToAddress(pool),
			Asset:        common.HexToAddress(base),
			PricingAsset: common.HexToAddress(quote),
			Price:        price,
			Block:        block,
			Timestamp:    ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price observations: %w", err)
	}
	return result, nil
}

// GetLiquiditySnapshots retrieves a pool's snapshots ordered by block ASC.
func (s *HistoryStore) GetLiquiditySnapshots(ctx context.Context, pool common.Address) ([]*domain.LiquiditySnapshot, error) {
	query := `
		SELECT pool, pricing_asset, block, timestamp, pool_value, value_usd,
			pool_total_shares, pool_share_value
		FROM liquidity_snapshots FINAL
		WHERE pool = ?
		ORDER BY block ASC, pricing_asset ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.AddrID(pool))
	if err != nil {
		return nil, fmt.Errorf("query liquidity snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.LiquiditySnapshot
	for rows.Next() {
		var (
			p, pricing         string
			block              uint64
			ts                 int64
			poolValue, usd     decimal.Decimal
			shares, shareValue decimal.Decimal
		)
		if err := rows.Scan(&p, &pricing, &block, &ts, &poolValue, &usd, &shares, &shareValue); err != nil {
			return nil, fmt.Errorf("scan liquidity snapshot: %w", err)
		}
		result = append(result, &domain.LiquiditySnapshot{
			Pool:            common.HexToAddress(p),
			PricingAsset:    common.HexToAddress(pricing),
			Block:           block,
			Timestamp:       ts,
			PoolValue:       poolValue,
			ValueUSD:        usd,
			PoolTotalShares: shares,
			PoolShareValue:  shareValue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liquidity snapshots: %w", err)
	}
	return result, nil
}

// checkNew rejects the batch if any id repeats within it or already exists in table.
// MergeTree does not enforce uniqueness at insert time.
func (s *HistoryStore) checkNew(ctx context.Context, table string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, exists := seen[id]; exists {
			return storage.ErrDuplicateKey
		}
		seen[id] = struct{}{}
	}

	for _, id := range ids {
		var count uint64
		row := s.conn.QueryRow(ctx, fmt.Sprintf("SELECT count() FROM %s WHERE id = ?", table), id)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if count > 0 {
			return storage.ErrDuplicateKey
		}
	}
	return nil
}
