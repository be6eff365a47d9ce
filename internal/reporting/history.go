package reporting

import (
	"context"
	"fmt"
	"sort"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
	"pool-analytics-lab/internal/storage"
)

// historyBatchSize bounds rows per insert.
const historyBatchSize = 1000

// HistoryExport counts rows written by ExportHistory.
type HistoryExport struct {
	PriceObservations  int `json:"price_observations"`
	LiquiditySnapshots int `json:"liquidity_snapshots"`
}

// ExportHistory copies price observations and liquidity snapshots recorded
// after sinceBlock from the entity store into history, ordered by block.
// A repeated export of the same rows fails with storage.ErrDuplicateKey.
func ExportHistory(ctx context.Context, entities storage.EntityStore, history storage.HistoryStore, sinceBlock uint64) (HistoryExport, error) {
	var out HistoryExport

	obs, err := registry.List[domain.PriceObservation](ctx, entities)
	if err != nil {
		return out, fmt.Errorf("list price observations: %w", err)
	}
	obs = filterSince(obs, sinceBlock, func(o *domain.PriceObservation) uint64 { return o.Block })
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Block < obs[j].Block })
	for start := 0; start < len(obs); start += historyBatchSize {
		batch := obs[start:min(start+historyBatchSize, len(obs))]
		if err := history.InsertPriceObservations(ctx, batch); err != nil {
			return out, fmt.Errorf("insert price observations: %w", err)
		}
		out.PriceObservations += len(batch)
	}

	snaps, err := registry.List[domain.LiquiditySnapshot](ctx, entities)
	if err != nil {
		return out, fmt.Errorf("list liquidity snapshots: %w", err)
	}
	snaps = filterSince(snaps, sinceBlock, func(s *domain.LiquiditySnapshot) uint64 { return s.Block })
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Block < snaps[j].Block })
	for start := 0; start < len(snaps); start += historyBatchSize {
		batch := snaps[start:min(start+historyBatchSize, len(snaps))]
		if err := history.InsertLiquiditySnapshots(ctx, batch); err != nil {
			return out, fmt.Errorf("insert liquidity snapshots: %w", err)
		}
		out.LiquiditySnapshots += len(batch)
	}
	return out, nil
}

func filterSince[T any](items []T, since uint64, block func(T) uint64) []T {
	if since == 0 {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if block(it) > since {
			out = append(out, it)
		}
	}
	return out
}
