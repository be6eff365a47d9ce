package processor

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
)

// ensureAsset returns the Asset for addr, creating it with fetched metadata on first reference.
func (p *Processor) ensureAsset(ctx context.Context, tx *registry.Tx, addr common.Address, ev *domain.Event) (*domain.Asset, error) {
	asset, created, err := registry.GetOrCreate(ctx, tx, domain.AddrID(addr), func() *domain.Asset {
		md, ok := p.meta.TryFetch(ctx, addr)
		if !ok {
			p.logger.Debug("asset metadata unavailable, using defaults",
				zap.String("asset", domain.AddrID(addr)),
				zap.Uint64("block", ev.Block),
			)
		}
		return &domain.Asset{
			Address:      addr,
			Symbol:       md.Symbol,
			Name:         md.Name,
			Decimals:     md.DecimalsOr(p.cfg.DefaultDecimals),
			CreatedBlock: ev.Block,
		}
	})
	if err != nil {
		return nil, err
	}
	if created {
		if err := p.updateGlobal(ctx, tx, ev.Timestamp, func(g *domain.GlobalTotal) {
			g.AssetCount++
		}); err != nil {
			return nil, err
		}
	}
	return asset, nil
}

// ensurePoolAsset returns the PoolAsset for (pool, asset), creating it with a zero balance.
func (p *Processor) ensurePoolAsset(ctx context.Context, tx *registry.Tx, pool *domain.Pool, asset common.Address) (*domain.PoolAsset, error) {
	pa, _, err := registry.GetOrCreate(ctx, tx, domain.PoolAssetID(pool.Address, asset), func() *domain.PoolAsset {
		fresh := &domain.PoolAsset{Pool: pool.Address, Asset: asset, PriceRate: one}
		if w, ok := pool.WeightOf(asset); ok {
			fresh.Weight = &w
		}
		return fresh
	})
	return pa, err
}

func (p *Processor) loadPool(ctx context.Context, tx *registry.Tx, addr common.Address) (*domain.Pool, error) {
	return registry.Load[domain.Pool](ctx, tx, domain.AddrID(addr))
}

// updateGlobal applies fn to the global totals and refreshes the day's global snapshot.
func (p *Processor) updateGlobal(ctx context.Context, tx *registry.Tx, ts int64, fn func(g *domain.GlobalTotal)) error {
	g, _, err := registry.GetOrCreate(ctx, tx, domain.GlobalID, domain.NewGlobalTotal)
	if err != nil {
		return err
	}
	fn(g)
	if err := tx.Upsert(g); err != nil {
		return err
	}
	return tx.Upsert(domain.NewGlobalDailySnapshot(g, ts))
}

// savePool stages pool and the day's pool snapshot.
func savePool(tx *registry.Tx, pool *domain.Pool, ts int64) error {
	if err := tx.Upsert(pool); err != nil {
		return err
	}
	return tx.Upsert(domain.NewPoolDailySnapshot(pool, ts))
}

// saveAsset stages asset and the day's asset snapshot.
func saveAsset(tx *registry.Tx, asset *domain.Asset, ts int64) error {
	if err := tx.Upsert(asset); err != nil {
		return err
	}
	return tx.Upsert(domain.NewAssetDailySnapshot(asset, ts))
}

// refreshPoolSnapshot re-reads the pool after the accountant may have changed it.
func (p *Processor) refreshPoolSnapshot(ctx context.Context, tx *registry.Tx, addr common.Address, ts int64) error {
	pool, err := p.loadPool(ctx, tx, addr)
	if err != nil || pool == nil {
		return err
	}
	return tx.Upsert(domain.NewPoolDailySnapshot(pool, ts))
}
