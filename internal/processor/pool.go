package processor

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
)

var one = decimal.NewFromInt(1)

func (p *Processor) handlePoolRegistered(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	pr := ev.PoolRegistered

	weights := pr.Weights
	if len(weights) > 0 && !domain.ValidWeights(weights, len(pr.Assets)) {
		p.logger.Warn("registration weights ignored: not normalized",
			zap.String("pool", domain.AddrID(pr.Pool)),
			zap.Int("weights", len(weights)),
			zap.Int("assets", len(pr.Assets)),
		)
		weights = nil
	}

	pool, created, err := registry.GetOrCreate(ctx, tx, domain.AddrID(pr.Pool), func() *domain.Pool {
		return &domain.Pool{
			Address:          pr.Pool,
			PoolType:         pr.PoolType,
			Factory:          pr.Factory,
			Assets:           append([]common.Address(nil), pr.Assets...),
			Weights:          append([]decimal.Decimal(nil), weights...),
			SwapFee:          pr.SwapFee,
			CreatedBlock:     ev.Block,
			CreatedTimestamp: ev.Timestamp,
		}
	})
	if err != nil {
		return "", err
	}
	if !created {
		p.logger.Debug("pool already registered", zap.String("pool", domain.AddrID(pr.Pool)))
		return "", nil
	}

	for _, addr := range pool.Assets {
		if _, err := p.ensureAsset(ctx, tx, addr, ev); err != nil {
			return "", err
		}
		if _, err := p.ensurePoolAsset(ctx, tx, pool, addr); err != nil {
			return "", err
		}
	}

	if err := savePool(tx, pool, ev.Timestamp); err != nil {
		return "", err
	}
	return "", p.updateGlobal(ctx, tx, ev.Timestamp, func(g *domain.GlobalTotal) {
		g.PoolCount++
	})
}

func (p *Processor) handleSwapFeeChange(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	sf := ev.SwapFeeChange

	pool, err := p.loadPool(ctx, tx, sf.Pool)
	if err != nil {
		return "", err
	}
	if pool == nil {
		return ReasonUnknownPool, nil
	}

	pool.SwapFee = sf.SwapFee
	return "", tx.Upsert(pool)
}

// handleShareTransfer moves pool shares between holders. The zero address mints and burns.
func (p *Processor) handleShareTransfer(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	st := ev.ShareTransfer

	pool, err := p.loadPool(ctx, tx, st.Pool)
	if err != nil {
		return "", err
	}
	if pool == nil {
		return ReasonUnknownPool, nil
	}

	value := domain.ScaleAmount(st.Value, p.cfg.ShareDecimals)
	var zero common.Address

	if st.From == zero {
		pool.TotalShares = pool.TotalShares.Add(value)
	} else {
		share, _, err := p.loadShare(ctx, tx, pool.Address, st.From)
		if err != nil {
			return "", err
		}
		before := share.Balance
		share.Balance = share.Balance.Sub(value)
		if share.Balance.IsNegative() {
			return ReasonNegativeBalance, nil
		}
		if before.IsPositive() && share.Balance.IsZero() {
			pool.HoldersCount--
		}
		if err := tx.Upsert(share); err != nil {
			return "", err
		}
	}

	if st.To == zero {
		pool.TotalShares = pool.TotalShares.Sub(value)
		if pool.TotalShares.IsNegative() {
			return ReasonNegativeBalance, nil
		}
	} else {
		share, _, err := p.loadShare(ctx, tx, pool.Address, st.To)
		if err != nil {
			return "", err
		}
		before := share.Balance
		share.Balance = share.Balance.Add(value)
		if before.IsZero() && share.Balance.IsPositive() {
			pool.HoldersCount++
		}
		if err := tx.Upsert(share); err != nil {
			return "", err
		}
	}

	return "", savePool(tx, pool, ev.Timestamp)
}

func (p *Processor) loadShare(ctx context.Context, tx *registry.Tx, pool, holder common.Address) (*domain.PoolShare, bool, error) {
	return registry.GetOrCreate(ctx, tx, domain.PoolShareID(pool, holder), func() *domain.PoolShare {
		return &domain.PoolShare{Pool: pool, Holder: holder}
	})
}

func (p *Processor) handleAmpUpdateStarted(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	au := ev.AmpUpdateStarted

	pool, err := p.loadPool(ctx, tx, au.Pool)
	if err != nil {
		return "", err
	}
	if pool == nil {
		return ReasonUnknownPool, nil
	}

	return "", tx.Upsert(&domain.AmpUpdate{
		TxHash:             ev.TxHash,
		LogIndex:           ev.LogIndex,
		Pool:               au.Pool,
		Block:              ev.Block,
		ScheduledTimestamp: ev.Timestamp,
		StartTimestamp:     au.StartTime,
		EndTimestamp:       au.EndTime,
		StartAmp:           au.StartValue,
		EndAmp:             au.EndValue,
	})
}

// handleAmpUpdateStopped records the stop as a zero-length update and pins the
// pool's amplification at the reported value.
func (p *Processor) handleAmpUpdateStopped(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	as := ev.AmpUpdateStopped

	pool, err := p.loadPool(ctx, tx, as.Pool)
	if err != nil {
		return "", err
	}
	if pool == nil {
		return ReasonUnknownPool, nil
	}

	if err := tx.Upsert(&domain.AmpUpdate{
		TxHash:             ev.TxHash,
		LogIndex:           ev.LogIndex,
		Pool:               as.Pool,
		Block:              ev.Block,
		ScheduledTimestamp: ev.Timestamp,
		StartTimestamp:     ev.Timestamp,
		EndTimestamp:       ev.Timestamp,
		StartAmp:           as.CurrentValue,
		EndAmp:             as.CurrentValue,
	}); err != nil {
		return "", err
	}

	amp := as.CurrentValue
	pool.Amp = &amp
	return "", tx.Upsert(pool)
}
