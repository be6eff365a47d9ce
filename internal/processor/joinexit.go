package processor

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
)

// handleBalanceChange applies a join or exit. The event is a join when the sum
// of its scaled deltas is positive.
func (p *Processor) handleBalanceChange(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	bc := ev.BalanceChange

	pool, err := p.loadPool(ctx, tx, bc.Pool)
	if err != nil {
		return "", err
	}
	if pool == nil {
		return ReasonUnknownPool, nil
	}
	for _, d := range bc.Deltas {
		if !pool.HasAsset(d.Asset) {
			return ReasonUnknownAsset, nil
		}
	}

	var (
		sum      decimal.Decimal
		valueUSD decimal.Decimal
		valued   bool
		assets   = make([]common.Address, 0, len(bc.Deltas))
		amounts  = make([]decimal.Decimal, 0, len(bc.Deltas))
	)

	for _, d := range bc.Deltas {
		asset, err := p.ensureAsset(ctx, tx, d.Asset, ev)
		if err != nil {
			return "", err
		}
		pa, err := p.ensurePoolAsset(ctx, tx, pool, d.Asset)
		if err != nil {
			return "", err
		}

		amount := asset.Scale(d.Delta)
		pa.RawBalance = pa.RawBalance.Add(d.Delta)
		pa.Balance = asset.Scale(pa.RawBalance)
		if pa.RawBalance.IsNegative() {
			return ReasonNegativeBalance, nil
		}
		if err := tx.Upsert(pa); err != nil {
			return "", err
		}

		usd, ok, err := p.resolver.ValueInUSD(ctx, tx, d.Asset, amount)
		if err != nil {
			return "", err
		}
		asset.TotalBalanceNotional = asset.TotalBalanceNotional.Add(amount)
		if ok {
			asset.TotalBalanceUSD = asset.TotalBalanceUSD.Add(usd)
			valueUSD = valueUSD.Add(usd.Abs())
			valued = true
		}
		if err := saveAsset(tx, asset, ev.Timestamp); err != nil {
			return "", err
		}

		sum = sum.Add(amount)
		assets = append(assets, d.Asset)
		amounts = append(amounts, amount)
	}

	kind := domain.JoinExitExit
	if sum.IsPositive() {
		kind = domain.JoinExitJoin
		pool.JoinsCount++
	} else {
		pool.ExitsCount++
	}
	if err := tx.Upsert(pool); err != nil {
		return "", err
	}

	record := &domain.JoinExitRecord{
		TxHash:    ev.TxHash,
		LogIndex:  ev.LogIndex,
		Block:     ev.Block,
		Timestamp: ev.Timestamp,
		Pool:      pool.Address,
		Provider:  bc.Provider,
		Type:      kind,
		Assets:    assets,
		Amounts:   amounts,
	}
	if valued {
		record.ValueUSD = &valueUSD
	}
	if err := tx.Upsert(record); err != nil {
		return "", err
	}

	if _, _, err := p.accountant.UpdateFirstEstablished(ctx, tx, pool.Address, p.pricingCandidates(pool), ev.Block, ev.Timestamp); err != nil {
		return "", err
	}
	return "", p.refreshPoolSnapshot(ctx, tx, pool.Address, ev.Timestamp)
}

// pricingCandidates lists the pool's pricing assets in configured priority order.
func (p *Processor) pricingCandidates(pool *domain.Pool) []common.Address {
	var out []common.Address
	for _, a := range p.resolver.PricingAssets() {
		if pool.HasAsset(a) {
			out = append(out, a)
		}
	}
	return out
}
