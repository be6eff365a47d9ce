package processor

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/aggregate"
	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/pricing"
	"pool-analytics-lab/internal/registry"
)

// handleSwap runs the swap steps in order: load, weight refresh, balances,
// USD value and totals, price observations, liquidity, then aggregates.
func (p *Processor) handleSwap(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	s := ev.Swap

	pool, err := p.loadPool(ctx, tx, s.Pool)
	if err != nil {
		return "", err
	}
	if pool == nil {
		return ReasonUnknownPool, nil
	}
	if !pool.HasAsset(s.AssetIn) || !pool.HasAsset(s.AssetOut) {
		return ReasonUnknownAsset, nil
	}
	liquidityBefore := pool.TotalLiquidity

	if _, err := p.accountant.RefreshWeights(ctx, tx, pool, ev.Block); err != nil {
		return "", err
	}

	assetIn, err := p.ensureAsset(ctx, tx, s.AssetIn, ev)
	if err != nil {
		return "", err
	}
	assetOut, err := p.ensureAsset(ctx, tx, s.AssetOut, ev)
	if err != nil {
		return "", err
	}
	amountIn := assetIn.Scale(s.AmountIn)
	amountOut := assetOut.Scale(s.AmountOut)

	paIn, err := p.ensurePoolAsset(ctx, tx, pool, s.AssetIn)
	if err != nil {
		return "", err
	}
	paOut, err := p.ensurePoolAsset(ctx, tx, pool, s.AssetOut)
	if err != nil {
		return "", err
	}
	paIn.RawBalance = paIn.RawBalance.Add(s.AmountIn)
	paIn.Balance = assetIn.Scale(paIn.RawBalance)
	paOut.RawBalance = paOut.RawBalance.Sub(s.AmountOut)
	paOut.Balance = assetOut.Scale(paOut.RawBalance)
	if paOut.RawBalance.IsNegative() {
		return ReasonNegativeBalance, nil
	}
	if err := tx.Upsert(paIn); err != nil {
		return "", err
	}
	if err := tx.Upsert(paOut); err != nil {
		return "", err
	}

	var (
		valueUSD, feeUSD decimal.Decimal
		valued           bool
	)
	if s.AssetIn != pool.Address && s.AssetOut != pool.Address {
		valueUSD, valued, err = p.resolver.SwapValueInUSD(ctx, tx, s.AssetIn, amountIn, s.AssetOut, amountOut)
		if err != nil {
			return "", err
		}
		if valued {
			feeUSD = valueUSD.Mul(pool.SwapFee)
		} else {
			p.logger.Debug("swap value undetermined",
				zap.String("pool", domain.AddrID(pool.Address)),
				zap.Uint64("block", ev.Block),
				zap.Uint32("log_index", ev.LogIndex),
			)
		}
	}

	pool.SwapsCount++
	pool.TotalSwapVolume = pool.TotalSwapVolume.Add(valueUSD)
	pool.TotalSwapFee = pool.TotalSwapFee.Add(feeUSD)
	if err := tx.Upsert(pool); err != nil {
		return "", err
	}
	if err := p.updateGlobal(ctx, tx, ev.Timestamp, func(g *domain.GlobalTotal) {
		g.SwapCount++
		g.TotalSwapVolume = g.TotalSwapVolume.Add(valueUSD)
		g.TotalSwapFee = g.TotalSwapFee.Add(feeUSD)
	}); err != nil {
		return "", err
	}

	assetIn.TotalSwapCount++
	assetIn.TotalSwapInNotional = assetIn.TotalSwapInNotional.Add(amountIn)
	assetIn.TotalVolumeNotional = assetIn.TotalVolumeNotional.Add(amountIn)
	assetIn.TotalVolumeUSD = assetIn.TotalVolumeUSD.Add(valueUSD)
	assetIn.TotalBalanceNotional = assetIn.TotalBalanceNotional.Add(amountIn)
	assetIn.TotalBalanceUSD = assetIn.TotalBalanceUSD.Add(valueUSD)

	assetOut.TotalSwapCount++
	assetOut.TotalSwapOutNotional = assetOut.TotalSwapOutNotional.Add(amountOut)
	assetOut.TotalVolumeNotional = assetOut.TotalVolumeNotional.Add(amountOut)
	assetOut.TotalVolumeUSD = assetOut.TotalVolumeUSD.Add(valueUSD)
	assetOut.TotalBalanceNotional = assetOut.TotalBalanceNotional.Sub(amountOut)
	assetOut.TotalBalanceUSD = assetOut.TotalBalanceUSD.Sub(valueUSD)

	if amountIn.IsPositive() && amountOut.IsPositive() && liquidityBefore.GreaterThan(p.cfg.MinPoolLiquidity) {
		wIn, hasWIn := pool.WeightOf(s.AssetIn)
		wOut, hasWOut := pool.WeightOf(s.AssetOut)
		weighted := hasWIn && hasWOut

		if p.resolver.IsPricingAsset(s.AssetIn) {
			price, ok := pricing.SpotPrice(amountIn, amountOut)
			if weighted {
				price, ok = pricing.WeightedSpotPrice(paIn.Balance, wIn, paOut.Balance, wOut)
			}
			if ok {
				if err := p.recordPrice(ctx, tx, ev, pool.Address, assetOut, s.AssetIn, price); err != nil {
					return "", err
				}
			}
		}
		if p.resolver.IsPricingAsset(s.AssetOut) {
			price, ok := pricing.SpotPrice(amountOut, amountIn)
			if weighted {
				price, ok = pricing.WeightedSpotPrice(paOut.Balance, wOut, paIn.Balance, wIn)
			}
			if ok {
				if err := p.recordPrice(ctx, tx, ev, pool.Address, assetIn, s.AssetOut, price); err != nil {
					return "", err
				}
			}
		}
	}

	if err := saveAsset(tx, assetIn, ev.Timestamp); err != nil {
		return "", err
	}
	if err := saveAsset(tx, assetOut, ev.Timestamp); err != nil {
		return "", err
	}

	if pricingAsset, ok := p.resolver.PreferentialPricingAsset(s.AssetIn, s.AssetOut); ok {
		if _, err := p.accountant.UpdatePoolLiquidity(ctx, tx, pool.Address, pricingAsset, ev.Block, ev.Timestamp); err != nil {
			return "", err
		}
	}
	if err := p.refreshPoolSnapshot(ctx, tx, pool.Address, ev.Timestamp); err != nil {
		return "", err
	}

	if err := p.aggregator.RecordTrade(ctx, tx, aggregate.Trade{
		AssetIn:   s.AssetIn,
		AssetOut:  s.AssetOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		ValueUSD:  valueUSD,
		Valued:    valued,
		FeeUSD:    feeUSD,
		Timestamp: ev.Timestamp,
	}); err != nil {
		return "", err
	}

	if err := p.recordTrader(ctx, tx, ev, s.Trader); err != nil {
		return "", err
	}

	record := &domain.SwapRecord{
		TxHash:    ev.TxHash,
		LogIndex:  ev.LogIndex,
		Block:     ev.Block,
		Timestamp: ev.Timestamp,
		Pool:      pool.Address,
		Trader:    s.Trader,
		AssetIn:   s.AssetIn,
		AssetOut:  s.AssetOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
	}
	if valued {
		record.ValueUSD = &valueUSD
		record.FeeUSD = &feeUSD
	}
	return "", tx.Upsert(record)
}

// recordPrice stores an observation of price (pricingAsset per unit of asset)
// and moves LatestPrice and the asset's pointers to it. An observation already
// recorded for the same pool, pair and block is kept.
func (p *Processor) recordPrice(ctx context.Context, tx *registry.Tx, ev *domain.Event, pool common.Address, asset *domain.Asset, pricingAsset common.Address, price decimal.Decimal) error {
	obsID := domain.PriceObservationID(pool, asset.Address, pricingAsset, ev.Block)
	if _, _, err := registry.GetOrCreate(ctx, tx, obsID, func() *domain.PriceObservation {
		return &domain.PriceObservation{
			Pool:         pool,
			Asset:        asset.Address,
			PricingAsset: pricingAsset,
			Price:        price,
			Block:        ev.Block,
			Timestamp:    ev.Timestamp,
		}
	}); err != nil {
		return err
	}

	latest := &domain.LatestPrice{
		Asset:         asset.Address,
		PricingAsset:  pricingAsset,
		Price:         price,
		Pool:          pool,
		ObservationID: obsID,
		Block:         ev.Block,
		Timestamp:     ev.Timestamp,
	}
	if err := tx.Upsert(latest); err != nil {
		return err
	}
	p.metrics.RecordPriceObservation()

	asset.LatestPriceID = latest.EntityID()
	usd, ok, err := p.resolver.USDRate(ctx, tx, asset.Address)
	if err != nil {
		return err
	}
	if ok {
		asset.LatestUSDPrice = &usd
	}
	return nil
}

func (p *Processor) recordTrader(ctx context.Context, tx *registry.Tx, ev *domain.Event, addr common.Address) error {
	if addr == (common.Address{}) {
		return nil
	}
	trader, created, err := registry.GetOrCreate(ctx, tx, domain.AddrID(addr), func() *domain.Trader {
		return &domain.Trader{Address: addr, FirstSwapBlock: ev.Block}
	})
	if err != nil {
		return err
	}
	trader.SwapCount++
	if err := tx.Upsert(trader); err != nil {
		return err
	}
	if !created {
		return nil
	}
	return p.updateGlobal(ctx, tx, ev.Timestamp, func(g *domain.GlobalTotal) {
		g.TraderCount++
	})
}
