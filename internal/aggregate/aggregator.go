// Package aggregate maintains time-bucketed trade statistics and price candles
// per asset and per canonical asset pair.
package aggregate

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/pricing"
	"pool-analytics-lab/internal/registry"
)

// DefaultBucketLengths are hourly and daily buckets.
var DefaultBucketLengths = []int64{domain.BucketHour, domain.BucketDay}

// Trade is one swap as seen by the aggregator. Amounts are decimal-scaled.
type Trade struct {
	AssetIn   common.Address
	AssetOut  common.Address
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
	ValueUSD  decimal.Decimal
	Valued    bool // ValueUSD was determined
	FeeUSD    decimal.Decimal
	Timestamp int64
}

// Aggregator updates bucket entities inside an event's unit of work.
type Aggregator struct {
	resolver *pricing.Resolver
	lengths  []int64
}

// NewAggregator creates an Aggregator. Empty lengths fall back to DefaultBucketLengths.
func NewAggregator(resolver *pricing.Resolver, lengths []int64) *Aggregator {
	if len(lengths) == 0 {
		lengths = DefaultBucketLengths
	}
	return &Aggregator{resolver: resolver, lengths: append([]int64(nil), lengths...)}
}

// Lengths returns the configured bucket lengths in seconds.
func (a *Aggregator) Lengths() []int64 {
	return append([]int64(nil), a.lengths...)
}

// RecordTrade folds t into every asset bucket, pair bucket and the pair's running totals.
// It must run after the trade's price observations are staged so candles see the latest rates.
func (a *Aggregator) RecordTrade(ctx context.Context, tx *registry.Tx, t Trade) error {
	for _, side := range []struct {
		asset  common.Address
		amount decimal.Decimal
	}{
		{t.AssetIn, t.AmountIn},
		{t.AssetOut, t.AmountOut},
	} {
		price, priced, err := a.resolver.USDRate(ctx, tx, side.asset)
		if err != nil {
			return err
		}
		for _, length := range a.lengths {
			if err := a.recordAsset(ctx, tx, t, side.asset, side.amount, price, priced, length); err != nil {
				return err
			}
		}
	}

	for _, length := range a.lengths {
		if err := a.recordPair(ctx, tx, t, length); err != nil {
			return err
		}
	}
	return a.recordTradePair(ctx, tx, t)
}

func (a *Aggregator) recordAsset(ctx context.Context, tx *registry.Tx, t Trade, asset common.Address, amount, price decimal.Decimal, priced bool, length int64) error {
	start := domain.BucketStart(t.Timestamp, length)
	id := domain.AssetBucketID(asset, length, start)

	b, _, err := registry.GetOrCreate(ctx, tx, id, func() *domain.AssetBucket {
		return &domain.AssetBucket{Asset: asset, Length: length, Start: start}
	})
	if err != nil {
		return fmt.Errorf("asset bucket %s: %w", id, err)
	}

	b.Volume = b.Volume.Add(amount)
	if t.Valued {
		b.VolumeUSD = b.VolumeUSD.Add(t.ValueUSD)
		b.FeesUSD = b.FeesUSD.Add(t.FeeUSD)
	}
	b.TradeCount++
	if priced && amount.IsPositive() {
		b.Observe(price, amount)
	}
	return tx.Upsert(b)
}

func (a *Aggregator) recordPair(ctx context.Context, tx *registry.Tx, t Trade, length int64) error {
	token0, token1 := domain.CanonicalPair(t.AssetIn, t.AssetOut)
	amount0, amount1 := t.AmountIn, t.AmountOut
	if token0 != t.AssetIn {
		amount0, amount1 = t.AmountOut, t.AmountIn
	}

	start := domain.BucketStart(t.Timestamp, length)
	id := domain.PairBucketID(token0, token1, length, start)

	b, _, err := registry.GetOrCreate(ctx, tx, id, func() *domain.PairBucket {
		return &domain.PairBucket{Token0: token0, Token1: token1, Length: length, Start: start}
	})
	if err != nil {
		return fmt.Errorf("pair bucket %s: %w", id, err)
	}

	b.Volume = b.Volume.Add(amount0)
	if t.Valued {
		b.VolumeUSD = b.VolumeUSD.Add(t.ValueUSD)
		b.FeesUSD = b.FeesUSD.Add(t.FeeUSD)
	}
	b.TradeCount++
	if price, ok := pricing.SpotPrice(amount1, amount0); ok && amount0.IsPositive() {
		b.Observe(price, amount0)
	}
	return tx.Upsert(b)
}

func (a *Aggregator) recordTradePair(ctx context.Context, tx *registry.Tx, t Trade) error {
	token0, token1 := domain.CanonicalPair(t.AssetIn, t.AssetOut)
	id := domain.PairID(token0, token1)

	p, _, err := registry.GetOrCreate(ctx, tx, id, func() *domain.TradePair {
		return &domain.TradePair{Token0: token0, Token1: token1}
	})
	if err != nil {
		return fmt.Errorf("trade pair %s: %w", id, err)
	}

	p.SwapCount++
	if t.Valued {
		p.TotalVolume = p.TotalVolume.Add(t.ValueUSD)
		p.TotalFee = p.TotalFee.Add(t.FeeUSD)
	}
	return tx.Upsert(p)
}
