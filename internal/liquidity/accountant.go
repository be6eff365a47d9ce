// Package liquidity maintains pool valuations and weights.
package liquidity

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/metadata"
	"pool-analytics-lab/internal/observability"
	"pool-analytics-lab/internal/pricing"
	"pool-analytics-lab/internal/registry"
)

// Options configures an Accountant.
type Options struct {
	Resolver *pricing.Resolver
	// Weights refreshes pool weights. Nil disables refresh.
	Weights metadata.WeightSource
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Accountant recomputes pool valuations inside an event's unit of work.
type Accountant struct {
	resolver *pricing.Resolver
	weights  metadata.WeightSource
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewAccountant creates an Accountant.
func NewAccountant(opts Options) *Accountant {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accountant{
		resolver: opts.Resolver,
		weights:  opts.Weights,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Valuation is a computed but not yet committed pool value.
type Valuation struct {
	PoolValue decimal.Decimal // in pricing asset units
	ValueUSD  decimal.Decimal
	Resolved  bool // USD conversion found a path
}

// Established reports whether the valuation passes the sign consistency guard:
// a non-zero pool value must resolve to a non-zero USD value and vice versa.
func (v Valuation) Established() bool {
	return v.PoolValue.IsPositive() == v.ValueUSD.IsPositive()
}

// Value sums balance x LatestPrice(asset, pricingAsset) over the pool's assets and
// converts the sum to USD. Assets without a rate contribute nothing.
func (a *Accountant) Value(ctx context.Context, r registry.Reader, pool *domain.Pool, pricingAsset common.Address) (Valuation, error) {
	poolValue := decimal.Zero
	for _, asset := range pool.Assets {
		pa, err := registry.Load[domain.PoolAsset](ctx, r, domain.PoolAssetID(pool.Address, asset))
		if err != nil {
			return Valuation{}, err
		}
		if pa == nil {
			continue
		}
		if asset == pricingAsset {
			poolValue = poolValue.Add(pa.Balance)
			continue
		}
		rate, ok, err := a.resolver.LatestRate(ctx, r, asset, pricingAsset)
		if err != nil {
			return Valuation{}, err
		}
		if ok {
			poolValue = poolValue.Add(pa.Balance.Mul(rate))
		}
	}

	usd, ok, err := a.resolver.ValueInUSD(ctx, r, pricingAsset, poolValue)
	if err != nil {
		return Valuation{}, err
	}
	if !ok {
		usd = decimal.Zero
	}
	return Valuation{PoolValue: poolValue, ValueUSD: usd, Resolved: ok}, nil
}

// UpdatePoolLiquidity revalues pool in pricingAsset and stages the result in tx.
//
// It returns false, with nothing staged, when the pool is unknown, has fewer than
// two assets, or the valuation is not established. On success it stages a
// LiquiditySnapshot, the pool's new TotalLiquidity, the pool daily snapshot and
// the global total adjusted by new minus old.
func (a *Accountant) UpdatePoolLiquidity(ctx context.Context, tx *registry.Tx, poolAddr, pricingAsset common.Address, block uint64, ts int64) (bool, error) {
	pool, err := registry.Load[domain.Pool](ctx, tx, domain.AddrID(poolAddr))
	if err != nil {
		return false, err
	}
	if pool == nil || len(pool.Assets) < 2 {
		return false, nil
	}

	v, err := a.Value(ctx, tx, pool, pricingAsset)
	if err != nil {
		return false, err
	}
	if !v.Established() {
		a.metrics.RecordLiquidityUpdate(false)
		a.logger.Debug("pool valuation not established",
			zap.String("pool", domain.AddrID(poolAddr)),
			zap.String("pricing_asset", domain.AddrID(pricingAsset)),
			zap.String("pool_value", v.PoolValue.String()),
			zap.Uint64("block", block),
		)
		return false, nil
	}

	snap := &domain.LiquiditySnapshot{
		Pool:            poolAddr,
		PricingAsset:    pricingAsset,
		Block:           block,
		Timestamp:       ts,
		PoolValue:       v.PoolValue,
		ValueUSD:        v.ValueUSD,
		PoolTotalShares: pool.TotalShares,
		PoolShareValue:  decimal.Zero,
	}
	if pool.TotalShares.IsPositive() {
		snap.PoolShareValue = v.PoolValue.Div(pool.TotalShares)
	}
	if err := tx.Upsert(snap); err != nil {
		return false, err
	}

	delta := v.ValueUSD.Sub(pool.TotalLiquidity)
	pool.TotalLiquidity = v.ValueUSD
	if err := tx.Upsert(pool); err != nil {
		return false, err
	}
	if err := tx.Upsert(domain.NewPoolDailySnapshot(pool, ts)); err != nil {
		return false, err
	}

	global, _, err := registry.GetOrCreate(ctx, tx, domain.GlobalID, domain.NewGlobalTotal)
	if err != nil {
		return false, err
	}
	global.TotalLiquidity = global.TotalLiquidity.Add(delta)
	if err := tx.Upsert(global); err != nil {
		return false, err
	}
	if err := tx.Upsert(domain.NewGlobalDailySnapshot(global, ts)); err != nil {
		return false, err
	}

	a.metrics.RecordLiquidityUpdate(true)
	return true, nil
}

// UpdateFirstEstablished tries each candidate pricing asset in order and stops at
// the first successful update. Later candidates are never tried after a success.
func (a *Accountant) UpdateFirstEstablished(ctx context.Context, tx *registry.Tx, poolAddr common.Address, candidates []common.Address, block uint64, ts int64) (common.Address, bool, error) {
	for _, pricingAsset := range candidates {
		ok, err := a.UpdatePoolLiquidity(ctx, tx, poolAddr, pricingAsset, block, ts)
		if err != nil {
			return common.Address{}, false, fmt.Errorf("update liquidity in %s: %w", domain.AddrID(pricingAsset), err)
		}
		if ok {
			return pricingAsset, true, nil
		}
	}
	return common.Address{}, false, nil
}

// RefreshWeights re-fetches pool weights as of block and stages them on the
// pool and its PoolAssets. A failed lookup, or a vector that does not match
// the asset count or does not sum to 1, leaves the weights untouched.
func (a *Accountant) RefreshWeights(ctx context.Context, tx *registry.Tx, pool *domain.Pool, block uint64) (bool, error) {
	if a.weights == nil || pool.PoolType != domain.PoolTypeWeighted {
		return false, nil
	}
	weights, ok := a.weights.TryWeights(ctx, pool.Address, block)
	if !ok {
		return false, nil
	}
	if !domain.ValidWeights(weights, len(pool.Assets)) {
		a.logger.Warn("invalid weight vector ignored",
			zap.String("pool", domain.AddrID(pool.Address)),
			zap.Int("weights", len(weights)),
			zap.Int("assets", len(pool.Assets)),
			zap.Uint64("block", block),
		)
		return false, nil
	}
	return true, ApplyWeights(ctx, tx, pool, weights)
}

// ApplyWeights stores weights on pool and on each existing PoolAsset.
func ApplyWeights(ctx context.Context, tx *registry.Tx, pool *domain.Pool, weights []decimal.Decimal) error {
	pool.Weights = append([]decimal.Decimal(nil), weights...)
	if err := tx.Upsert(pool); err != nil {
		return err
	}
	for i, asset := range pool.Assets {
		pa, err := registry.Load[domain.PoolAsset](ctx, tx, domain.PoolAssetID(pool.Address, asset))
		if err != nil {
			return err
		}
		if pa == nil {
			continue
		}
		w := weights[i]
		pa.Weight = &w
		if err := tx.Upsert(pa); err != nil {
			return err
		}
	}
	return nil
}
