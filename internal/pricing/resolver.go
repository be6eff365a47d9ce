// Package pricing converts asset amounts into the reference currency (USD) and the
// secondary numeraire using only previously observed LatestPrice rates.
//
// An undetermined value is reported as ok=false, never as zero.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
)

// Config lists the assets that anchor price discovery. Order is priority.
type Config struct {
	StableAssets  []common.Address
	Numeraire     common.Address
	PricingAssets []common.Address
}

// Resolver walks LatestPrice rates to value an amount.
// It holds no entity state; every call reads through the given registry.Reader.
type Resolver struct {
	stableOrder  []common.Address
	pricingOrder []common.Address
	numeraire    common.Address
	stable       map[common.Address]struct{}
	pricing      map[common.Address]struct{}
}

// NewResolver creates a Resolver. Duplicate entries keep their first position.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		numeraire: cfg.Numeraire,
		stable:    make(map[common.Address]struct{}, len(cfg.StableAssets)),
		pricing:   make(map[common.Address]struct{}, len(cfg.PricingAssets)),
	}
	for _, a := range cfg.StableAssets {
		if _, dup := r.stable[a]; dup {
			continue
		}
		r.stable[a] = struct{}{}
		r.stableOrder = append(r.stableOrder, a)
	}
	for _, a := range cfg.PricingAssets {
		if _, dup := r.pricing[a]; dup {
			continue
		}
		r.pricing[a] = struct{}{}
		r.pricingOrder = append(r.pricingOrder, a)
	}
	return r
}

// IsStable reports whether asset is valued at exactly 1 USD per unit.
func (r *Resolver) IsStable(asset common.Address) bool {
	_, ok := r.stable[asset]
	return ok
}

// IsPricingAsset reports whether asset may anchor price observations.
func (r *Resolver) IsPricingAsset(asset common.Address) bool {
	_, ok := r.pricing[asset]
	return ok
}

// PricingAssets returns the pricing assets in priority order.
func (r *Resolver) PricingAssets() []common.Address {
	out := make([]common.Address, len(r.pricingOrder))
	copy(out, r.pricingOrder)
	return out
}

// Numeraire returns the secondary reference asset.
func (r *Resolver) Numeraire() common.Address {
	return r.numeraire
}

// LatestRate returns units of pricingAsset per unit of asset from the LatestPrice entity.
// A missing or non-positive rate is undetermined.
func (r *Resolver) LatestRate(ctx context.Context, reader registry.Reader, asset, pricingAsset common.Address) (decimal.Decimal, bool, error) {
	if asset == pricingAsset {
		return decimal.NewFromInt(1), true, nil
	}
	lp, err := registry.Load[domain.LatestPrice](ctx, reader, domain.LatestPriceID(asset, pricingAsset))
	if err != nil {
		return decimal.Zero, false, err
	}
	if lp == nil || !lp.Price.IsPositive() {
		return decimal.Zero, false, nil
	}
	return lp.Price, true, nil
}

// USDRate returns the USD value of one unit of asset.
//
// Resolution order: stable asset (rate 1), first configured stable with a direct
// rate, then asset->numeraire->stable. Paths are at most two hops.
func (r *Resolver) USDRate(ctx context.Context, reader registry.Reader, asset common.Address) (decimal.Decimal, bool, error) {
	return r.usdRate(ctx, reader, asset, 2)
}

func (r *Resolver) usdRate(ctx context.Context, reader registry.Reader, asset common.Address, hops int) (decimal.Decimal, bool, error) {
	if r.IsStable(asset) {
		return decimal.NewFromInt(1), true, nil
	}
	if hops <= 0 {
		return decimal.Zero, false, nil
	}

	for _, stable := range r.stableOrder {
		rate, ok, err := r.LatestRate(ctx, reader, asset, stable)
		if err != nil {
			return decimal.Zero, false, err
		}
		if ok {
			return rate, true, nil
		}
	}

	if hops < 2 || asset == r.numeraire || r.numeraire == (common.Address{}) {
		return decimal.Zero, false, nil
	}

	toNumeraire, ok, err := r.LatestRate(ctx, reader, asset, r.numeraire)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	numeraireUSD, ok, err := r.usdRate(ctx, reader, r.numeraire, hops-1)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	return toNumeraire.Mul(numeraireUSD), true, nil
}

// ValueInUSD converts amount of asset into USD.
func (r *Resolver) ValueInUSD(ctx context.Context, reader registry.Reader, asset common.Address, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	if r.IsStable(asset) {
		return amount, true, nil
	}
	rate, ok, err := r.USDRate(ctx, reader, asset)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	return amount.Mul(rate), true, nil
}

// ValueInNumeraire converts amount of asset into the numeraire.
// A direct rate is used first; otherwise the USD value is divided by the numeraire's USD rate.
func (r *Resolver) ValueInNumeraire(ctx context.Context, reader registry.Reader, asset common.Address, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	if r.numeraire == (common.Address{}) {
		return decimal.Zero, false, nil
	}
	rate, ok, err := r.LatestRate(ctx, reader, asset, r.numeraire)
	if err != nil {
		return decimal.Zero, false, err
	}
	if ok {
		return amount.Mul(rate), true, nil
	}

	usd, ok, err := r.ValueInUSD(ctx, reader, asset, amount)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	numeraireUSD, ok, err := r.USDRate(ctx, reader, r.numeraire)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	if numeraireUSD.IsZero() {
		return decimal.Zero, false, nil
	}
	return usd.Div(numeraireUSD), true, nil
}

// SwapValueInUSD values a trade. A stable side is authoritative (out side first);
// otherwise the two resolved sides are averaged, or the single resolved side is used.
func (r *Resolver) SwapValueInUSD(ctx context.Context, reader registry.Reader, assetIn common.Address, amountIn decimal.Decimal, assetOut common.Address, amountOut decimal.Decimal) (decimal.Decimal, bool, error) {
	if r.IsStable(assetOut) {
		return amountOut, true, nil
	}
	if r.IsStable(assetIn) {
		return amountIn, true, nil
	}

	inUSD, inOK, err := r.ValueInUSD(ctx, reader, assetIn, amountIn)
	if err != nil {
		return decimal.Zero, false, err
	}
	outUSD, outOK, err := r.ValueInUSD(ctx, reader, assetOut, amountOut)
	if err != nil {
		return decimal.Zero, false, err
	}

	switch {
	case inOK && outOK:
		return inUSD.Add(outUSD).Div(decimal.NewFromInt(2)), true, nil
	case inOK:
		return inUSD, true, nil
	case outOK:
		return outUSD, true, nil
	default:
		return decimal.Zero, false, nil
	}
}

// PreferentialPricingAsset picks the highest-priority pricing asset among a and b.
func (r *Resolver) PreferentialPricingAsset(a, b common.Address) (common.Address, bool) {
	for _, p := range r.pricingOrder {
		if p == a || p == b {
			return p, true
		}
	}
	return common.Address{}, false
}

// SpotPrice returns units of quote per unit of base, or false if the denominator is zero.
func SpotPrice(quoteAmount, baseAmount decimal.Decimal) (decimal.Decimal, bool) {
	if baseAmount.IsZero() {
		return decimal.Zero, false
	}
	return quoteAmount.Div(baseAmount), true
}

// WeightedSpotPrice returns (quoteBalance/quoteWeight) / (baseBalance/baseWeight).
func WeightedSpotPrice(quoteBalance, quoteWeight, baseBalance, baseWeight decimal.Decimal) (decimal.Decimal, bool) {
	if quoteWeight.IsZero() || baseWeight.IsZero() {
		return decimal.Zero, false
	}
	return SpotPrice(quoteBalance.Div(quoteWeight), baseBalance.Div(baseWeight))
}
