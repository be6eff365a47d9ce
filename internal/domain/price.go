package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceObservation is one directly observed rate: units of PricingAsset per unit of Asset.
// Append-only.
type PriceObservation struct {
	Pool         common.Address  `json:"pool"`
	Asset        common.Address  `json:"asset"`
	PricingAsset common.Address  `json:"pricing_asset"`
	Price        decimal.Decimal `json:"price"`
	Block        uint64          `json:"block"`
	Timestamp    int64           `json:"timestamp"`
}

// EntityKind implements Entity.
func (o *PriceObservation) EntityKind() Kind { return KindPriceObservation }

// EntityID implements Entity.
func (o *PriceObservation) EntityID() string {
	return PriceObservationID(o.Pool, o.Asset, o.PricingAsset, o.Block)
}

// LatestPrice is the most recent observed rate for (Asset, PricingAsset).
type LatestPrice struct {
	Asset         common.Address  `json:"asset"`
	PricingAsset  common.Address  `json:"pricing_asset"`
	Price         decimal.Decimal `json:"price"`
	Pool          common.Address  `json:"pool"`
	ObservationID string          `json:"observation_id"`
	Block         uint64          `json:"block"`
	Timestamp     int64           `json:"timestamp"`
}

// EntityKind implements Entity.
func (p *LatestPrice) EntityKind() Kind { return KindLatestPrice }

// EntityID implements Entity.
func (p *LatestPrice) EntityID() string { return LatestPriceID(p.Asset, p.PricingAsset) }

// LiquiditySnapshot is a pool valuation at one block. Immutable.
type LiquiditySnapshot struct {
	Pool            common.Address  `json:"pool"`
	PricingAsset    common.Address  `json:"pricing_asset"`
	Block           uint64          `json:"block"`
	Timestamp       int64           `json:"timestamp"`
	PoolValue       decimal.Decimal `json:"pool_value"` // in PricingAsset units
	ValueUSD        decimal.Decimal `json:"value_usd"`
	PoolTotalShares decimal.Decimal `json:"pool_total_shares"`
	PoolShareValue  decimal.Decimal `json:"pool_share_value"` // PoolValue per share, zero without shares
}

// EntityKind implements Entity.
func (s *LiquiditySnapshot) EntityKind() Kind { return KindLiquiditySnapshot }

// EntityID implements Entity.
func (s *LiquiditySnapshot) EntityID() string {
	return LiquiditySnapshotID(s.Pool, s.PricingAsset, s.Block)
}
