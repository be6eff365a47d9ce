package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolType values carried by pool registration events.
const (
	PoolTypeWeighted = "weighted"
	PoolTypeStable   = "stable"
)

// Pool is a multi-asset liquidity reserve. Its address is also its share token.
type Pool struct {
	Address  common.Address    `json:"address"`
	PoolType string            `json:"pool_type"`
	Factory  common.Address    `json:"factory"`
	Assets   []common.Address  `json:"assets"`            // ordered constituents
	Weights  []decimal.Decimal `json:"weights,omitempty"` // nil for non-weighted pools
	SwapFee  decimal.Decimal   `json:"swap_fee"`          // fraction, e.g. 0.003
	Amp      *decimal.Decimal  `json:"amp,omitempty"`     // stable pools, set when an amp update stops

	TotalLiquidity  decimal.Decimal `json:"total_liquidity"` // USD valuation
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
	SwapsCount      uint64          `json:"swaps_count"`
	JoinsCount      uint64          `json:"joins_count"`
	ExitsCount      uint64          `json:"exits_count"`
	TotalShares     decimal.Decimal `json:"total_shares"`
	HoldersCount    uint64          `json:"holders_count"`

	CreatedBlock     uint64 `json:"created_block"`
	CreatedTimestamp int64  `json:"created_timestamp"`
}

// EntityKind implements Entity.
func (p *Pool) EntityKind() Kind { return KindPool }

// EntityID implements Entity.
func (p *Pool) EntityID() string { return AddrID(p.Address) }

// HasAsset reports whether asset is a constituent of the pool.
func (p *Pool) HasAsset(asset common.Address) bool {
	return p.AssetIndex(asset) >= 0
}

// AssetIndex returns the position of asset in the pool, or -1.
func (p *Pool) AssetIndex(asset common.Address) int {
	for i, a := range p.Assets {
		if a == asset {
			return i
		}
	}
	return -1
}

// WeightOf returns the normalized weight of asset, if the pool is weighted.
func (p *Pool) WeightOf(asset common.Address) (decimal.Decimal, bool) {
	i := p.AssetIndex(asset)
	if i < 0 || len(p.Weights) != len(p.Assets) {
		return decimal.Zero, false
	}
	return p.Weights[i], true
}

// WeightSumTolerance bounds how far normalized weights may sum away from 1.
var WeightSumTolerance = decimal.New(1, -6)

// ValidWeights reports whether weights has one entry per asset, no negative
// entry and a sum within WeightSumTolerance of 1.
func ValidWeights(weights []decimal.Decimal, assets int) bool {
	if len(weights) != assets || assets == 0 {
		return false
	}
	sum := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return false
		}
		sum = sum.Add(w)
	}
	return sum.Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(WeightSumTolerance)
}

// PoolAsset holds a pool-local balance of one asset.
type PoolAsset struct {
	Pool       common.Address   `json:"pool"`
	Asset      common.Address   `json:"asset"`
	RawBalance decimal.Decimal  `json:"raw_balance"` // exact integer units
	Balance    decimal.Decimal  `json:"balance"`     // scaled by asset decimals
	Weight     *decimal.Decimal `json:"weight,omitempty"`
	PriceRate  decimal.Decimal  `json:"price_rate"` // 1 unless the pool reports a rate provider
}

// EntityKind implements Entity.
func (p *PoolAsset) EntityKind() Kind { return KindPoolAsset }

// EntityID implements Entity.
func (p *PoolAsset) EntityID() string { return PoolAssetID(p.Pool, p.Asset) }

// PoolShare is one holder's balance of a pool's share token.
type PoolShare struct {
	Pool    common.Address  `json:"pool"`
	Holder  common.Address  `json:"holder"`
	Balance decimal.Decimal `json:"balance"`
}

// EntityKind implements Entity.
func (s *PoolShare) EntityKind() Kind { return KindPoolShare }

// EntityID implements Entity.
func (s *PoolShare) EntityID() string { return PoolShareID(s.Pool, s.Holder) }

// AmpUpdate records one scheduled or stopped change of a stable pool's
// amplification. A stop is stored with equal start and end values.
type AmpUpdate struct {
	TxHash             common.Hash     `json:"tx_hash"`
	LogIndex           uint32          `json:"log_index"`
	Pool               common.Address  `json:"pool"`
	Block              uint64          `json:"block"`
	ScheduledTimestamp int64           `json:"scheduled_timestamp"`
	StartTimestamp     int64           `json:"start_timestamp"`
	EndTimestamp       int64           `json:"end_timestamp"`
	StartAmp           decimal.Decimal `json:"start_amp"`
	EndAmp             decimal.Decimal `json:"end_amp"`
}

// EntityKind implements Entity.
func (u *AmpUpdate) EntityKind() Kind { return KindAmpUpdate }

// EntityID implements Entity.
func (u *AmpUpdate) EntityID() string { return EventRecordID(u.TxHash, u.LogIndex) }
