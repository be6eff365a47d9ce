package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Asset is a token seen in any pool. Created on first reference, never deleted.
type Asset struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`   // best-effort, may be empty
	Name     string         `json:"name"`     // best-effort, may be empty
	Decimals int32          `json:"decimals"` // falls back to the configured default

	TotalVolumeNotional  decimal.Decimal `json:"total_volume_notional"`   // swapped amount, both directions
	TotalVolumeUSD       decimal.Decimal `json:"total_volume_usd"`        // only trades with a resolved value
	TotalSwapInNotional  decimal.Decimal `json:"total_swap_in_notional"`  // amount sold into pools
	TotalSwapOutNotional decimal.Decimal `json:"total_swap_out_notional"` // amount bought out of pools
	TotalBalanceNotional decimal.Decimal `json:"total_balance_notional"`  // held across all pools
	TotalBalanceUSD      decimal.Decimal `json:"total_balance_usd"`
	TotalSwapCount       uint64          `json:"total_swap_count"`

	LatestPriceID  string           `json:"latest_price_id,omitempty"`  // LatestPrice pointer
	LatestUSDPrice *decimal.Decimal `json:"latest_usd_price,omitempty"` // nil until a USD path exists
	CreatedBlock   uint64           `json:"created_block"`
}

// EntityKind implements Entity.
func (a *Asset) EntityKind() Kind { return KindAsset }

// EntityID implements Entity.
func (a *Asset) EntityID() string { return AddrID(a.Address) }

// Scale converts a raw integer amount into a decimal amount using the asset's decimals.
func (a *Asset) Scale(raw decimal.Decimal) decimal.Decimal {
	return ScaleAmount(raw, a.Decimals)
}

// ScaleAmount shifts raw by -decimals.
func ScaleAmount(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}
