package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolDailySnapshot copies a pool's running totals at the end of each touched day.
type PoolDailySnapshot struct {
	Pool            common.Address  `json:"pool"`
	Day             int64           `json:"day"` // day start, unix seconds
	TotalLiquidity  decimal.Decimal `json:"total_liquidity"`
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
	SwapsCount      uint64          `json:"swaps_count"`
	TotalShares     decimal.Decimal `json:"total_shares"`
	HoldersCount    uint64          `json:"holders_count"`
}

// EntityKind implements Entity.
func (s *PoolDailySnapshot) EntityKind() Kind { return KindPoolDailySnapshot }

// EntityID implements Entity.
func (s *PoolDailySnapshot) EntityID() string { return DailyID(AddrID(s.Pool), s.Day) }

// AssetDailySnapshot copies an asset's running totals for a day.
type AssetDailySnapshot struct {
	Asset                common.Address  `json:"asset"`
	Day                  int64           `json:"day"`
	TotalBalanceNotional decimal.Decimal `json:"total_balance_notional"`
	TotalBalanceUSD      decimal.Decimal `json:"total_balance_usd"`
	TotalVolumeNotional  decimal.Decimal `json:"total_volume_notional"`
	TotalVolumeUSD       decimal.Decimal `json:"total_volume_usd"`
	TotalSwapCount       uint64          `json:"total_swap_count"`
}

// EntityKind implements Entity.
func (s *AssetDailySnapshot) EntityKind() Kind { return KindAssetDailySnapshot }

// EntityID implements Entity.
func (s *AssetDailySnapshot) EntityID() string { return DailyID(AddrID(s.Asset), s.Day) }

// GlobalDailySnapshot copies GlobalTotal for a day.
type GlobalDailySnapshot struct {
	Day             int64           `json:"day"`
	PoolCount       uint64          `json:"pool_count"`
	TraderCount     uint64          `json:"trader_count"`
	SwapCount       uint64          `json:"swap_count"`
	TotalLiquidity  decimal.Decimal `json:"total_liquidity"`
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
}

// EntityKind implements Entity.
func (s *GlobalDailySnapshot) EntityKind() Kind { return KindGlobalDailySnapshot }

// EntityID implements Entity.
func (s *GlobalDailySnapshot) EntityID() string { return DailyID(GlobalID, s.Day) }

// NewPoolDailySnapshot copies p's totals into the snapshot for the day containing ts.
func NewPoolDailySnapshot(p *Pool, ts int64) *PoolDailySnapshot {
	return &PoolDailySnapshot{
		Pool:            p.Address,
		Day:             DayStart(ts),
		TotalLiquidity:  p.TotalLiquidity,
		TotalSwapVolume: p.TotalSwapVolume,
		TotalSwapFee:    p.TotalSwapFee,
		SwapsCount:      p.SwapsCount,
		TotalShares:     p.TotalShares,
		HoldersCount:    p.HoldersCount,
	}
}

// NewAssetDailySnapshot copies a's totals into the snapshot for the day containing ts.
func NewAssetDailySnapshot(a *Asset, ts int64) *AssetDailySnapshot {
	return &AssetDailySnapshot{
		Asset:                a.Address,
		Day:                  DayStart(ts),
		TotalBalanceNotional: a.TotalBalanceNotional,
		TotalBalanceUSD:      a.TotalBalanceUSD,
		TotalVolumeNotional:  a.TotalVolumeNotional,
		TotalVolumeUSD:       a.TotalVolumeUSD,
		TotalSwapCount:       a.TotalSwapCount,
	}
}

// NewGlobalDailySnapshot copies g into the snapshot for the day containing ts.
func NewGlobalDailySnapshot(g *GlobalTotal, ts int64) *GlobalDailySnapshot {
	return &GlobalDailySnapshot{
		Day:             DayStart(ts),
		PoolCount:       g.PoolCount,
		TraderCount:     g.TraderCount,
		SwapCount:       g.SwapCount,
		TotalLiquidity:  g.TotalLiquidity,
		TotalSwapVolume: g.TotalSwapVolume,
		TotalSwapFee:    g.TotalSwapFee,
	}
}
