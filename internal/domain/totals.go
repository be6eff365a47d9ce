package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// GlobalTotal holds protocol-wide cumulative counters under GlobalID.
type GlobalTotal struct {
	ID              string          `json:"id"`
	PoolCount       uint64          `json:"pool_count"`
	AssetCount      uint64          `json:"asset_count"`
	TraderCount     uint64          `json:"trader_count"`
	SwapCount       uint64          `json:"swap_count"`
	TotalLiquidity  decimal.Decimal `json:"total_liquidity"`
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
}

// EntityKind implements Entity.
func (g *GlobalTotal) EntityKind() Kind { return KindGlobalTotal }

// EntityID implements Entity.
func (g *GlobalTotal) EntityID() string { return GlobalID }

// NewGlobalTotal returns the zero-valued global row.
func NewGlobalTotal() *GlobalTotal {
	return &GlobalTotal{ID: GlobalID}
}

// Trader is an address that has made at least one swap.
type Trader struct {
	Address        common.Address `json:"address"`
	SwapCount      uint64         `json:"swap_count"`
	FirstSwapBlock uint64         `json:"first_swap_block"`
}

// EntityKind implements Entity.
func (t *Trader) EntityKind() Kind { return KindTrader }

// EntityID implements Entity.
func (t *Trader) EntityID() string { return AddrID(t.Address) }

// TradePair holds cumulative, non-bucketed totals for a canonical pair.
type TradePair struct {
	Token0      common.Address  `json:"token0"`
	Token1      common.Address  `json:"token1"`
	SwapCount   uint64          `json:"swap_count"`
	TotalVolume decimal.Decimal `json:"total_volume"` // USD
	TotalFee    decimal.Decimal `json:"total_fee"`    // USD
}

// EntityKind implements Entity.
func (p *TradePair) EntityKind() Kind { return KindTradePair }

// EntityID implements Entity.
func (p *TradePair) EntityID() string { return PairID(p.Token0, p.Token1) }

// Checkpoint is the ordinal of the last applied event.
type Checkpoint struct {
	ID        string `json:"id"`
	Block     uint64 `json:"block"`
	TxIndex   uint32 `json:"tx_index"`
	LogIndex  uint32 `json:"log_index"`
	Timestamp int64  `json:"timestamp"`
	Applied   uint64 `json:"applied"` // events committed so far
}

// EntityKind implements Entity.
func (c *Checkpoint) EntityKind() Kind { return KindCheckpoint }

// EntityID implements Entity.
func (c *Checkpoint) EntityID() string { return GlobalID }

// Ordinal returns the checkpoint position.
func (c *Checkpoint) Ordinal() Ordinal {
	return Ordinal{Block: c.Block, TxIndex: c.TxIndex, LogIndex: c.LogIndex}
}
