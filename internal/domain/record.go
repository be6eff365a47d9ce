package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SwapRecord is the derived row for one swap log.
type SwapRecord struct {
	TxHash    common.Hash      `json:"tx_hash"`
	LogIndex  uint32           `json:"log_index"`
	Block     uint64           `json:"block"`
	Timestamp int64            `json:"timestamp"`
	Pool      common.Address   `json:"pool"`
	Trader    common.Address   `json:"trader"`
	AssetIn   common.Address   `json:"asset_in"`
	AssetOut  common.Address   `json:"asset_out"`
	AmountIn  decimal.Decimal  `json:"amount_in"`
	AmountOut decimal.Decimal  `json:"amount_out"`
	ValueUSD  *decimal.Decimal `json:"value_usd,omitempty"` // nil when undetermined
	FeeUSD    *decimal.Decimal `json:"fee_usd,omitempty"`
}

// EntityKind implements Entity.
func (r *SwapRecord) EntityKind() Kind { return KindSwap }

// EntityID implements Entity.
func (r *SwapRecord) EntityID() string { return EventRecordID(r.TxHash, r.LogIndex) }

// JoinExit kinds.
const (
	JoinExitJoin = "join"
	JoinExitExit = "exit"
)

// JoinExitRecord is the derived row for one pool balance change.
type JoinExitRecord struct {
	TxHash    common.Hash       `json:"tx_hash"`
	LogIndex  uint32            `json:"log_index"`
	Block     uint64            `json:"block"`
	Timestamp int64             `json:"timestamp"`
	Pool      common.Address    `json:"pool"`
	Provider  common.Address    `json:"provider"`
	Type      string            `json:"type"`
	Assets    []common.Address  `json:"assets"`
	Amounts   []decimal.Decimal `json:"amounts"` // signed, scaled
	ValueUSD  *decimal.Decimal  `json:"value_usd,omitempty"`
}

// EntityKind implements Entity.
func (r *JoinExitRecord) EntityKind() Kind { return KindJoinExit }

// EntityID implements Entity.
func (r *JoinExitRecord) EntityID() string { return EventRecordID(r.TxHash, r.LogIndex) }
