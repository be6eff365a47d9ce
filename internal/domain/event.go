package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventType represents the type of a decoded ledger event.
type EventType string

// Event type constants.
const (
	EventTypePoolRegistered        EventType = "pool_registered"
	EventTypeSwap                  EventType = "swap"
	EventTypeBalanceChange         EventType = "balance_change"
	EventTypeShareTransfer         EventType = "share_transfer"
	EventTypeSwapFeeChange         EventType = "swap_fee_change"
	EventTypeInternalBalanceChange EventType = "internal_balance_change"
	EventTypeAmpUpdateStarted      EventType = "amp_update_started"
	EventTypeAmpUpdateStopped      EventType = "amp_update_stopped"
)

// Ordinal is the position of a log in the chain.
type Ordinal struct {
	Block    uint64 `json:"block"`
	TxIndex  uint32 `json:"tx_index"`
	LogIndex uint32 `json:"log_index"`
}

// Compare returns -1, 0 or 1 ordering by (block, tx index, log index).
func (o Ordinal) Compare(other Ordinal) int {
	switch {
	case o.Block != other.Block:
		if o.Block < other.Block {
			return -1
		}
		return 1
	case o.TxIndex != other.TxIndex:
		if o.TxIndex < other.TxIndex {
			return -1
		}
		return 1
	case o.LogIndex != other.LogIndex:
		if o.LogIndex < other.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}

// Event is a decoded ledger event. Exactly one payload matching Type is set.
type Event struct {
	Ordinal
	Type      EventType   `json:"type" validate:"required,oneof=pool_registered swap balance_change share_transfer swap_fee_change internal_balance_change amp_update_started amp_update_stopped"`
	Timestamp int64       `json:"timestamp" validate:"gte=0"` // unix seconds
	TxHash    common.Hash `json:"tx_hash"`

	PoolRegistered        *PoolRegistered        `json:"pool_registered,omitempty"`
	Swap                  *Swap                  `json:"swap,omitempty"`
	BalanceChange         *BalanceChange         `json:"balance_change,omitempty"`
	ShareTransfer         *ShareTransfer         `json:"share_transfer,omitempty"`
	SwapFeeChange         *SwapFeeChange         `json:"swap_fee_change,omitempty"`
	InternalBalanceChange *InternalBalanceChange `json:"internal_balance_change,omitempty"`
	AmpUpdateStarted      *AmpUpdateStarted      `json:"amp_update_started,omitempty"`
	AmpUpdateStopped      *AmpUpdateStopped      `json:"amp_update_stopped,omitempty"`
}

// Pool returns the pool the event belongs to.
func (e *Event) Pool() common.Address {
	switch e.Type {
	case EventTypePoolRegistered:
		if e.PoolRegistered != nil {
			return e.PoolRegistered.Pool
		}
	case EventTypeSwap:
		if e.Swap != nil {
			return e.Swap.Pool
		}
	case EventTypeBalanceChange:
		if e.BalanceChange != nil {
			return e.BalanceChange.Pool
		}
	case EventTypeShareTransfer:
		if e.ShareTransfer != nil {
			return e.ShareTransfer.Pool
		}
	case EventTypeSwapFeeChange:
		if e.SwapFeeChange != nil {
			return e.SwapFeeChange.Pool
		}
	case EventTypeAmpUpdateStarted:
		if e.AmpUpdateStarted != nil {
			return e.AmpUpdateStarted.Pool
		}
	case EventTypeAmpUpdateStopped:
		if e.AmpUpdateStopped != nil {
			return e.AmpUpdateStopped.Pool
		}
	}
	return common.Address{}
}

// PoolRegistered announces a new pool and its constituents.
type PoolRegistered struct {
	Pool     common.Address    `json:"pool" validate:"required"`
	PoolType string            `json:"pool_type" validate:"required"`
	Factory  common.Address    `json:"factory"`
	Assets   []common.Address  `json:"assets" validate:"min=2,unique"`
	Weights  []decimal.Decimal `json:"weights,omitempty"`
	SwapFee  decimal.Decimal   `json:"swap_fee"`
}

// Swap is a trade against a pool. Amounts are raw integer units.
type Swap struct {
	Pool      common.Address  `json:"pool" validate:"required"`
	Trader    common.Address  `json:"trader"`
	AssetIn   common.Address  `json:"asset_in" validate:"required"`
	AssetOut  common.Address  `json:"asset_out" validate:"required"`
	AmountIn  decimal.Decimal `json:"amount_in"`
	AmountOut decimal.Decimal `json:"amount_out"`
}

// AssetDelta is a signed raw balance change of one pool asset.
type AssetDelta struct {
	Asset common.Address  `json:"asset" validate:"required"`
	Delta decimal.Decimal `json:"delta"`
}

// BalanceChange is a join or exit: per-asset signed deltas without a trade.
type BalanceChange struct {
	Pool     common.Address `json:"pool" validate:"required"`
	Provider common.Address `json:"provider"`
	Deltas   []AssetDelta   `json:"deltas" validate:"min=1,dive"`
}

// ShareTransfer moves pool share tokens. Zero From mints, zero To burns.
type ShareTransfer struct {
	Pool  common.Address  `json:"pool" validate:"required"`
	From  common.Address  `json:"from"`
	To    common.Address  `json:"to"`
	Value decimal.Decimal `json:"value"` // raw units
}

// SwapFeeChange sets a pool's swap fee.
type SwapFeeChange struct {
	Pool    common.Address  `json:"pool" validate:"required"`
	SwapFee decimal.Decimal `json:"swap_fee"`
}

// InternalBalanceChange moves a user's vault-held balance of token without
// touching any pool. Delta is signed raw units.
type InternalBalanceChange struct {
	User  common.Address  `json:"user" validate:"required"`
	Token common.Address  `json:"token" validate:"required"`
	Delta decimal.Decimal `json:"delta"`
}

// AmpUpdateStarted schedules a stable pool's amplification to move from
// StartValue at StartTime to EndValue at EndTime.
type AmpUpdateStarted struct {
	Pool       common.Address  `json:"pool" validate:"required"`
	StartTime  int64           `json:"start_time" validate:"gte=0"`
	EndTime    int64           `json:"end_time" validate:"gtefield=StartTime"`
	StartValue decimal.Decimal `json:"start_value"`
	EndValue   decimal.Decimal `json:"end_value"`
}

// AmpUpdateStopped halts a stable pool's amplification at CurrentValue.
type AmpUpdateStopped struct {
	Pool         common.Address  `json:"pool" validate:"required"`
	CurrentValue decimal.Decimal `json:"current_value"`
}
