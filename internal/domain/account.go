package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// InternalBalance is a user's token balance held inside the vault rather than
// in any pool. It does not count toward pool or global liquidity.
type InternalBalance struct {
	User       common.Address  `json:"user"`
	Token      common.Address  `json:"token"`
	Balance    decimal.Decimal `json:"balance"`     // scaled by token decimals
	BalanceRaw decimal.Decimal `json:"balance_raw"` // raw units
}

// EntityKind implements Entity.
func (b *InternalBalance) EntityKind() Kind { return KindInternalBalance }

// EntityID implements Entity.
func (b *InternalBalance) EntityID() string { return InternalBalanceID(b.User, b.Token) }
