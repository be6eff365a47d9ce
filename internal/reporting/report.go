package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is a point-in-time summary of derived pool state.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	// Position of the last applied event; zero before the first event.
	Block   uint64
	Applied uint64

	Summary Summary

	// Pools sorted by liquidity DESC, then address ASC.
	Pools []PoolRow
	// Assets sorted by volume USD DESC, then address ASC.
	Assets []AssetRow
	// Pairs sorted by volume DESC, then token0, token1 ASC.
	Pairs []PairRow
}

// Summary holds protocol-wide totals.
type Summary struct {
	Pools          uint64
	Assets         uint64
	Traders        uint64
	Swaps          uint64
	TotalLiquidity decimal.Decimal
	TotalVolume    decimal.Decimal
	TotalFees      decimal.Decimal
}

// PoolRow is one pool line.
type PoolRow struct {
	Address   string
	PoolType  string
	Assets    int
	Liquidity decimal.Decimal
	Volume    decimal.Decimal
	Fees      decimal.Decimal
	Swaps     uint64
	Joins     uint64
	Exits     uint64
	Holders   uint64
}

// AssetRow is one asset line. USDPrice is nil when no USD path exists.
type AssetRow struct {
	Address    string
	Symbol     string
	Decimals   int32
	Swaps      uint64
	VolumeUSD  decimal.Decimal
	BalanceUSD decimal.Decimal
	USDPrice   *decimal.Decimal
}

// PairRow is one canonical trade pair line.
type PairRow struct {
	Token0 string
	Token1 string
	Swaps  uint64
	Volume decimal.Decimal
	Fees   decimal.Decimal
}
