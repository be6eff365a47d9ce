package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Bucket lengths in seconds.
const (
	BucketHour int64 = 3600
	BucketDay  int64 = 86400
)

// Candle is the price part of a time bucket. Zero until the first priced trade.
type Candle struct {
	Priced       bool            `json:"priced"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	AveragePrice decimal.Decimal `json:"average_price"` // volume-weighted
	PricedVolume decimal.Decimal `json:"priced_volume"` // weight behind AveragePrice
	PricedValue  decimal.Decimal `json:"priced_value"`  // exact sum of price * volume
}

// Observe folds one priced trade into the candle.
// The average is always PricedValue / PricedVolume over exact sums, so it
// equals the mean over the full bucket history.
func (c *Candle) Observe(price, volume decimal.Decimal) {
	if !c.Priced {
		c.Priced = true
		c.Open, c.High, c.Low, c.Close = price, price, price, price
		c.AveragePrice = price
		c.PricedVolume = volume
		c.PricedValue = price.Mul(volume)
		if !volume.IsZero() {
			c.AveragePrice = c.PricedValue.Div(c.PricedVolume)
		}
		return
	}

	if price.GreaterThan(c.High) {
		c.High = price
	}
	if price.LessThan(c.Low) {
		c.Low = price
	}
	c.Close = price

	c.PricedVolume = c.PricedVolume.Add(volume)
	c.PricedValue = c.PricedValue.Add(price.Mul(volume))
	if c.PricedVolume.IsZero() {
		return
	}
	c.AveragePrice = c.PricedValue.Div(c.PricedVolume)
}

// AssetBucket aggregates one asset's trades over [Start, Start+Length).
// Prices are USD per unit.
type AssetBucket struct {
	Asset      common.Address  `json:"asset"`
	Length     int64           `json:"length"`
	Start      int64           `json:"start"`
	Volume     decimal.Decimal `json:"volume"` // asset units
	VolumeUSD  decimal.Decimal `json:"volume_usd"`
	FeesUSD    decimal.Decimal `json:"fees_usd"`
	TradeCount uint64          `json:"trade_count"`
	Candle
}

// EntityKind implements Entity.
func (b *AssetBucket) EntityKind() Kind { return KindAssetBucket }

// EntityID implements Entity.
func (b *AssetBucket) EntityID() string { return AssetBucketID(b.Asset, b.Length, b.Start) }

// PairBucket aggregates a canonical pair's trades over [Start, Start+Length).
// Prices are Token1 per Token0; Volume is in Token0 units.
type PairBucket struct {
	Token0     common.Address  `json:"token0"`
	Token1     common.Address  `json:"token1"`
	Length     int64           `json:"length"`
	Start      int64           `json:"start"`
	Volume     decimal.Decimal `json:"volume"`
	VolumeUSD  decimal.Decimal `json:"volume_usd"`
	FeesUSD    decimal.Decimal `json:"fees_usd"`
	TradeCount uint64          `json:"trade_count"`
	Candle
}

// EntityKind implements Entity.
func (b *PairBucket) EntityKind() Kind { return KindPairBucket }

// EntityID implements Entity.
func (b *PairBucket) EntityID() string { return PairBucketID(b.Token0, b.Token1, b.Length, b.Start) }
