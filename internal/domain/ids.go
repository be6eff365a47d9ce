package domain

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// GlobalID is the id of the single protocol-wide GlobalTotal and Checkpoint rows.
const GlobalID = "1"

// SecondsPerDay is the daily snapshot period.
const SecondsPerDay int64 = 86400

// AddrID renders an address as a lowercase hex id.
func AddrID(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// PoolAssetID identifies the (pool, asset) join entity.
func PoolAssetID(pool, asset common.Address) string {
	return AddrID(pool) + "-" + AddrID(asset)
}

// PoolShareID identifies a holder's share balance in a pool.
func PoolShareID(pool, holder common.Address) string {
	return AddrID(pool) + "-" + AddrID(holder)
}

// InternalBalanceID identifies a user's vault balance of one token.
func InternalBalanceID(user, token common.Address) string {
	return AddrID(user) + "-" + AddrID(token)
}

// LatestPriceID identifies the latest rate of asset quoted in pricingAsset.
func LatestPriceID(asset, pricingAsset common.Address) string {
	return AddrID(asset) + "-" + AddrID(pricingAsset)
}

// PriceObservationID identifies one observation: (pool, base, quote, block).
func PriceObservationID(pool, asset, pricingAsset common.Address, block uint64) string {
	return fmt.Sprintf("%s-%s-%s-%d", AddrID(pool), AddrID(asset), AddrID(pricingAsset), block)
}

// LiquiditySnapshotID identifies a pool valuation at (pricing asset, block).
func LiquiditySnapshotID(pool, pricingAsset common.Address, block uint64) string {
	return fmt.Sprintf("%s-%s-%d", AddrID(pool), AddrID(pricingAsset), block)
}

// CanonicalPair orders two assets by the numeric value of their address.
func CanonicalPair(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return a, b
	}
	return b, a
}

// PairID identifies a canonical asset pair regardless of argument order.
func PairID(a, b common.Address) string {
	t0, t1 := CanonicalPair(a, b)
	return AddrID(t0) + "-" + AddrID(t1)
}

// BucketStart aligns ts down to the start of its bucket.
func BucketStart(ts, length int64) int64 {
	if length <= 0 {
		return ts
	}
	start := (ts / length) * length
	if ts < 0 && ts%length != 0 {
		start -= length
	}
	return start
}

// DayStart aligns ts to the start of its UTC day.
func DayStart(ts int64) int64 {
	return BucketStart(ts, SecondsPerDay)
}

// AssetBucketID identifies an asset's bucket of the given length.
func AssetBucketID(asset common.Address, length, start int64) string {
	return fmt.Sprintf("%s-%d-%d", AddrID(asset), length, start)
}

// PairBucketID identifies a canonical pair's bucket of the given length.
func PairBucketID(a, b common.Address, length, start int64) string {
	return fmt.Sprintf("%s-%d-%d", PairID(a, b), length, start)
}

// DailyID appends the day number to an entity id.
func DailyID(base string, ts int64) string {
	return fmt.Sprintf("%s-%d", base, DayStart(ts)/SecondsPerDay)
}

// EventRecordID identifies a record derived from one log.
func EventRecordID(txHash common.Hash, logIndex uint32) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(txHash.Hex()), logIndex)
}
