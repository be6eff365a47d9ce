package domain

// Kind names an entity table in the registry.
type Kind string

// Entity kinds. No kind is ever deleted from the registry.
const (
	KindAsset               Kind = "asset"
	KindPool                Kind = "pool"
	KindPoolAsset           Kind = "pool_asset"
	KindPoolShare           Kind = "pool_share"
	KindPriceObservation    Kind = "price_observation"
	KindLatestPrice         Kind = "latest_price"
	KindLiquiditySnapshot   Kind = "liquidity_snapshot"
	KindAssetBucket         Kind = "asset_bucket"
	KindPairBucket          Kind = "pair_bucket"
	KindTradePair           Kind = "trade_pair"
	KindTrader              Kind = "trader"
	KindGlobalTotal         Kind = "global_total"
	KindPoolDailySnapshot   Kind = "pool_daily_snapshot"
	KindAssetDailySnapshot  Kind = "asset_daily_snapshot"
	KindGlobalDailySnapshot Kind = "global_daily_snapshot"
	KindSwap                Kind = "swap"
	KindJoinExit            Kind = "join_exit"
	KindInternalBalance     Kind = "internal_balance"
	KindAmpUpdate           Kind = "amp_update"
	KindCheckpoint          Kind = "checkpoint"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{
	KindAsset,
	KindPool,
	KindPoolAsset,
	KindPoolShare,
	KindPriceObservation,
	KindLatestPrice,
	KindLiquiditySnapshot,
	KindAssetBucket,
	KindPairBucket,
	KindTradePair,
	KindTrader,
	KindGlobalTotal,
	KindPoolDailySnapshot,
	KindAssetDailySnapshot,
	KindGlobalDailySnapshot,
	KindSwap,
	KindJoinExit,
	KindInternalBalance,
	KindAmpUpdate,
	KindCheckpoint,
}

// ValidKind reports whether k names a known entity kind.
func ValidKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Entity is implemented by every record the registry stores.
type Entity interface {
	EntityKind() Kind
	EntityID() string
}
