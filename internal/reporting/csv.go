package reporting

import (
	"fmt"
	"strings"

	"pool-analytics-lab/internal/domain"
)

// RenderCandlesCSV renders asset buckets as CSV string. Unpriced buckets have empty price columns.
func RenderCandlesCSV(buckets []*domain.AssetBucket) string {
	var sb strings.Builder

	// Header
	sb.WriteString("asset,length,start,open,high,low,close,average_price,volume,volume_usd,fees_usd,trade_count\n")

	// Rows
	for _, b := range buckets {
		open, high, low, closePrice, avg := "", "", "", "", ""
		if b.Priced {
			open, high, low, closePrice, avg = b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.AveragePrice.String()
		}
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s,%d\n",
			domain.AddrID(b.Asset),
			b.Length,
			b.Start,
			open, high, low, closePrice, avg,
			b.Volume.String(),
			b.VolumeUSD.String(),
			b.FeesUSD.String(),
			b.TradeCount,
		))
	}

	return sb.String()
}

// RenderPoolsCSV renders pool rows as CSV string.
func RenderPoolsCSV(rows []PoolRow) string {
	var sb strings.Builder

	sb.WriteString("pool,pool_type,assets,liquidity_usd,volume_usd,fees_usd,swaps,joins,exits,holders\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%d,%d,%d,%d\n",
			r.Address,
			r.PoolType,
			r.Assets,
			r.Liquidity.StringFixed(2),
			r.Volume.StringFixed(2),
			r.Fees.StringFixed(2),
			r.Swaps,
			r.Joins,
			r.Exits,
			r.Holders,
		))
	}

	return sb.String()
}
