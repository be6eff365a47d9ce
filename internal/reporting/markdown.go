package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Pool Analytics Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Last block: %d | Events applied: %d\n\n", r.Block, r.Applied))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Pools | %d |\n", r.Summary.Pools))
	sb.WriteString(fmt.Sprintf("| Assets | %d |\n", r.Summary.Assets))
	sb.WriteString(fmt.Sprintf("| Traders | %d |\n", r.Summary.Traders))
	sb.WriteString(fmt.Sprintf("| Swaps | %d |\n", r.Summary.Swaps))
	sb.WriteString(fmt.Sprintf("| Total Liquidity (USD) | %s |\n", r.Summary.TotalLiquidity.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total Volume (USD) | %s |\n", r.Summary.TotalVolume.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total Fees (USD) | %s |\n", r.Summary.TotalFees.StringFixed(2)))
	sb.WriteString("\n")

	// Pools
	sb.WriteString("## Pools\n\n")
	if len(r.Pools) == 0 {
		sb.WriteString("No pools registered.\n\n")
	} else {
		sb.WriteString("| Pool | Type | Assets | Liquidity | Volume | Fees | Swaps | Holders |\n")
		sb.WriteString("|------|------|--------|-----------|--------|------|-------|---------|\n")
		for _, p := range r.Pools {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %d | %d |\n",
				p.Address, p.PoolType, p.Assets,
				p.Liquidity.StringFixed(2), p.Volume.StringFixed(2), p.Fees.StringFixed(2),
				p.Swaps, p.Holders))
		}
		sb.WriteString("\n")
	}

	// Assets
	sb.WriteString("## Assets\n\n")
	if len(r.Assets) == 0 {
		sb.WriteString("No assets seen.\n\n")
	} else {
		sb.WriteString("| Asset | Symbol | Decimals | Swaps | Volume (USD) | Price (USD) |\n")
		sb.WriteString("|-------|--------|----------|-------|--------------|-------------|\n")
		for _, a := range r.Assets {
			price := "n/a"
			if a.USDPrice != nil {
				price = a.USDPrice.String()
			}
			symbol := a.Symbol
			if symbol == "" {
				symbol = "?"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s | %s |\n",
				a.Address, symbol, a.Decimals, a.Swaps, a.VolumeUSD.StringFixed(2), price))
		}
		sb.WriteString("\n")
	}

	// Pairs
	if len(r.Pairs) > 0 {
		sb.WriteString("## Trade Pairs\n\n")
		sb.WriteString("| Token0 | Token1 | Swaps | Volume (USD) | Fees (USD) |\n")
		sb.WriteString("|--------|--------|-------|--------------|------------|\n")
		for _, p := range r.Pairs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
				p.Token0, p.Token1, p.Swaps, p.Volume.StringFixed(2), p.Fees.StringFixed(2)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
