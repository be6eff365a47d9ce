package reporting

import (
	"context"
	"sort"
	"strings"
	"time"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
	"pool-analytics-lab/internal/storage"
)

// Generator produces reports from the entity store.
type Generator struct {
	store storage.EntityStore
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(store storage.EntityStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report of the current committed state.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	reader := registry.New(g.store).Reader()

	report := &Report{GeneratedAt: g.now()}

	cp, err := registry.Load[domain.Checkpoint](ctx, reader, domain.GlobalID)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		report.Block = cp.Block
		report.Applied = cp.Applied
	}

	global, err := registry.Load[domain.GlobalTotal](ctx, reader, domain.GlobalID)
	if err != nil {
		return nil, err
	}
	if global == nil {
		global = domain.NewGlobalTotal()
	}
	report.Summary = Summary{
		Pools:          global.PoolCount,
		Assets:         global.AssetCount,
		Traders:        global.TraderCount,
		Swaps:          global.SwapCount,
		TotalLiquidity: global.TotalLiquidity,
		TotalVolume:    global.TotalSwapVolume,
		TotalFees:      global.TotalSwapFee,
	}

	if report.Pools, err = g.poolRows(ctx); err != nil {
		return nil, err
	}
	if report.Assets, err = g.assetRows(ctx); err != nil {
		return nil, err
	}
	if report.Pairs, err = g.pairRows(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

func (g *Generator) poolRows(ctx context.Context) ([]PoolRow, error) {
	pools, err := registry.List[domain.Pool](ctx, g.store)
	if err != nil {
		return nil, err
	}

	rows := make([]PoolRow, 0, len(pools))
	for _, p := range pools {
		rows = append(rows, PoolRow{
			Address:   domain.AddrID(p.Address),
			PoolType:  p.PoolType,
			Assets:    len(p.Assets),
			Liquidity: p.TotalLiquidity,
			Volume:    p.TotalSwapVolume,
			Fees:      p.TotalSwapFee,
			Swaps:     p.SwapsCount,
			Joins:     p.JoinsCount,
			Exits:     p.ExitsCount,
			Holders:   p.HoldersCount,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Liquidity.Cmp(rows[j].Liquidity); c != 0 {
			return c > 0
		}
		return rows[i].Address < rows[j].Address
	})
	return rows, nil
}

func (g *Generator) assetRows(ctx context.Context) ([]AssetRow, error) {
	assets, err := registry.List[domain.Asset](ctx, g.store)
	if err != nil {
		return nil, err
	}

	rows := make([]AssetRow, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, AssetRow{
			Address:    domain.AddrID(a.Address),
			Symbol:     a.Symbol,
			Decimals:   a.Decimals,
			Swaps:      a.TotalSwapCount,
			VolumeUSD:  a.TotalVolumeUSD,
			BalanceUSD: a.TotalBalanceUSD,
			USDPrice:   a.LatestUSDPrice,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].VolumeUSD.Cmp(rows[j].VolumeUSD); c != 0 {
			return c > 0
		}
		return rows[i].Address < rows[j].Address
	})
	return rows, nil
}

func (g *Generator) pairRows(ctx context.Context) ([]PairRow, error) {
	pairs, err := registry.List[domain.TradePair](ctx, g.store)
	if err != nil {
		return nil, err
	}

	rows := make([]PairRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, PairRow{
			Token0: domain.AddrID(p.Token0),
			Token1: domain.AddrID(p.Token1),
			Swaps:  p.SwapCount,
			Volume: p.TotalVolume,
			Fees:   p.TotalFee,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Volume.Cmp(rows[j].Volume); c != 0 {
			return c > 0
		}
		if rows[i].Token0 != rows[j].Token0 {
			return rows[i].Token0 < rows[j].Token0
		}
		return strings.Compare(rows[i].Token1, rows[j].Token1) < 0
	})
	return rows, nil
}

// AssetCandles returns asset buckets of one length for asset, ordered by start.
func AssetCandles(ctx context.Context, store storage.EntityStore, asset string, length int64) ([]*domain.AssetBucket, error) {
	buckets, err := registry.List[domain.AssetBucket](ctx, store)
	if err != nil {
		return nil, err
	}
	var out []*domain.AssetBucket
	for _, b := range buckets {
		if b.Length == length && (asset == "" || domain.AddrID(b.Asset) == strings.ToLower(asset)) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return domain.AddrID(out[i].Asset) < domain.AddrID(out[j].Asset)
	})
	return out, nil
}
