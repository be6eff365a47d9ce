package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
	"pool-analytics-lab/internal/storage/memory"
)

var (
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokB  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	poolX = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	poolY = common.HexToAddress("0x00000000000000000000000000000000000000f2")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setupTestData(t *testing.T) *memory.EntityStore {
	t.Helper()
	store := memory.NewEntityStore()
	tx := registry.New(store).Begin()

	price := dec("2.5")
	entities := []domain.Entity{
		&domain.Checkpoint{ID: domain.GlobalID, Block: 42, Applied: 40},
		&domain.GlobalTotal{ID: domain.GlobalID, PoolCount: 2, AssetCount: 2, TraderCount: 1, SwapCount: 3,
			TotalLiquidity: dec("3000"), TotalSwapVolume: dec("150"), TotalSwapFee: dec("0.45")},
		&domain.Pool{Address: poolX, PoolType: domain.PoolTypeWeighted, Assets: []common.Address{usdc, tokB},
			TotalLiquidity: dec("1000"), TotalSwapVolume: dec("100"), TotalSwapFee: dec("0.3"), SwapsCount: 2, HoldersCount: 1},
		&domain.Pool{Address: poolY, PoolType: domain.PoolTypeStable, Assets: []common.Address{usdc, tokB},
			TotalLiquidity: dec("2000"), TotalSwapVolume: dec("50"), TotalSwapFee: dec("0.15"), SwapsCount: 1},
		&domain.Asset{Address: usdc, Symbol: "USDC", Decimals: 6, TotalVolumeUSD: dec("150"), TotalSwapCount: 3},
		&domain.Asset{Address: tokB, Decimals: 18, TotalVolumeUSD: dec("150"), TotalSwapCount: 3, LatestUSDPrice: &price},
		&domain.TradePair{Token0: usdc, Token1: tokB, SwapCount: 3, TotalVolume: dec("150"), TotalFee: dec("0.45")},
	}
	for _, e := range entities {
		if err := tx.Upsert(e); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	return store
}

func TestGenerate_Deterministic(t *testing.T) {
	ctx := context.Background()

	// Fixed time for deterministic output
	fixedTime := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	fixedClock := func() time.Time { return fixedTime }

	var first string
	for run := 0; run < 5; run++ {
		report, err := NewGenerator(setupTestData(t)).WithClock(fixedClock).Generate(ctx)
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}
		out := RenderMarkdown(report) + RenderPoolsCSV(report.Pools)
		if run == 0 {
			first = out
			continue
		}
		if out != first {
			t.Errorf("Run %d: output differs from first run", run)
		}
	}
}

func TestGenerate_Contents(t *testing.T) {
	report, err := NewGenerator(setupTestData(t)).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Block != 42 || report.Applied != 40 {
		t.Errorf("checkpoint = %d/%d, want 42/40", report.Block, report.Applied)
	}
	if report.Summary.Pools != 2 || !report.Summary.TotalLiquidity.Equal(dec("3000")) {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}

	// Pools are ordered by liquidity, highest first
	if len(report.Pools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(report.Pools))
	}
	if report.Pools[0].Address != domain.AddrID(poolY) {
		t.Errorf("expected %s first, got %s", domain.AddrID(poolY), report.Pools[0].Address)
	}

	// Equal volume falls back to address order
	if len(report.Assets) != 2 || report.Assets[0].Address != domain.AddrID(usdc) {
		t.Errorf("unexpected asset order: %+v", report.Assets)
	}
	if report.Assets[1].USDPrice == nil || !report.Assets[1].USDPrice.Equal(dec("2.5")) {
		t.Errorf("expected tokB USD price 2.5")
	}
	if len(report.Pairs) != 1 || report.Pairs[0].Swaps != 3 {
		t.Errorf("unexpected pairs: %+v", report.Pairs)
	}
}

func TestGenerate_EmptyStore(t *testing.T) {
	report, err := NewGenerator(memory.NewEntityStore()).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Block != 0 || len(report.Pools) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No pools registered.") {
		t.Error("empty report should say no pools are registered")
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	report, err := NewGenerator(setupTestData(t)).
		WithClock(func() time.Time { return time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC) }).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	required := []string{
		"# Pool Analytics Report",
		"Generated: 2024-06-15T10:30:00Z",
		"Last block: 42 | Events applied: 40",
		"## Summary",
		"| Total Liquidity (USD) | 3000.00 |",
		"## Pools",
		"| " + domain.AddrID(poolY) + " | stable | 2 | 2000.00 | 50.00 | 0.15 | 1 | 0 |",
		"## Assets",
		"| " + domain.AddrID(tokB) + " | ? | 18 | 3 | 150.00 | 2.5 |",
		"## Trade Pairs",
	}
	for _, s := range required {
		if !strings.Contains(md, s) {
			t.Errorf("markdown missing %q", s)
		}
	}
}

func TestRenderPoolsCSV(t *testing.T) {
	report, err := NewGenerator(setupTestData(t)).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(RenderPoolsCSV(report.Pools)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	want := domain.AddrID(poolX) + ",weighted,2,1000.00,100.00,0.30,2,0,0,1"
	if lines[2] != want {
		t.Errorf("row = %q, want %q", lines[2], want)
	}
}

func TestAssetCandles_AndCSV(t *testing.T) {
	store := memory.NewEntityStore()
	tx := registry.New(store).Begin()

	priced := &domain.AssetBucket{Asset: tokB, Length: domain.BucketHour, Start: 7200,
		Volume: dec("10"), VolumeUSD: dec("25"), FeesUSD: dec("0.075"), TradeCount: 2}
	priced.Observe(dec("2"), dec("5"))
	priced.Observe(dec("3"), dec("5"))

	buckets := []*domain.AssetBucket{
		priced,
		{Asset: tokB, Length: domain.BucketHour, Start: 3600, Volume: dec("1"), TradeCount: 1},
		{Asset: tokB, Length: domain.BucketDay, Start: 0, Volume: dec("11"), TradeCount: 3},
		{Asset: usdc, Length: domain.BucketHour, Start: 3600, Volume: dec("4"), TradeCount: 1},
	}
	for _, b := range buckets {
		if err := tx.Upsert(b); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := AssetCandles(context.Background(), store, tokB.Hex(), domain.BucketHour)
	if err != nil {
		t.Fatalf("AssetCandles failed: %v", err)
	}
	if len(got) != 2 || got[0].Start != 3600 || got[1].Start != 7200 {
		t.Fatalf("unexpected candles: %d", len(got))
	}

	lines := strings.Split(strings.TrimSpace(RenderCandlesCSV(got)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(lines))
	}
	id := domain.AddrID(tokB)
	if lines[1] != id+",3600,3600,,,,,,1,0,0,1" {
		t.Errorf("unpriced row = %q", lines[1])
	}
	if lines[2] != id+",3600,7200,2,3,2,3,2.5,10,25,0.075,2" {
		t.Errorf("priced row = %q", lines[2])
	}

	all, err := AssetCandles(context.Background(), store, "", domain.BucketHour)
	if err != nil {
		t.Fatalf("AssetCandles failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 hourly candles across assets, got %d", len(all))
	}
}
