package pricing

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
	"pool-analytics-lab/internal/storage/memory"
)

var (
	usdc = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	dai  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	weth = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokB = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	tokC = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testResolver() *Resolver {
	return NewResolver(Config{
		StableAssets:  []common.Address{usdc, dai},
		Numeraire:     weth,
		PricingAssets: []common.Address{weth, usdc, dai},
	})
}

// seed commits LatestPrice rows and returns a reader over them.
func seed(t *testing.T, prices ...*domain.LatestPrice) registry.Reader {
	t.Helper()
	reg := registry.New(memory.NewEntityStore())
	tx := reg.Begin()
	for _, p := range prices {
		require.NoError(t, tx.Upsert(p))
	}
	require.NoError(t, tx.Commit(context.Background()))
	return reg.Reader()
}

func latest(asset, pricing common.Address, price string) *domain.LatestPrice {
	return &domain.LatestPrice{Asset: asset, PricingAsset: pricing, Price: d(price)}
}

func TestValueInUSD_StableAsset(t *testing.T) {
	r := testResolver()
	v, ok, err := r.ValueInUSD(context.Background(), seed(t), usdc, d("100"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v.Equal(d("100")))
}

func TestValueInUSD_DirectStableRate(t *testing.T) {
	r := testResolver()
	reader := seed(t, latest(tokB, usdc, "2.0"))

	v, ok, err := r.ValueInUSD(context.Background(), reader, tokB, d("50"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v.Equal(d("100")))
}

func TestValueInUSD_StableConfigOrder(t *testing.T) {
	r := testResolver()
	reader := seed(t,
		latest(tokB, dai, "3"),
		latest(tokB, usdc, "2"),
	)

	v, ok, err := r.ValueInUSD(context.Background(), reader, tokB, d("1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v.Equal(d("2")), "first configured stable wins, got %s", v)
}

func TestValueInUSD_ThroughNumeraire(t *testing.T) {
	r := testResolver()
	reader := seed(t,
		latest(tokB, weth, "0.5"),
		latest(weth, usdc, "2000"),
	)

	v, ok, err := r.ValueInUSD(context.Background(), reader, tokB, d("3"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v.Equal(d("3000")))
}

func TestValueInUSD_NoPath(t *testing.T) {
	r := testResolver()
	reader := seed(t, latest(tokB, weth, "0.5"))

	v, ok, err := r.ValueInUSD(context.Background(), reader, tokB, d("3"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, v.IsZero())
}

func TestValueInUSD_TwoHopBound(t *testing.T) {
	r := testResolver()
	// tokC -> tokB -> weth -> usdc would need three hops; only numeraire paths are followed.
	reader := seed(t,
		latest(tokC, tokB, "1"),
		latest(tokB, weth, "1"),
		latest(weth, usdc, "1"),
	)

	_, ok, err := r.ValueInUSD(context.Background(), reader, tokC, d("1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestRate_NonPositiveIsUndetermined(t *testing.T) {
	r := testResolver()
	reader := seed(t, latest(tokB, usdc, "0"))

	_, ok, err := r.LatestRate(context.Background(), reader, tokB, usdc)
	require.NoError(t, err)
	assert.False(t, ok)

	rate, ok, err := r.LatestRate(context.Background(), reader, usdc, usdc)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestValueInNumeraire(t *testing.T) {
	r := testResolver()
	reader := seed(t,
		latest(tokB, weth, "0.25"),
		latest(weth, usdc, "2000"),
	)
	ctx := context.Background()

	v, ok, err := r.ValueInNumeraire(ctx, reader, tokB, d("4"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v.Equal(d("1")))

	// usdc has no direct numeraire rate: 1000 USD / 2000 USD per WETH.
	v, ok, err = r.ValueInNumeraire(ctx, reader, usdc, d("1000"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v.Equal(d("0.5")))

	_, ok, err = r.ValueInNumeraire(ctx, reader, tokC, d("1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSwapValueInUSD(t *testing.T) {
	r := testResolver()
	ctx := context.Background()
	reader := seed(t,
		latest(tokB, usdc, "2"),
		latest(tokC, usdc, "4"),
	)

	tests := []struct {
		name      string
		in        common.Address
		amountIn  string
		out       common.Address
		amountOut string
		want      string
		ok        bool
	}{
		{"stable out side wins", usdc, "10", dai, "9", "9", true},
		{"stable in side", usdc, "10", tokB, "4", "10", true},
		{"average of both", tokB, "10", tokC, "6", "22", true},
		{"only in resolves", tokB, "10", weth, "1", "20", true},
		{"only out resolves", weth, "1", tokC, "2", "8", true},
		{"neither resolves", weth, "1", common.HexToAddress("0xdead"), "1", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok, err := r.SwapValueInUSD(ctx, reader, tt.in, d(tt.amountIn), tt.out, d(tt.amountOut))
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, v.Equal(d(tt.want)), "got %s want %s", v, tt.want)
		})
	}
}

func TestPreferentialPricingAsset(t *testing.T) {
	r := testResolver()

	got, ok := r.PreferentialPricingAsset(usdc, weth)
	require.True(t, ok)
	assert.Equal(t, weth, got, "configured priority, not argument order")

	got, ok = r.PreferentialPricingAsset(tokB, dai)
	require.True(t, ok)
	assert.Equal(t, dai, got)

	_, ok = r.PreferentialPricingAsset(tokB, tokC)
	assert.False(t, ok)
}

func TestSpotPrice_ZeroDenominator(t *testing.T) {
	_, ok := SpotPrice(d("1"), decimal.Zero)
	assert.False(t, ok)

	_, ok = WeightedSpotPrice(d("1"), decimal.Zero, d("1"), d("0.5"))
	assert.False(t, ok)

	p, ok := WeightedSpotPrice(d("800"), d("0.8"), d("200"), d("0.2"))
	require.True(t, ok)
	assert.True(t, p.Equal(d("1")))
}
