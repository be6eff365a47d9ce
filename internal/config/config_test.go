package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
assets:
  numeraire: "0x00000000000000000000000000000000000000e1"
  stable:
    - "0x00000000000000000000000000000000000000a1"
    - "0x00000000000000000000000000000000000000a2"
  pricing:
    - "0x00000000000000000000000000000000000000a1"
    - "0x00000000000000000000000000000000000000e1"
  known:
    - address: "0x00000000000000000000000000000000000000a1"
      symbol: USDC
      decimals: 6
    - address: "0x00000000000000000000000000000000000000f1"
      weights: ["0.8", "0.2"]
pricing:
  min_pool_liquidity: "250.5"
buckets: [300, 3600]
storage:
  backend: postgres
  postgres_dsn: postgres://localhost/pools
source:
  kind: kafka
  brokers: ["localhost:9092"]
  topic: ledger-events
  flush_interval: 2s
  fail_on_late: true
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, []int64{300, 3600}, cfg.Buckets)
	assert.Equal(t, 2*time.Second, cfg.Source.FlushInterval)
	assert.True(t, cfg.Source.FailOnLate)
	assert.Equal(t, "debug", cfg.Log.Level)
	// unset fields keep defaults
	assert.Equal(t, int32(18), cfg.DefaultDecimals)
	assert.Equal(t, ":8080", cfg.API.Addr)

	pc := cfg.PricingConfig()
	assert.Equal(t, common.HexToAddress("0xe1"), pc.Numeraire)
	assert.Equal(t, []common.Address{common.HexToAddress("0xa1"), common.HexToAddress("0xa2")}, pc.StableAssets)
	assert.Equal(t, []common.Address{common.HexToAddress("0xa1"), common.HexToAddress("0xe1")}, pc.PricingAssets)

	assert.Equal(t, "250.5", cfg.ProcessorConfig().MinPoolLiquidity.String())

	static, err := cfg.StaticMetadata()
	require.NoError(t, err)
	usdc := static.Tokens[common.HexToAddress("0xa1")]
	assert.Equal(t, "USDC", usdc.Symbol)
	assert.Equal(t, int32(6), usdc.DecimalsOr(18))
	weights := static.Weights[common.HexToAddress("0xf1")]
	require.Len(t, weights, 2)
	assert.Equal(t, "0.8", weights[0].String())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "file", cfg.Source.Kind)
	assert.Equal(t, []int64{3600, 86400}, cfg.Buckets)
	assert.Equal(t, "10", cfg.ProcessorConfig().MinPoolLiquidity.String())
	assert.Equal(t, int32(18), cfg.ProcessorConfig().ShareDecimals)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://env/pools")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/pools", cfg.Storage.PostgresDSN)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Source.Brokers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad address":      "assets:\n  stable: [\"0x1234\"]\n",
		"unknown backend":  "storage:\n  backend: sqlite\n",
		"postgres no dsn":  "storage:\n  backend: postgres\n",
		"kafka no brokers": "source:\n  kind: kafka\n  topic: t\n",
		"bad liquidity":    "pricing:\n  min_pool_liquidity: lots\n",
		"negative":         "pricing:\n  min_pool_liquidity: \"-1\"\n",
		"bad weight":       "assets:\n  known:\n    - address: \"0x00000000000000000000000000000000000000f1\"\n      weights: [\"x\"]\n",
		"zero bucket":      "buckets: [0]\n",
		"bad level":        "log:\n  level: loud\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
