// Package config loads indexer configuration from YAML, an optional .env
// file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"pool-analytics-lab/internal/aggregate"
	"pool-analytics-lab/internal/metadata"
	"pool-analytics-lab/internal/pricing"
	"pool-analytics-lab/internal/processor"
)

// Config holds all indexer configuration.
type Config struct {
	Assets          AssetsConfig  `yaml:"assets"`
	Pricing         PricingConfig `yaml:"pricing"`
	DefaultDecimals int32         `yaml:"default_decimals" validate:"gte=0,lte=77"`
	ShareDecimals   int32         `yaml:"share_decimals" validate:"gte=0,lte=77"`
	// Buckets are the aggregation bucket lengths in seconds.
	Buckets []int64       `yaml:"buckets" validate:"min=1,dive,gt=0"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	Source  SourceConfig  `yaml:"source"`
	RPC     RPCConfig     `yaml:"rpc"`
	API     APIConfig     `yaml:"api"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// AssetsConfig names the assets that anchor pricing. Order is priority order.
type AssetsConfig struct {
	Numeraire string       `yaml:"numeraire" validate:"omitempty,eth_addr"`
	Stable    []string     `yaml:"stable" validate:"dive,eth_addr"`
	Pricing   []string     `yaml:"pricing" validate:"dive,eth_addr"`
	Known     []KnownAsset `yaml:"known" validate:"dive"`
}

// KnownAsset is token metadata supplied by configuration instead of RPC.
type KnownAsset struct {
	Address  string   `yaml:"address" validate:"required,eth_addr"`
	Symbol   string   `yaml:"symbol"`
	Name     string   `yaml:"name"`
	Decimals *int32   `yaml:"decimals" validate:"omitempty,gte=0,lte=77"`
	Weights  []string `yaml:"weights"` // for pools: normalized weights in asset order
}

// PricingConfig holds price-recording thresholds.
type PricingConfig struct {
	// MinPoolLiquidity is a decimal string.
	MinPoolLiquidity string `yaml:"min_pool_liquidity" validate:"required"`
}

// StorageConfig selects the entity and event store backend.
type StorageConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=memory postgres redis"`
	PostgresDSN   string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	MaxConns      int32  `yaml:"max_conns"`
	RedisAddr     string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// HistoryConfig configures the ClickHouse history sink.
type HistoryConfig struct {
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// SourceConfig selects where ledger events come from.
type SourceConfig struct {
	Kind          string        `yaml:"kind" validate:"oneof=file kafka"`
	Path          string        `yaml:"path" validate:"required_if=Kind file"`
	Brokers       []string      `yaml:"brokers" validate:"required_if=Kind kafka"`
	Topic         string        `yaml:"topic" validate:"required_if=Kind kafka"`
	Group         string        `yaml:"group"`
	BlockLag      uint64        `yaml:"block_lag"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	FailOnLate    bool          `yaml:"fail_on_late"` // stop instead of dropping events for applied blocks
}

// RPCConfig configures the Ethereum JSON-RPC metadata source. An empty URL disables it.
type RPCConfig struct {
	URL           string        `yaml:"url" validate:"omitempty,url"`
	RatePerSecond float64       `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int           `yaml:"burst" validate:"gte=0"`
	MaxRetries    uint64        `yaml:"max_retries"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
}

// APIConfig configures the query API listener.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when a field is not set.
func Default() *Config {
	return &Config{
		Pricing:         PricingConfig{MinPoolLiquidity: "10"},
		DefaultDecimals: metadata.DefaultDecimals,
		ShareDecimals:   18,
		Buckets:         append([]int64(nil), aggregate.DefaultBucketLengths...),
		Storage:         StorageConfig{Backend: "memory", RedisPrefix: "entities"},
		Source:          SourceConfig{Kind: "file", Path: "events.jsonl", Group: "pool-analytics", FlushInterval: 5 * time.Second},
		RPC:             RPCConfig{RatePerSecond: 10, MaxRetries: 3, CallTimeout: 10 * time.Second},
		API:             APIConfig{Addr: ":8080"},
		Metrics:         MetricsConfig{Addr: ":9090", Namespace: "pool_analytics"},
		Log:             LogConfig{Level: "info"},
	}
}

// Load reads .env (optional), then the YAML file at path (optional when
// empty), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides connection settings from the environment.
func (c *Config) applyEnv() {
	c.Storage.PostgresDSN = getEnv("POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.RedisAddr = getEnv("REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnv("REDIS_PASSWORD", c.Storage.RedisPassword)
	c.History.ClickHouseDSN = getEnv("CLICKHOUSE_DSN", c.History.ClickHouseDSN)
	c.RPC.URL = getEnv("RPC_URL", c.RPC.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Source.Brokers = splitList(brokers)
	}
}

// Validate checks field constraints and decimal strings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.MinPoolLiquidity(); err != nil {
		return err
	}
	if _, err := c.StaticMetadata(); err != nil {
		return err
	}
	return nil
}

// MinPoolLiquidity parses pricing.min_pool_liquidity.
func (c *Config) MinPoolLiquidity() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Pricing.MinPoolLiquidity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid config: pricing.min_pool_liquidity %q: %w", c.Pricing.MinPoolLiquidity, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid config: pricing.min_pool_liquidity must not be negative")
	}
	return d, nil
}

// PricingConfig returns the resolver configuration.
func (c *Config) PricingConfig() pricing.Config {
	cfg := pricing.Config{
		StableAssets:  addresses(c.Assets.Stable),
		PricingAssets: addresses(c.Assets.Pricing),
	}
	if c.Assets.Numeraire != "" {
		cfg.Numeraire = common.HexToAddress(c.Assets.Numeraire)
	}
	return cfg
}

// ProcessorConfig returns the processor thresholds. Call after Validate.
func (c *Config) ProcessorConfig() processor.Config {
	minLiquidity, _ := c.MinPoolLiquidity()
	return processor.Config{
		MinPoolLiquidity: minLiquidity,
		DefaultDecimals:  c.DefaultDecimals,
		ShareDecimals:    c.ShareDecimals,
	}
}

// StaticMetadata builds the configured token metadata and pool weights.
func (c *Config) StaticMetadata() (*metadata.Static, error) {
	s := &metadata.Static{
		Tokens:  make(map[common.Address]metadata.Metadata),
		Weights: make(map[common.Address][]decimal.Decimal),
	}
	for _, k := range c.Assets.Known {
		addr := common.HexToAddress(k.Address)
		s.Tokens[addr] = metadata.Metadata{Symbol: k.Symbol, Name: k.Name, Decimals: k.Decimals}
		if len(k.Weights) == 0 {
			continue
		}
		weights := make([]decimal.Decimal, len(k.Weights))
		for i, w := range k.Weights {
			d, err := decimal.NewFromString(w)
			if err != nil {
				return nil, fmt.Errorf("invalid config: weight %q of %s: %w", w, k.Address, err)
			}
			weights[i] = d
		}
		s.Weights[addr] = weights
	}
	return s, nil
}

func addresses(hex []string) []common.Address {
	out := make([]common.Address, 0, len(hex))
	for _, h := range hex {
		out = append(out, common.HexToAddress(h))
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
