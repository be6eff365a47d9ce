package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/aggregate"
	"pool-analytics-lab/internal/config"
	"pool-analytics-lab/internal/liquidity"
	"pool-analytics-lab/internal/metadata"
	"pool-analytics-lab/internal/observability"
	"pool-analytics-lab/internal/pricing"
	"pool-analytics-lab/internal/processor"
	"pool-analytics-lab/internal/registry"
	"pool-analytics-lab/internal/storage"
)

// Sources are the metadata lookups used by the processor and accountant.
// Configured values take precedence over chain calls.
type Sources struct {
	Metadata metadata.Source
	Weights  metadata.WeightSource
	close    func()
}

// Close releases the RPC connection, if any.
func (s *Sources) Close() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

// OpenSources builds metadata lookups from static configuration, chained
// before a JSON-RPC source when rpc.url is set.
func OpenSources(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*Sources, error) {
	static, err := cfg.StaticMetadata()
	if err != nil {
		return nil, err
	}
	if cfg.RPC.URL == "" {
		return &Sources{Metadata: static, Weights: static}, nil
	}

	rpc, closeRPC, err := metadata.DialRPCSource(ctx, cfg.RPC.URL, metadata.RPCOptions{
		RequestsPerSecond: cfg.RPC.RatePerSecond,
		Burst:             cfg.RPC.Burst,
		MaxRetries:        cfg.RPC.MaxRetries,
		CallTimeout:       cfg.RPC.CallTimeout,
		Logger:            logger,
		Metrics:           metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Sources{
		Metadata: metadata.Chain{static, rpc},
		Weights:  metadata.WeightChain{static, rpc},
		close:    closeRPC,
	}, nil
}

// Engine bundles the processor with the registry it writes to.
type Engine struct {
	Registry  *registry.Registry
	Resolver  *pricing.Resolver
	Processor *processor.Processor
}

// NewEngine builds a processor over store. src may be nil, in which case
// token metadata falls back to defaults and pool weights stay equal.
func NewEngine(cfg *config.Config, store storage.EntityStore, backend string, src *Sources, logger *zap.Logger, metrics *observability.Metrics) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if src == nil {
		src = &Sources{}
	}

	reg := registry.New(store)
	resolver := pricing.NewResolver(cfg.PricingConfig())
	accountant := liquidity.NewAccountant(liquidity.Options{
		Resolver: resolver,
		Weights:  src.Weights,
		Logger:   logger,
		Metrics:  metrics,
	})

	p, err := processor.New(processor.Options{
		Registry:   reg,
		Resolver:   resolver,
		Accountant: accountant,
		Aggregator: aggregate.NewAggregator(resolver, cfg.Buckets),
		Metadata:   src.Metadata,
		Config:     cfg.ProcessorConfig(),
		Backend:    backend,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}
	return &Engine{Registry: reg, Resolver: resolver, Processor: p}, nil
}
