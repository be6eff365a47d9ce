// Package processor applies decoded ledger events to the entity registry.
//
// Events are applied one at a time in ordinal order. Each event runs in its own
// registry unit of work: either every derived write commits together with the
// checkpoint, or nothing from the event is written.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/aggregate"
	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/liquidity"
	"pool-analytics-lab/internal/metadata"
	"pool-analytics-lab/internal/observability"
	"pool-analytics-lab/internal/pricing"
	"pool-analytics-lab/internal/registry"
)

// ErrInvalidEvent is wrapped by validation failures.
var ErrInvalidEvent = errors.New("invalid event")

// Outcome classifies how an event was handled.
type Outcome string

const (
	// OutcomeApplied means the event's writes were committed.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the event is at or before the checkpoint.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeSkipped means the event was dropped without writing anything.
	OutcomeSkipped Outcome = "skipped"
)

// Skip reasons.
const (
	ReasonInvalidEvent    = "invalid_event"
	ReasonUnknownPool     = "unknown_pool"
	ReasonUnknownAsset    = "unknown_asset"
	ReasonNegativeBalance = "negative_balance"
)

// Result reports the outcome of Apply.
type Result struct {
	Outcome Outcome
	Reason  string // set when Outcome is OutcomeSkipped
}

// Config holds processing parameters.
type Config struct {
	// MinPoolLiquidity is the USD valuation a pool must exceed before its swaps record prices.
	MinPoolLiquidity decimal.Decimal
	// DefaultDecimals applies to assets whose decimals cannot be fetched.
	DefaultDecimals int32
	// ShareDecimals scales pool share token amounts.
	ShareDecimals int32
}

// DefaultConfig returns the standard processing parameters.
func DefaultConfig() Config {
	return Config{
		MinPoolLiquidity: decimal.NewFromInt(10),
		DefaultDecimals:  metadata.DefaultDecimals,
		ShareDecimals:    18,
	}
}

// Options configures a Processor.
type Options struct {
	Registry   *registry.Registry
	Resolver   *pricing.Resolver
	Accountant *liquidity.Accountant
	Aggregator *aggregate.Aggregator
	// Metadata resolves token symbol, name and decimals. Nil uses metadata.Nop.
	Metadata metadata.Source
	Config   Config
	// Backend labels commit metrics.
	Backend string
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Processor applies events to the registry.
type Processor struct {
	reg        *registry.Registry
	resolver   *pricing.Resolver
	accountant *liquidity.Accountant
	aggregator *aggregate.Aggregator
	meta       metadata.Source
	cfg        Config
	backend    string
	validate   *validator.Validate
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// New creates a Processor. Accountant and Aggregator default to instances
// built on the given Resolver.
func New(opts Options) (*Processor, error) {
	if opts.Registry == nil {
		return nil, errors.New("processor: registry is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("processor: resolver is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	meta := opts.Metadata
	if meta == nil {
		meta = metadata.Nop{}
	}
	accountant := opts.Accountant
	if accountant == nil {
		accountant = liquidity.NewAccountant(liquidity.Options{
			Resolver: opts.Resolver,
			Logger:   logger,
			Metrics:  opts.Metrics,
		})
	}
	aggregator := opts.Aggregator
	if aggregator == nil {
		aggregator = aggregate.NewAggregator(opts.Resolver, nil)
	}
	cfg := opts.Config
	if cfg.MinPoolLiquidity.IsZero() && cfg.DefaultDecimals == 0 && cfg.ShareDecimals == 0 {
		cfg = DefaultConfig()
	}
	backend := opts.Backend
	if backend == "" {
		backend = "memory"
	}

	return &Processor{
		reg:        opts.Registry,
		resolver:   opts.Resolver,
		accountant: accountant,
		aggregator: aggregator,
		meta:       meta,
		cfg:        cfg,
		backend:    backend,
		validate:   validator.New(),
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// Apply processes one event. Only infrastructure failures are returned as errors;
// in that case nothing from the event is committed.
func (p *Processor) Apply(ctx context.Context, ev *domain.Event) (Result, error) {
	start := time.Now()

	if err := p.validateEvent(ev); err != nil {
		p.logger.Warn("invalid event dropped", append(eventFields(ev), zap.Error(err))...)
		return p.finish(ev, start, Result{Outcome: OutcomeSkipped, Reason: ReasonInvalidEvent}), nil
	}

	tx := p.reg.Begin()
	defer tx.Discard()

	cp, err := registry.Load[domain.Checkpoint](ctx, tx, domain.GlobalID)
	if err != nil {
		return Result{}, err
	}
	if cp != nil && ev.Ordinal.Compare(cp.Ordinal()) <= 0 {
		p.logger.Debug("duplicate event skipped", eventFields(ev)...)
		p.metrics.RecordDuplicate()
		return p.finish(ev, start, Result{Outcome: OutcomeDuplicate}), nil
	}

	reason, err := p.dispatch(ctx, tx, ev)
	if err != nil {
		return Result{}, fmt.Errorf("apply %s at %d/%d/%d: %w", ev.Type, ev.Block, ev.TxIndex, ev.LogIndex, err)
	}
	if reason != "" {
		p.logger.Warn("event skipped", append(eventFields(ev), zap.String("reason", reason))...)
		return p.finish(ev, start, Result{Outcome: OutcomeSkipped, Reason: reason}), nil
	}

	if cp == nil {
		cp = &domain.Checkpoint{ID: domain.GlobalID}
	}
	cp.Block, cp.TxIndex, cp.LogIndex = ev.Block, ev.TxIndex, ev.LogIndex
	cp.Timestamp = ev.Timestamp
	cp.Applied++
	if err := tx.Upsert(cp); err != nil {
		return Result{}, err
	}

	commitStart := time.Now()
	err = tx.Commit(ctx)
	p.metrics.RecordCommit(p.backend, time.Since(commitStart), err)
	if err != nil {
		return Result{}, fmt.Errorf("commit %s at %d/%d/%d: %w", ev.Type, ev.Block, ev.TxIndex, ev.LogIndex, err)
	}

	p.metrics.SetLastProcessedBlock(ev.Block)
	return p.finish(ev, start, Result{Outcome: OutcomeApplied}), nil
}

// OnEvent applies ev and discards the Result.
func (p *Processor) OnEvent(ctx context.Context, ev *domain.Event) error {
	_, err := p.Apply(ctx, ev)
	return err
}

// Checkpoint returns the last applied ordinal, or nil before the first event.
func (p *Processor) Checkpoint(ctx context.Context) (*domain.Checkpoint, error) {
	return registry.Load[domain.Checkpoint](ctx, p.reg.Reader(), domain.GlobalID)
}

func (p *Processor) dispatch(ctx context.Context, tx *registry.Tx, ev *domain.Event) (string, error) {
	switch ev.Type {
	case domain.EventTypePoolRegistered:
		return p.handlePoolRegistered(ctx, tx, ev)
	case domain.EventTypeSwap:
		return p.handleSwap(ctx, tx, ev)
	case domain.EventTypeBalanceChange:
		return p.handleBalanceChange(ctx, tx, ev)
	case domain.EventTypeShareTransfer:
		return p.handleShareTransfer(ctx, tx, ev)
	case domain.EventTypeSwapFeeChange:
		return p.handleSwapFeeChange(ctx, tx, ev)
	case domain.EventTypeInternalBalanceChange:
		return p.handleInternalBalanceChange(ctx, tx, ev)
	case domain.EventTypeAmpUpdateStarted:
		return p.handleAmpUpdateStarted(ctx, tx, ev)
	case domain.EventTypeAmpUpdateStopped:
		return p.handleAmpUpdateStopped(ctx, tx, ev)
	default:
		return ReasonInvalidEvent, nil
	}
}

func (p *Processor) finish(ev *domain.Event, start time.Time, res Result) Result {
	eventType := "unknown"
	if ev != nil {
		eventType = string(ev.Type)
	}
	p.metrics.RecordEvent(eventType, string(res.Outcome), time.Since(start))
	if res.Outcome == OutcomeSkipped {
		p.metrics.RecordSkip(res.Reason)
	}
	return res
}

func eventFields(ev *domain.Event) []zap.Field {
	if ev == nil {
		return nil
	}
	return []zap.Field{
		zap.String("type", string(ev.Type)),
		zap.String("pool", domain.AddrID(ev.Pool())),
		zap.Uint64("block", ev.Block),
		zap.Uint32("tx_index", ev.TxIndex),
		zap.Uint32("log_index", ev.LogIndex),
	}
}
