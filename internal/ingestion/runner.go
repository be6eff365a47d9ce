package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/observability"
	"pool-analytics-lab/internal/replay"
	"pool-analytics-lab/internal/storage"
)

// ErrLateEvent is returned by Run with RunnerOptions.FailOnLate when an event
// arrives for a block that was already applied.
var ErrLateEvent = errors.New("late event for applied block")

// Runner orchestrates continuous ingestion: stream -> event log -> engine.
type Runner struct {
	source        StreamSource
	events        storage.EventStore
	engine        replay.ReplayEngine
	flushInterval time.Duration // Interval for periodic buffer flush
	failOnLate    bool
	logger        *zap.Logger
	metrics       *observability.Metrics

	// Block-based buffer for deterministic ordering
	buffer *blockBuffer
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source        StreamSource
	Events        storage.EventStore
	Engine        replay.ReplayEngine
	BlockLag      uint64        // Default: 0 - release a block once a higher block arrives
	FlushInterval time.Duration // Default: 5s - force flush of finalized blocks
	FailOnLate    bool          // Stop on a late event instead of dropping it
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		source:        opts.Source,
		events:        opts.Events,
		engine:        opts.Engine,
		flushInterval: flushInterval,
		failOnLate:    opts.FailOnLate,
		logger:        logger,
		metrics:       opts.Metrics,
		buffer:        newBlockBuffer(opts.BlockLag + 1),
	}
}

// Run consumes the stream until it closes or ctx is cancelled.
// Buffered events are flushed in order before returning. An infrastructure
// failure stops the runner; the failed message is left unacknowledged.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return errors.New("ingestion: no stream source")
	}

	msgs, err := r.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	r.logger.Info("ingestion runner started",
		zap.Uint64("block_lag", r.buffer.lagWindow-1),
		zap.Duration("flush_interval", r.flushInterval))

	for {
		select {
		case <-ctx.Done():
			// Flush what was already received; the stores must not see a cancelled context.
			if err := r.process(context.WithoutCancel(ctx), r.buffer.drain()); err != nil {
				return err
			}
			r.logger.Info("ingestion runner stopping")
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				r.logger.Info("event stream closed", zap.Int("flushing", r.buffer.pending()))
				return r.process(ctx, r.buffer.drain())
			}
			if err := r.enqueue(ctx, msg); err != nil {
				return err
			}

		case <-flushTicker.C:
			if err := r.process(ctx, r.buffer.finalized()); err != nil {
				return err
			}
		}
	}
}

// enqueue adds msg to the block buffer and processes finalized blocks.
func (r *Runner) enqueue(ctx context.Context, msg *Message) error {
	if msg == nil || msg.Event == nil {
		return nil
	}
	if late := r.buffer.add(msg); late {
		for _, m := range r.buffer.take(msg.Event.Block) {
			if err := r.handleLate(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}
	return r.process(ctx, r.buffer.finalized())
}

// handleLate settles a message whose block was already applied. The engine
// never sees it: applying it now would break ordinal order. A redelivery of a
// logged event is acknowledged. Any other event is dropped and acknowledged,
// or with failOnLate the runner stops and leaves it unacknowledged.
func (r *Runner) handleLate(ctx context.Context, msg *Message) error {
	ev := msg.Event
	fields := []zap.Field{
		zap.Uint64("block", ev.Block),
		zap.Uint32("tx_index", ev.TxIndex),
		zap.Uint32("log_index", ev.LogIndex),
		zap.Uint64("released", r.buffer.released),
	}

	logged, err := r.inLog(ctx, ev)
	if err != nil {
		return err
	}
	if logged {
		r.metrics.RecordDuplicate()
		r.logger.Debug("redelivered event for applied block", fields...)
		r.ack(ctx, msg)
		return nil
	}

	if r.failOnLate {
		r.logger.Error("late event, stopping ingestion", fields...)
		return fmt.Errorf("%w: %d/%d/%d", ErrLateEvent, ev.Block, ev.TxIndex, ev.LogIndex)
	}
	r.metrics.RecordLateDropped()
	r.logger.Warn("late event dropped: block already applied, raise source.block_lag", fields...)
	r.ack(ctx, msg)
	return nil
}

// inLog reports whether the event log holds ev's ordinal.
func (r *Runner) inLog(ctx context.Context, ev *domain.Event) (bool, error) {
	if r.events == nil {
		return false, nil
	}
	stored, err := r.events.GetByBlockRange(ctx, ev.Block, ev.Block)
	if err != nil {
		return false, fmt.Errorf("look up block %d: %w", ev.Block, err)
	}
	for _, s := range stored {
		if s.Ordinal == ev.Ordinal {
			return true, nil
		}
	}
	return false, nil
}

func (r *Runner) ack(ctx context.Context, msg *Message) {
	if err := msg.Ack(ctx); err != nil {
		r.logger.Error("ack failed", zap.Uint64("block", msg.Event.Block), zap.Error(err))
	}
}

// process stores, applies and acknowledges messages in order.
func (r *Runner) process(ctx context.Context, msgs []*Message) error {
	for _, msg := range msgs {
		ev := msg.Event
		if err := appendEvent(ctx, r.events, ev, r.logger, r.metrics); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
		// Events already in the log are still forwarded: the engine skips what it has applied.
		if r.engine != nil {
			if err := r.engine.OnEvent(ctx, ev); err != nil {
				r.logger.Error("apply event failed",
					zap.Uint64("block", ev.Block),
					zap.Uint32("log_index", ev.LogIndex),
					zap.Error(err))
				return err
			}
		}
		r.ack(ctx, msg)
	}
	return nil
}
