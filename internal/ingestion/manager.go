package ingestion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/observability"
	"pool-analytics-lab/internal/replay"
	"pool-analytics-lab/internal/storage"
)

// Manager orchestrates batch ingestion from a source into the event log.
// It enforces deterministic ordering and uses the storage layer for duplicate rejection.
type Manager struct {
	source  BatchSource
	events  storage.EventStore
	engine  replay.ReplayEngine
	logger  *zap.Logger
	metrics *observability.Metrics
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source BatchSource
	Events storage.EventStore
	// Engine, when set, receives every newly stored event in order.
	Engine  replay.ReplayEngine
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewManager creates a new ingestion manager with the provided source and store.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		source:  opts.Source,
		events:  opts.Events,
		engine:  opts.Engine,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// IngestRange fetches events in [from, to], stores them in ordinal order and
// forwards the newly stored ones to the engine.
// Returns the count of newly stored events. Events already in the log are
// skipped, not treated as failures.
func (m *Manager) IngestRange(ctx context.Context, from, to uint64) (int, error) {
	if m.source == nil || m.events == nil {
		return 0, nil
	}

	events, err := m.source.Fetch(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("fetch blocks %d-%d: %w", from, to, err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	// Enforce deterministic ordering
	replay.SortEvents(events)

	stored := 0
	for _, ev := range events {
		if err := m.store(ctx, ev); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return stored, err
		}
		stored++

		if m.engine != nil {
			if err := m.engine.OnEvent(ctx, ev); err != nil {
				return stored, fmt.Errorf("apply event %d/%d/%d: %w", ev.Block, ev.TxIndex, ev.LogIndex, err)
			}
		}
	}
	return stored, nil
}

// store appends one event to the log, recording duplicates.
func (m *Manager) store(ctx context.Context, ev *domain.Event) error {
	return appendEvent(ctx, m.events, ev, m.logger, m.metrics)
}

func appendEvent(ctx context.Context, events storage.EventStore, ev *domain.Event, logger *zap.Logger, metrics *observability.Metrics) error {
	err := events.Insert(ctx, ev)
	switch {
	case err == nil:
		metrics.RecordIngested(string(ev.Type))
		return nil
	case errors.Is(err, storage.ErrDuplicateKey):
		metrics.RecordDuplicate()
		logger.Debug("event already in log",
			zap.Uint64("block", ev.Block),
			zap.Uint32("tx_index", ev.TxIndex),
			zap.Uint32("log_index", ev.LogIndex))
		return err
	default:
		return fmt.Errorf("store event %d/%d/%d: %w", ev.Block, ev.TxIndex, ev.LogIndex, err)
	}
}
