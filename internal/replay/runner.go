package replay

import (
	"context"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// Runner loads events from storage and replays them in deterministic order.
type Runner struct {
	events storage.EventStore
}

// NewRunner creates a new replay runner.
func NewRunner(events storage.EventStore) *Runner {
	return &Runner{events: events}
}

// Run replays events in the inclusive block range through the engine.
func (r *Runner) Run(ctx context.Context, fromBlock, toBlock uint64, engine ReplayEngine) (int, error) {
	events, err := r.events.GetByBlockRange(ctx, fromBlock, toBlock)
	if err != nil {
		return 0, err
	}
	return replay(ctx, events, engine)
}

// RunAll replays the whole event log through the engine.
func (r *Runner) RunAll(ctx context.Context, engine ReplayEngine) (int, error) {
	events, err := r.events.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return replay(ctx, events, engine)
}

func replay(ctx context.Context, events []*domain.Event, engine ReplayEngine) (int, error) {
	SortEvents(events)
	if err := ValidateOrder(events); err != nil {
		return 0, err
	}

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := engine.OnEvent(ctx, event); err != nil {
			return i, err
		}
	}
	return len(events), nil
}
