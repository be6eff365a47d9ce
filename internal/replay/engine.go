package replay

import (
	"context"

	"pool-analytics-lab/internal/domain"
)

// ReplayEngine processes events in deterministic order.
type ReplayEngine interface {
	// OnEvent is called for each event in order.
	// Events are guaranteed to be ordered by (block, tx_index, log_index).
	OnEvent(ctx context.Context, event *domain.Event) error
}

// EngineFunc adapts a function to ReplayEngine.
type EngineFunc func(ctx context.Context, event *domain.Event) error

// OnEvent implements ReplayEngine.
func (f EngineFunc) OnEvent(ctx context.Context, event *domain.Event) error {
	return f(ctx, event)
}
