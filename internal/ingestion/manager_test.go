package ingestion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/ingestion"
	"pool-analytics-lab/internal/ingestion/stub"
	"pool-analytics-lab/internal/replay"
	"pool-analytics-lab/internal/storage"
	"pool-analytics-lab/internal/storage/memory"
)

func event(block uint64, tx, log uint32) *domain.Event {
	return &domain.Event{
		Ordinal:   domain.Ordinal{Block: block, TxIndex: tx, LogIndex: log},
		Type:      domain.EventTypeSwap,
		Timestamp: int64(block) * 12,
		Swap:      &domain.Swap{Pool: common.HexToAddress("0x01")},
	}
}

// orderValidatingStore wraps an EventStore and rejects out-of-order inserts.
type orderValidatingStore struct {
	storage.EventStore
	last *domain.Ordinal
}

func (s *orderValidatingStore) Insert(ctx context.Context, e *domain.Event) error {
	if s.last != nil && e.Ordinal.Compare(*s.last) <= 0 {
		return replay.ErrInvalidOrdering
	}
	o := e.Ordinal
	s.last = &o
	return s.EventStore.Insert(ctx, e)
}

func TestManager_IngestRange_Ordering(t *testing.T) {
	// Manager must sort before storing, otherwise the validating store fails
	source := stub.NewSource([]*domain.Event{
		event(300, 0, 0),
		event(100, 0, 1),
		event(200, 0, 0),
		event(100, 0, 0),
	})
	store := &orderValidatingStore{EventStore: memory.NewEventStore()}

	var applied []domain.Ordinal
	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		Source: source,
		Events: store,
		Engine: replay.EngineFunc(func(_ context.Context, ev *domain.Event) error {
			applied = append(applied, ev.Ordinal)
			return nil
		}),
	})

	count, err := mgr.IngestRange(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("IngestRange failed: %v (Manager must sort before storing)", err)
	}
	if count != 4 {
		t.Errorf("Expected 4 events ingested, got %d", count)
	}
	if len(applied) != 4 || applied[0] != (domain.Ordinal{Block: 100}) || applied[3].Block != 300 {
		t.Errorf("Engine saw events out of order: %v", applied)
	}
}

func TestManager_IngestRange_SkipsDuplicates(t *testing.T) {
	source := stub.NewSource([]*domain.Event{event(100, 0, 0), event(200, 0, 0)})
	store := memory.NewEventStore()

	applied := 0
	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		Source: source,
		Events: store,
		Engine: replay.EngineFunc(func(context.Context, *domain.Event) error {
			applied++
			return nil
		}),
	})
	ctx := context.Background()

	if _, err := mgr.IngestRange(ctx, 0, 150); err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}

	// Second ingest overlaps the first; only block 200 is new
	count, err := mgr.IngestRange(ctx, 0, 1000)
	if err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 new event, got %d", count)
	}
	if applied != 2 {
		t.Errorf("Expected engine to see 2 events, got %d", applied)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 2 {
		t.Errorf("Expected 2 stored events, got %d", len(all))
	}
}

func TestManager_IngestRange_Empty(t *testing.T) {
	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		Source: stub.NewSource(nil),
		Events: memory.NewEventStore(),
	})

	count, err := mgr.IngestRange(context.Background(), 0, 1000)
	if err != nil {
		t.Errorf("Empty source should not error: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 events, got %d", count)
	}
}

func TestManager_IngestRange_EngineError(t *testing.T) {
	boom := errors.New("boom")
	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		Source: stub.NewSource([]*domain.Event{event(1, 0, 0), event(2, 0, 0)}),
		Events: memory.NewEventStore(),
		Engine: replay.EngineFunc(func(context.Context, *domain.Event) error { return boom }),
	})

	count, err := mgr.IngestRange(context.Background(), 0, 10)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected engine error, got %v", err)
	}
	// The event is in the log even though applying it failed; replay recovers it.
	if count != 1 {
		t.Errorf("Expected 1 stored event, got %d", count)
	}
}
