package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage/memory"
)

// mockStreamSource implements a controllable stream source for testing.
type mockStreamSource struct {
	ch    chan *Message
	acked []domain.Ordinal
}

func newMockStreamSource() *mockStreamSource {
	return &mockStreamSource{ch: make(chan *Message, 100)}
}

func (m *mockStreamSource) Subscribe(ctx context.Context) (<-chan *Message, error) {
	return m.ch, nil
}

func (m *mockStreamSource) Send(ev *domain.Event) {
	m.ch <- m.message(ev)
}

func (m *mockStreamSource) message(ev *domain.Event) *Message {
	return NewMessage(ev, func(context.Context) error {
		m.acked = append(m.acked, ev.Ordinal)
		return nil
	})
}

func (m *mockStreamSource) Close() {
	close(m.ch)
}

// recordingEngine records applied ordinals.
type recordingEngine struct {
	applied []domain.Ordinal
	failAt  uint64
}

func (e *recordingEngine) OnEvent(_ context.Context, ev *domain.Event) error {
	if e.failAt != 0 && ev.Block == e.failAt {
		return errors.New("apply failed")
	}
	e.applied = append(e.applied, ev.Ordinal)
	return nil
}

func streamEvent(block uint64, log uint32) *domain.Event {
	return &domain.Event{
		Ordinal:   domain.Ordinal{Block: block, LogIndex: log},
		Type:      domain.EventTypeSwap,
		Timestamp: int64(block) * 12,
		Swap:      &domain.Swap{Pool: common.HexToAddress("0x01")},
	}
}

func assertOrdered(t *testing.T, ordinals []domain.Ordinal) {
	t.Helper()
	for i := 1; i < len(ordinals); i++ {
		assert.Negative(t, ordinals[i-1].Compare(ordinals[i]), "ordinal %d out of order", i)
	}
}

func TestRunner_BlockBasedOrdering(t *testing.T) {
	store := memory.NewEventStore()
	engine := &recordingEngine{}

	runner := NewRunner(RunnerOptions{
		Events:   store,
		Engine:   engine,
		BlockLag: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Manually buffer events out of order
	require.NoError(t, runner.enqueue(ctx, NewMessage(streamEvent(5, 0), nil)))
	require.NoError(t, runner.enqueue(ctx, NewMessage(streamEvent(3, 0), nil)))
	require.NoError(t, runner.enqueue(ctx, NewMessage(streamEvent(4, 0), nil)))

	// Trigger processing by sending a higher block
	require.NoError(t, runner.enqueue(ctx, NewMessage(streamEvent(8, 0), nil)))

	// Blocks 3, 4, 5 are finalized (8 - 3 = 5); block 8 stays buffered
	assert.Equal(t, 1, runner.buffer.pending(), "Only block 8 should remain in buffer")
	assert.Contains(t, runner.buffer.blocks, uint64(8))

	events, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 3, "3 events should have been processed")
	assert.Equal(t, []domain.Ordinal{{Block: 3}, {Block: 4}, {Block: 5}}, engine.applied)
}

func TestRunner_FlushOnStreamClose(t *testing.T) {
	source := newMockStreamSource()
	store := memory.NewEventStore()
	engine := &recordingEngine{}

	runner := NewRunner(RunnerOptions{
		Source:   source,
		Events:   store,
		Engine:   engine,
		BlockLag: 10,
	})

	source.Send(streamEvent(2, 1))
	source.Send(streamEvent(1, 0))
	source.Send(streamEvent(2, 0))
	source.Close()

	require.NoError(t, runner.Run(context.Background()))

	assert.Len(t, engine.applied, 3)
	assertOrdered(t, engine.applied)
	assert.Equal(t, engine.applied, source.acked, "every applied event is acknowledged in order")
}

func TestRunner_FlushOnShutdown(t *testing.T) {
	source := newMockStreamSource()
	engine := &recordingEngine{}

	runner := NewRunner(RunnerOptions{
		Source:   source,
		Events:   memory.NewEventStore(),
		Engine:   engine,
		BlockLag: 100,
	})

	source.Send(streamEvent(7, 0))
	source.Send(streamEvent(6, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []domain.Ordinal{{Block: 6}, {Block: 7}}, engine.applied)
}

func TestRunner_LateEventDropped(t *testing.T) {
	source := newMockStreamSource()
	store := memory.NewEventStore()
	engine := &recordingEngine{}
	runner := NewRunner(RunnerOptions{Events: store, Engine: engine})
	ctx := context.Background()

	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(10, 0))))
	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(11, 0))))
	require.Equal(t, []domain.Ordinal{{Block: 10}}, engine.applied)

	// Block 10 was already applied: the late event never reaches the engine
	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(10, 3))))
	assert.Equal(t, []domain.Ordinal{{Block: 10}}, engine.applied)
	assert.Contains(t, source.acked, domain.Ordinal{Block: 10, LogIndex: 3})
	assert.Equal(t, 1, runner.buffer.pending(), "block 11 is still buffered")

	stored, err := store.GetByBlockRange(ctx, 10, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "dropped events stay out of the log so replay matches live state")
}

func TestRunner_LateRedeliveryAcknowledged(t *testing.T) {
	source := newMockStreamSource()
	engine := &recordingEngine{}
	runner := NewRunner(RunnerOptions{Events: memory.NewEventStore(), Engine: engine, FailOnLate: true})
	ctx := context.Background()

	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(10, 0))))
	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(11, 0))))

	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(10, 0))))
	assert.Len(t, engine.applied, 1)
	assert.Equal(t, []domain.Ordinal{{Block: 10}, {Block: 10}}, source.acked)
}

func TestRunner_LateEventStopsWhenStrict(t *testing.T) {
	source := newMockStreamSource()
	engine := &recordingEngine{}
	runner := NewRunner(RunnerOptions{Events: memory.NewEventStore(), Engine: engine, FailOnLate: true})
	ctx := context.Background()

	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(10, 0))))
	require.NoError(t, runner.enqueue(ctx, source.message(streamEvent(11, 0))))

	err := runner.enqueue(ctx, source.message(streamEvent(10, 3)))
	require.ErrorIs(t, err, ErrLateEvent)
	assert.NotContains(t, source.acked, domain.Ordinal{Block: 10, LogIndex: 3})
	assert.Len(t, engine.applied, 1)
}

func TestRunner_RedeliveryReachesEngine(t *testing.T) {
	source := newMockStreamSource()
	store := memory.NewEventStore()
	engine := &recordingEngine{}

	// The event is already in the log, e.g. stored before a crash
	require.NoError(t, store.Insert(context.Background(), streamEvent(1, 0)))

	runner := NewRunner(RunnerOptions{Source: source, Events: store, Engine: engine})
	source.Send(streamEvent(1, 0))
	source.Close()

	require.NoError(t, runner.Run(context.Background()))
	assert.Len(t, engine.applied, 1)
	assert.Len(t, source.acked, 1)
}

func TestRunner_EngineFailureLeavesMessageUnacked(t *testing.T) {
	source := newMockStreamSource()
	engine := &recordingEngine{failAt: 2}

	runner := NewRunner(RunnerOptions{Source: source, Events: memory.NewEventStore(), Engine: engine})
	source.Send(streamEvent(1, 0))
	source.Send(streamEvent(2, 0))
	source.Send(streamEvent(3, 0))
	source.Close()

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []domain.Ordinal{{Block: 1}}, source.acked)
}

func TestRunner_NoSource(t *testing.T) {
	runner := NewRunner(RunnerOptions{})
	assert.Error(t, runner.Run(context.Background()))
}

func TestRunner_DefaultValues(t *testing.T) {
	runner := NewRunner(RunnerOptions{})

	assert.Equal(t, 5*time.Second, runner.flushInterval, "Default flush interval should be 5s")
	assert.Equal(t, uint64(1), runner.buffer.lagWindow, "Default releases a block once a higher one arrives")
	assert.NotNil(t, runner.logger, "Logger should not be nil")
}
