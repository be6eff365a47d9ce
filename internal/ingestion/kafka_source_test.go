package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pool-analytics-lab/internal/storage/memory"
)

// fakeKafkaReader serves queued messages, then blocks until ctx is done.
type fakeKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeKafkaReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeKafkaReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeKafkaReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestKafkaSource_CommitsOnAck(t *testing.T) {
	reader := &fakeKafkaReader{queue: []kafka.Message{
		{Offset: 10, Value: []byte(encodeEvent(t, streamEvent(1, 0)))},
		{Offset: 11, Value: []byte("not json")},
		{Offset: 12, Value: []byte(encodeEvent(t, streamEvent(2, 0)))},
	}}
	src := newKafkaSource(reader, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := src.Subscribe(ctx)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, uint64(1), first.Event.Block)
	second := <-ch
	assert.Equal(t, uint64(2), second.Event.Block)

	// Only the malformed message is committed before any ack.
	assert.Equal(t, []int64{11}, reader.commits())

	require.NoError(t, first.Ack(ctx))
	require.NoError(t, second.Ack(ctx))
	assert.Equal(t, []int64{11, 10, 12}, reader.commits())

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close after cancellation")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancellation")
	}

	require.NoError(t, src.Close())
	assert.True(t, reader.closed)
}

func TestKafkaSource_FeedsRunner(t *testing.T) {
	reader := &fakeKafkaReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(encodeEvent(t, streamEvent(5, 1)))},
		{Offset: 2, Value: []byte(encodeEvent(t, streamEvent(5, 0)))},
		{Offset: 3, Value: []byte(encodeEvent(t, streamEvent(6, 0)))},
	}}
	engine := &recordingEngine{}
	runner := NewRunner(RunnerOptions{
		Source: newKafkaSource(reader, nil),
		Events: memory.NewEventStore(),
		Engine: engine,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The source closes its channel on cancellation, so either exit path is clean.
	if err := runner.Run(ctx); err != nil {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	assertOrdered(t, engine.applied)
	assert.Len(t, engine.applied, 3)
	assert.ElementsMatch(t, []int64{1, 2, 3}, reader.commits())
}
