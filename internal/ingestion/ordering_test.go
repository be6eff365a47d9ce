package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pool-analytics-lab/internal/domain"
)

func blocksOf(msgs []*Message) []domain.Ordinal {
	out := make([]domain.Ordinal, len(msgs))
	for i, m := range msgs {
		out[i] = m.Event.Ordinal
	}
	return out
}

func TestBlockBuffer_ReleasesBehindLag(t *testing.T) {
	b := newBlockBuffer(2)

	b.add(NewMessage(streamEvent(4, 0), nil))
	b.add(NewMessage(streamEvent(3, 1), nil))
	b.add(NewMessage(streamEvent(3, 0), nil))
	assert.Empty(t, b.finalized(), "only blocks up to 2 are final behind block 4")

	b.add(NewMessage(streamEvent(5, 0), nil))
	assert.Equal(t, []domain.Ordinal{{Block: 3}, {Block: 3, LogIndex: 1}}, blocksOf(b.finalized()))
	assert.Equal(t, 2, b.pending())
}

func TestBlockBuffer_LateDetection(t *testing.T) {
	b := newBlockBuffer(1)

	assert.False(t, b.add(NewMessage(streamEvent(1, 0), nil)))
	assert.False(t, b.add(NewMessage(streamEvent(2, 0), nil)))
	assert.Len(t, b.finalized(), 1)

	assert.True(t, b.add(NewMessage(streamEvent(1, 5), nil)), "block 1 was already released")
	assert.False(t, b.add(NewMessage(streamEvent(3, 0), nil)))
}

func TestBlockBuffer_DrainOrdersEverything(t *testing.T) {
	b := newBlockBuffer(100)
	for _, ev := range []*domain.Event{streamEvent(9, 2), streamEvent(0, 0), streamEvent(9, 1), streamEvent(4, 0)} {
		b.add(NewMessage(ev, nil))
	}

	got := blocksOf(b.drain())
	assert.Equal(t, []domain.Ordinal{{Block: 0}, {Block: 4}, {Block: 9, LogIndex: 1}, {Block: 9, LogIndex: 2}}, got)
	assert.Zero(t, b.pending())
	assert.Empty(t, b.drain())
}
