package ingestion

import (
	"sort"

	"pool-analytics-lab/internal/replay"
)

// blockBuffer groups messages by block so a block is released only once it
// is lagWindow blocks behind the highest block seen.
type blockBuffer struct {
	lagWindow   uint64
	blocks      map[uint64][]*Message
	highest     uint64
	released    uint64 // highest block already released, valid when anyReleased
	anyReleased bool
}

func newBlockBuffer(lagWindow uint64) *blockBuffer {
	return &blockBuffer{
		lagWindow: lagWindow,
		blocks:    make(map[uint64][]*Message),
	}
}

// add buffers msg and reports whether it arrived for an already released block.
func (b *blockBuffer) add(msg *Message) (late bool) {
	block := msg.Event.Block
	b.blocks[block] = append(b.blocks[block], msg)
	if block > b.highest {
		b.highest = block
	}
	return b.anyReleased && block <= b.released
}

// finalized removes and returns messages of every block at or below
// highest-lagWindow, ordered by ordinal.
func (b *blockBuffer) finalized() []*Message {
	if b.highest < b.lagWindow {
		return nil
	}
	return b.take(b.highest - b.lagWindow)
}

// drain removes and returns every buffered message, ordered by ordinal.
func (b *blockBuffer) drain() []*Message {
	return b.take(b.highest)
}

// take releases blocks <= upTo.
func (b *blockBuffer) take(upTo uint64) []*Message {
	var blocks []uint64
	for block := range b.blocks {
		if block <= upTo {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	var out []*Message
	for _, block := range blocks {
		out = append(out, b.blocks[block]...)
		delete(b.blocks, block)
	}
	sortMessages(out)

	last := blocks[len(blocks)-1]
	if !b.anyReleased || last > b.released {
		b.released = last
		b.anyReleased = true
	}
	return out
}

// pending returns the number of buffered messages.
func (b *blockBuffer) pending() int {
	n := 0
	for _, msgs := range b.blocks {
		n += len(msgs)
	}
	return n
}

// sortMessages orders messages by event ordinal using the replay ordering.
func sortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return replay.CompareEvents(msgs[i].Event, msgs[j].Event) < 0
	})
}
