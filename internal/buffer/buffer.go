// Package buffer holds encoded events awaiting delivery.
//
// The buffer is an unbounded FIFO: items are appended at the tail and only
// ever removed from the head. Backpressure, if needed, is the host's job.
package buffer

import (
	"sync"

	"github.com/eapache/queue"
)

// Item is one encoded event ready to publish.
type Item struct {
	Topic   string
	Payload []byte
}

// Buffer is a FIFO of Items.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Pushes from new arrivals may
//     overlap with a drain peeking and popping the head.
type Buffer struct {
	mu sync.Mutex
	q  *queue.Queue
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{q: queue.New()}
}

// Push appends items at the tail, preserving their order. It never fails.
func (b *Buffer) Push(items ...Item) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, it := range items {
		b.q.Add(it)
	}
}

// PeekFront returns the head item without removing it.
func (b *Buffer) PeekFront() (Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.q.Length() == 0 {
		return Item{}, false
	}
	return b.q.Peek().(Item), true
}

// PopFront removes and returns the head item.
func (b *Buffer) PopFront() (Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.q.Length() == 0 {
		return Item{}, false
	}
	return b.q.Remove().(Item), true
}

// Len returns the number of buffered items.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.q.Length()
}

// Snapshot returns a copy of the buffered items in order.
func (b *Buffer) Snapshot() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]Item, b.q.Length())
	for i := range items {
		items[i] = b.q.Get(i).(Item)
	}
	return items
}
