package buffer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(i int) Item {
	return Item{Topic: fmt.Sprintf("t/%d", i), Payload: []byte(fmt.Sprint(i))}
}

func TestBuffer_Empty(t *testing.T) {
	b := New()

	assert.Equal(t, 0, b.Len())

	_, ok := b.PeekFront()
	assert.False(t, ok)

	_, ok = b.PopFront()
	assert.False(t, ok)

	assert.Empty(t, b.Snapshot())
}

func TestBuffer_FIFO(t *testing.T) {
	b := New()
	b.Push(item(1), item(2))
	b.Push(item(3))

	require.Equal(t, 3, b.Len())
	assert.Equal(t, []Item{item(1), item(2), item(3)}, b.Snapshot())

	for want := 1; want <= 3; want++ {
		head, ok := b.PeekFront()
		require.True(t, ok)
		assert.Equal(t, item(want), head)

		// Peek does not remove.
		assert.Equal(t, 4-want, b.Len())

		popped, ok := b.PopFront()
		require.True(t, ok)
		assert.Equal(t, item(want), popped)
	}

	assert.Equal(t, 0, b.Len())
}

func TestBuffer_ConcurrentPushAndDrain(t *testing.T) {
	const producers, perProducer = 8, 200

	b := New()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Push(Item{Topic: fmt.Sprint(p), Payload: []byte{byte(i)}})
			}
		}(p)
	}

	lastSeen := make(map[string]int)
	drained := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		for {
			it, ok := b.PopFront()
			if !ok {
				return
			}
			// Per-producer order must be preserved.
			seq := int(it.Payload[0])
			if prev, seen := lastSeen[it.Topic]; seen {
				assert.Greater(t, seq, prev)
			}
			lastSeen[it.Topic] = seq
			drained++
		}
	}

	for {
		select {
		case <-done:
			drain()
			assert.Equal(t, producers*perProducer, drained)
			return
		default:
			drain()
		}
	}
}
