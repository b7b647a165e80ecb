package shutdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_InitiallyUnset(t *testing.T) {
	c := New()
	assert.False(t, c.Requested())

	select {
	case <-c.done:
		t.Fatal("done closed before Request()")
	default:
	}
}

func TestCoordinator_RequestIsIdempotent(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Request()
		}()
	}
	wg.Wait()
	c.Request()

	assert.True(t, c.Requested())
	<-c.done
}

func TestCoordinator_WaitElapses(t *testing.T) {
	c := New()

	start := time.Now()
	err := c.Wait(context.Background(), 20*time.Millisecond)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestCoordinator_WaitInterruptedByShutdown(t *testing.T) {
	c := New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Request()
	}()

	start := time.Now()
	err := c.Wait(context.Background(), time.Hour)

	require.ErrorIs(t, err, ErrShutdown)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCoordinator_WaitAfterShutdownReturnsImmediately(t *testing.T) {
	c := New()
	c.Request()

	start := time.Now()
	err := c.Wait(context.Background(), time.Hour)

	require.ErrorIs(t, err, ErrShutdown)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestCoordinator_WaitCancelledByContext(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Wait(ctx, time.Hour)

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Requested())
}
