// Package shutdown provides the flag that lets a process stop an in-progress
// delivery backoff promptly.
package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdown is returned by Wait when a shutdown was requested during the wait.
var ErrShutdown = errors.New("shutdown: requested")

// Coordinator is a one-way flag: false at construction, true after the first
// Request. The zero value is not usable; use New.
type Coordinator struct {
	once      sync.Once
	requested atomic.Bool
	done      chan struct{}
}

// New returns a Coordinator with the flag unset.
func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Request sets the flag. Calls after the first have no effect.
func (c *Coordinator) Request() {
	c.once.Do(func() {
		c.requested.Store(true)
		close(c.done)
	})
}

// Requested reports whether Request has been called. It never blocks.
func (c *Coordinator) Requested() bool {
	return c.requested.Load()
}

// Wait blocks for d, returning early if shutdown is requested or ctx ends.
//
// Returns:
//   - nil: the full interval elapsed
//   - ErrShutdown: shutdown was requested (before or during the wait)
//   - ctx.Err(): the context was cancelled first
func (c *Coordinator) Wait(ctx context.Context, d time.Duration) error {
	if c.Requested() {
		return ErrShutdown
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-c.done:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}
