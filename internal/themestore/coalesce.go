package themestore

import (
	"context"
	"sync"
)

// coalescer runs fn on submitted values one at a time. While a run is in
// flight at most one value waits behind it; a newer submission replaces the
// waiting value, and every caller whose value was replaced receives the
// result of the run that replaced it.
type coalescer[T any] struct {
	fn func(T) error

	mu      sync.Mutex
	running bool
	pending *batch[T]
	idle    chan struct{}
}

type batch[T any] struct {
	value   T
	waiters []chan error
}

func newCoalescer[T any](fn func(T) error) *coalescer[T] {
	return &coalescer[T]{fn: fn}
}

// Submit queues v and returns a channel that receives the run's result.
func (c *coalescer[T]) Submit(v T) <-chan error {
	done := make(chan error, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = &batch[T]{}
	}
	c.pending.value = v
	c.pending.waiters = append(c.pending.waiters, done)
	if !c.running {
		c.running = true
		c.idle = make(chan struct{})
		go c.loop()
	}
	return done
}

func (c *coalescer[T]) loop() {
	for {
		c.mu.Lock()
		b := c.pending
		if b == nil {
			c.running = false
			close(c.idle)
			c.mu.Unlock()
			return
		}
		c.pending = nil
		c.mu.Unlock()

		err := c.fn(b.value)
		for _, w := range b.waiters {
			w <- err
		}
	}
}

// Wait blocks until no run is in flight or queued.
func (c *coalescer[T]) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.running {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
