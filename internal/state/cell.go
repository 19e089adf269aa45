// Package state provides single-writer, multi-reader observable values.
package state

import (
	"context"
	"sync"
)

// Cell holds a value and notifies subscribers of changes. Subscribers see
// the latest value; intermediate values may be skipped when a subscriber
// falls behind.
type Cell[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[int]chan T
	next  int
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, subs: make(map[int]chan T)}
}

func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and publishes it to every subscriber.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	for _, ch := range c.subs {
		offer(ch, v)
	}
}

// Subscribe emits the current value, then every later one. The channel
// closes when ctx is done.
func (c *Cell[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = ch
	ch <- c.value
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		close(ch)
		c.mu.Unlock()
	}()
	return ch
}

// offer replaces any undelivered value with v. Callers hold the write lock,
// so they are the only sender.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
