// Package buffer provides buffer implementations for handing work between goroutines.
package buffer

import (
	"sync"
)

// FIFO is a lock-protected first-in-first-out buffer with many producers and one consumer.
// Producers never block; the consumer takes everything queued so far in one call.
//
// Usage:
//
//	buf := buffer.NewFIFO[*Job]()
//	go func() { buf.Push(job) }() // never blocks
//	for _, job := range buf.Drain() {
//	    // runs on the consumer goroutine
//	}
//
// A Push that returns before Drain is called is always observed by that Drain.
type FIFO[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewFIFO creates an empty buffer.
func NewFIFO[T any]() *FIFO[T] {
	return &FIFO[T]{
		items: make([]T, 0, 16),
	}
}

// Push appends an item. It NEVER blocks on the consumer.
func (b *FIFO[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, item)
}

// Drain removes and returns every queued item in push order.
// Returns nil when the buffer is empty.
func (b *FIFO[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil
	}

	out := b.items
	b.items = make([]T, 0, cap(out))
	return out
}

// Len returns the current number of queued items.
func (b *FIFO[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
