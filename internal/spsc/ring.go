// Package spsc provides a fixed-capacity lock-free single-producer /
// single-consumer ring. Exactly one goroutine may call Push and exactly
// one (possibly different) goroutine may call Pop for the ring's entire
// lifetime; that discipline is the contract, not a runtime check.
package spsc

import "sync/atomic"

const cursorPad = 56

// Ring is a bounded FIFO queue between one producer and one consumer.
// One slot is sacrificed so that empty (head == tail) and full
// (head+1 == tail, mod N) are distinguishable by cursor equality alone.
//
// The producer writes the slot before publishing head with an atomic
// store; the consumer loads head atomically before reading the slot, so
// it never observes a cursor move without the matching payload write.
// The tail cursor is handled symmetrically. Cursors live on separate
// cache lines to keep the two sides from invalidating each other.
type Ring[T any] struct {
	head atomic.Uint64
	_    [cursorPad]byte
	tail atomic.Uint64
	_    [cursorPad]byte

	buf []T
}

// New allocates a ring with n slots (usable capacity n-1). n must be at
// least 2.
func New[T any](n int) *Ring[T] {
	if n < 2 {
		panic("spsc: ring needs at least 2 slots")
	}
	return &Ring[T]{buf: make([]T, n)}
}

// Push enqueues v. Returns false when the ring is full; that is
// back-pressure, not an error, and the call never blocks.
func (q *Ring[T]) Push(v T) bool {
	h := q.head.Load()
	next := h + 1
	if next == uint64(len(q.buf)) {
		next = 0
	}
	if next == q.tail.Load() {
		return false // full
	}
	q.buf[h] = v
	q.head.Store(next)
	return true
}

// Pop dequeues the oldest value. Returns false when the ring is empty;
// the call never blocks.
func (q *Ring[T]) Pop() (T, bool) {
	var zero T
	t := q.tail.Load()
	if t == q.head.Load() {
		return zero, false // empty
	}
	v := q.buf[t]
	q.buf[t] = zero
	next := t + 1
	if next == uint64(len(q.buf)) {
		next = 0
	}
	q.tail.Store(next)
	return v, true
}

// Len returns the approximate number of queued values. Advisory only:
// it may be stale by the time the caller acts on it.
func (q *Ring[T]) Len() int {
	h := q.head.Load()
	t := q.tail.Load()
	if h >= t {
		return int(h - t)
	}
	return int(h + uint64(len(q.buf)) - t)
}

// Cap returns the usable capacity (one slot fewer than allocated).
func (q *Ring[T]) Cap() int {
	return len(q.buf) - 1
}

// IsEmpty reports whether the ring appears empty. Advisory only.
func (q *Ring[T]) IsEmpty() bool {
	return q.head.Load() == q.tail.Load()
}

// IsFull reports whether the ring appears full. Advisory only.
func (q *Ring[T]) IsFull() bool {
	h := q.head.Load()
	next := h + 1
	if next == uint64(len(q.buf)) {
		next = 0
	}
	return next == q.tail.Load()
}
