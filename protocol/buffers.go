package protocol

import (
	"errors"
	"sync/atomic"
)

// ErrQueueFull is returned by Enqueue when every slot is occupied
var ErrQueueFull = errors.New("queue full")

// Queue is a fixed-capacity single-producer/single-consumer ring buffer.
//
// The producer only ever advances tail and the consumer only ever advances
// head, so one goroutine, core or interrupt handler may enqueue while another
// dequeues without a lock. Driving the same end from two contexts at once is
// not allowed; use Split to hand each side its own handle.
//
// head and tail are free-running counters. The slot index is the counter
// modulo the capacity, which lets all capacity slots be used.
type Queue[T any] struct {
	buf  []T
	head atomic.Uint32 // Next slot to read (consumer owned)
	tail atomic.Uint32 // Next slot to write (producer owned)
}

// NewQueue creates a Queue holding up to capacity items
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("queue capacity must be positive")
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Enqueue appends v. It never blocks and never overwrites: when the queue is
// full the new item is dropped and ErrQueueFull is returned.
func (q *Queue[T]) Enqueue(v T) error {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint32(len(q.buf)) {
		return ErrQueueFull
	}
	q.buf[tail%uint32(len(q.buf))] = v
	// Publish the slot only after it is written
	q.tail.Store(tail + 1)
	return nil
}

// Dequeue removes the oldest item. ok is false when the queue is empty.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return v, false
	}
	idx := head % uint32(len(q.buf))
	v = q.buf[idx]
	var zero T
	q.buf[idx] = zero
	q.head.Store(head + 1)
	return v, true
}

// Peek returns the oldest item without removing it. Consumer side only.
func (q *Queue[T]) Peek() (v T, ok bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return v, false
	}
	return q.buf[head%uint32(len(q.buf))], true
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Cap returns the fixed capacity
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// IsFull returns true if the next Enqueue would fail
func (q *Queue[T]) IsFull() bool {
	return q.Len() >= len(q.buf)
}

// Split returns the producer and consumer handles for this queue
func (q *Queue[T]) Split() (*Producer[T], *Consumer[T]) {
	return &Producer[T]{q: q}, &Consumer[T]{q: q}
}

// Producer is the enqueue-only end of a Queue
type Producer[T any] struct {
	q *Queue[T]
}

// Enqueue appends v, see Queue.Enqueue
func (p *Producer[T]) Enqueue(v T) error {
	return p.q.Enqueue(v)
}

// Ready returns true if there is room for one more item
func (p *Producer[T]) Ready() bool {
	return !p.q.IsFull()
}

// Consumer is the dequeue-only end of a Queue
type Consumer[T any] struct {
	q *Queue[T]
}

// Dequeue removes the oldest item, see Queue.Dequeue
func (c *Consumer[T]) Dequeue() (T, bool) {
	return c.q.Dequeue()
}

// Peek returns the oldest item without removing it
func (c *Consumer[T]) Peek() (T, bool) {
	return c.q.Peek()
}

// Len returns the number of items waiting
func (c *Consumer[T]) Len() int {
	return c.q.Len()
}
