package core

import (
	"sync/atomic"
	"time"
)

// Step timer defaults
const (
	DefaultTickFrequency = 1000        // 1kHz step timer
	DefaultBasePeriod    = time.Second // Blocking half period at speed 1
)

// TickPeriod returns the duration of one tick at freq ticks per second
func TickPeriod(freq uint32) time.Duration {
	if freq == 0 {
		return 0
	}
	return time.Second / time.Duration(freq)
}

// MinFrameTimeout bounds FrameTimeout at high baud rates, where two
// character times are shorter than the polling loops' sleep
const MinFrameTimeout = time.Millisecond

// FrameTimeout returns how long a partial frame may wait for its next byte
// at baud: two 8N1 character times, at least MinFrameTimeout.
// Returns 0 (never time out) for baud 0.
func FrameTimeout(baud uint32) time.Duration {
	if baud == 0 {
		return 0
	}
	timeout := 20 * time.Second / time.Duration(baud)
	if timeout < MinFrameTimeout {
		timeout = MinFrameTimeout
	}
	return timeout
}

// TickCounter counts timer ticks raised by an interrupt (or a ticker
// goroutine) until the control loop collects them
type TickCounter struct {
	pending atomic.Uint32
	total   atomic.Uint32
}

// Tick records one tick. Safe to call from interrupt context.
func (t *TickCounter) Tick() {
	t.pending.Add(1)
	t.total.Add(1)
}

// Take returns the ticks observed since the last Take and clears them
func (t *TickCounter) Take() uint32 {
	return t.pending.Swap(0)
}

// Pending returns the ticks not yet taken
func (t *TickCounter) Pending() uint32 {
	return t.pending.Load()
}

// Total returns every tick ever recorded
func (t *TickCounter) Total() uint32 {
	return t.total.Load()
}

// EventFlag is a "something happened" flag written by one context and
// read-and-cleared by another
type EventFlag struct {
	set atomic.Bool
}

// Raise sets the flag. Safe to call from interrupt context.
func (f *EventFlag) Raise() {
	f.set.Store(true)
}

// Take clears the flag and reports whether it was set
func (f *EventFlag) Take() bool {
	return f.set.Swap(false)
}

// IsSet reports the flag without clearing it
func (f *EventFlag) IsSet() bool {
	return f.set.Load()
}
