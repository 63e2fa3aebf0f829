package core

import (
	"sync/atomic"

	"picostep/protocol"
)

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a control-loop event for post-mortem analysis
type Event struct {
	Type  uint8  // Event type code
	Arg   uint8  // Context-dependent (command kind, etc.)
	Clock uint32 // Total ticks at event
	Value uint32 // Context-dependent value
}

// Event type codes
const (
	EvtCommand       = 1 // Command dequeued by the control loop
	EvtDispatchError = 2 // Command handler returned an error
	EvtTicksLate     = 3 // Loop collected more than one tick at once
	EvtHalt          = 4 // Stepper output forced low
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether synchronous debug output is active
	debugEnabled atomic.Bool

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function.
// Call it once during start-up, before any other goroutine logs.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables synchronous debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled.Load()
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker(debugChan)
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker(ch chan string) {
	for msg := range ch {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled.Load() && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message
		}
	}
}

// EventRing keeps the most recent events. It is owned by the control loop
// and must only be written from that context.
type EventRing struct {
	events [EventRingSize]Event
	head   uint8 // Next write position
}

// Record captures an event in the ring buffer
func (r *EventRing) Record(eventType, arg uint8, clock, value uint32) {
	idx := r.head
	r.events[idx] = Event{
		Type:  eventType,
		Arg:   arg,
		Clock: clock,
		Value: value,
	}
	r.head = (idx + 1) % EventRingSize
}

// Events returns the recorded events from oldest to newest
func (r *EventRing) Events() []Event {
	out := make([]Event, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := r.events[(r.head+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// Clear empties the ring
func (r *EventRing) Clear() {
	r.events = [EventRingSize]Event{}
	r.head = 0
}

// Dump writes the ring through the debug writer (call on shutdown/error)
func (r *EventRing) Dump() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range r.Events() {
		debugPrintln("[EVENTS] " + eventName(evt.Type) +
			" arg=" + itoa(int(evt.Arg)) +
			" clock=" + protocol.FormatUint(evt.Clock) +
			" value=" + protocol.FormatUint(evt.Value))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

func eventName(t uint8) string {
	switch t {
	case EvtCommand:
		return "COMMAND"
	case EvtDispatchError:
		return "DISPATCH_ERR!"
	case EvtTicksLate:
		return "TICKS_LATE"
	case EvtHalt:
		return "HALT"
	default:
		return "UNKNOWN"
	}
}
