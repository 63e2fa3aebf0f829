package core

import (
	"strings"
	"testing"
	"time"

	"picostep/protocol"
)

type loopFixture struct {
	commands *protocol.Producer[protocol.Command]
	loop     *Loop
	ticks    *TickCounter
	step     *mockPin
	dir      *mockPin
	pwm      *mockPWM
	stats    *Stats
}

func newLoopFixture() *loopFixture {
	f := &loopFixture{
		ticks: &TickCounter{},
		step:  &mockPin{},
		dir:   &mockPin{},
		pwm:   &mockPWM{},
		stats: &Stats{},
	}
	producer, consumer := protocol.NewCommandChannel().Split()
	f.commands = producer

	stepper := NewStepper(f.dir, f.step, 100, time.Second)
	servo := NewServo(f.pwm, 500, 180)
	f.loop = NewLoop(consumer, stepper, servo, f.stats)
	f.loop.UseTimer(f.ticks)
	return f
}

func TestLoopDispatchesOneCommandPerPoll(t *testing.T) {
	f := newLoopFixture()

	f.commands.Enqueue(protocol.SetSpeed(10))
	f.commands.Enqueue(protocol.SetServoAngle(90))

	if !f.loop.Poll() {
		t.Fatal("Expected first poll to handle a command")
	}
	if f.loop.stepper.Speed() != 10 {
		t.Errorf("Expected speed 10, got %d", f.loop.stepper.Speed())
	}
	if len(f.pwm.duties) != 0 {
		t.Error("Second command must wait for the next poll")
	}

	if !f.loop.Poll() {
		t.Fatal("Expected second poll to handle a command")
	}
	if f.pwm.last() != 1490 {
		t.Errorf("Expected duty 1490, got %d", f.pwm.last())
	}

	if f.loop.Poll() {
		t.Error("Empty channel should not report a handled command")
	}
	if f.stats.CommandsHandled.Load() != 2 {
		t.Errorf("Expected 2 handled commands, got %d", f.stats.CommandsHandled.Load())
	}
}

func TestLoopDrivesStepperFromTicks(t *testing.T) {
	f := newLoopFixture()
	f.commands.Enqueue(protocol.SetSpeed(10)) // threshold 10 ticks at 100Hz
	f.loop.Poll()

	for i := 0; i < 10; i++ {
		f.ticks.Tick()
	}
	if f.loop.Idle() {
		t.Error("Loop should not be idle with pending ticks")
	}
	f.loop.Poll()
	if !f.step.high {
		t.Error("Expected step high after one half period of ticks")
	}
	if !f.loop.Idle() {
		t.Error("Loop should be idle once ticks are taken")
	}

	events := f.loop.events.Events()
	if len(events) < 2 || events[len(events)-1].Type != EvtTicksLate {
		t.Errorf("Expected a TICKS_LATE event for a batch of 10 ticks, got %+v", events)
	}

	f.commands.Enqueue(protocol.SetDirection(protocol.Stop))
	f.ticks.Tick()
	f.loop.Poll()
	if f.step.high {
		t.Error("Stop should force the step output low")
	}
	events = f.loop.events.Events()
	if events[len(events)-1].Type != EvtHalt {
		t.Errorf("Expected a HALT event, got %+v", events[len(events)-1])
	}
	if got := events[len(events)-1].Value; got != f.loop.stepper.Toggles() {
		t.Errorf("HALT event should carry the toggle count %d, got %d", f.loop.stepper.Toggles(), got)
	}
}

func TestLoopBlockingVariant(t *testing.T) {
	f := newLoopFixture()
	d := &recordDelay{}
	f.loop.UseDelay(d.delay)

	if !f.loop.Idle() {
		t.Error("Blocking loop at speed 0 should be idle")
	}
	f.commands.Enqueue(protocol.SetSpeed(2))
	f.loop.Poll()

	if f.step.rises != 1 {
		t.Errorf("Expected one pulse, got %d", f.step.rises)
	}
	if len(d.calls) != 2 || d.calls[0] != 500*time.Millisecond {
		t.Errorf("Expected two 500ms waits, got %v", d.calls)
	}
}

func TestLoopWithoutServo(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(s string) {})

	producer, consumer := protocol.NewCommandChannel().Split()
	stepper := NewStepper(&mockPin{}, &mockPin{}, 100, time.Second)
	stats := &Stats{}
	loop := NewLoop(consumer, stepper, nil, stats)

	producer.Enqueue(protocol.SetServoAngle(45))
	loop.Poll()

	if stats.DispatchErrors.Load() != 1 {
		t.Errorf("Expected a dispatch error, got %d", stats.DispatchErrors.Load())
	}

	// The failure dumps the event history, then starts a fresh one
	dump := strings.Join(lines, "\n")
	if !strings.Contains(dump, "[EVENTS] COMMAND") || !strings.Contains(dump, "[EVENTS] DISPATCH_ERR!") {
		t.Errorf("Expected COMMAND then DISPATCH_ERR in the dump, got %q", dump)
	}
	if events := loop.events.Events(); len(events) != 0 {
		t.Errorf("Expected the ring cleared after the dump, got %+v", events)
	}
}

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var got protocol.Command
	registry.Register(protocol.KindSetSpeed, func(cmd protocol.Command) error {
		got = cmd
		return nil
	})

	if err := registry.Dispatch(protocol.SetSpeed(42)); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if got != protocol.SetSpeed(42) {
		t.Errorf("Handler received %v", got)
	}

	if err := registry.Dispatch(protocol.SetServoAngle(1)); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
	if err := registry.Dispatch(protocol.Command{}); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand for zero command, got %v", err)
	}

	// Re-registering replaces the handler
	registry.Register(protocol.KindSetSpeed, func(cmd protocol.Command) error { return errPWMFault })
	if err := registry.Dispatch(protocol.SetSpeed(1)); err != errPWMFault {
		t.Errorf("Expected the replacement handler, got %v", err)
	}
}
