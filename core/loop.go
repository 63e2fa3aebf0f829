package core

import (
	"sync/atomic"

	"picostep/protocol"
)

// Stats counts pipeline events. All fields are safe to read from any context.
type Stats struct {
	BytesReceived   atomic.Uint32
	BytesDropped    atomic.Uint32 // Byte channel full
	CommandsParsed  atomic.Uint32
	CommandsDropped atomic.Uint32 // Command channel full
	ParseErrors     atomic.Uint32
	CommandsHandled atomic.Uint32
	DispatchErrors  atomic.Uint32
}

// String formats the counters for debug output
func (s *Stats) String() string {
	return "rx=" + protocol.FormatUint(s.BytesReceived.Load()) +
		" rx_drop=" + protocol.FormatUint(s.BytesDropped.Load()) +
		" parsed=" + protocol.FormatUint(s.CommandsParsed.Load()) +
		" cmd_drop=" + protocol.FormatUint(s.CommandsDropped.Load()) +
		" parse_err=" + protocol.FormatUint(s.ParseErrors.Load()) +
		" handled=" + protocol.FormatUint(s.CommandsHandled.Load()) +
		" dispatch_err=" + protocol.FormatUint(s.DispatchErrors.Load())
}

// Loop is the control loop. It owns the consumer end of the command channel,
// the stepper and the servo. Poll must only be called from one context.
type Loop struct {
	commands *protocol.Consumer[protocol.Command]
	registry *CommandRegistry
	stepper  *Stepper
	servo    *Servo

	mode  StepMode
	ticks *TickCounter // Timer variant tick source
	delay DelayFunc    // Blocking variant delay

	stats  *Stats
	events EventRing
}

// NewLoop creates a control loop and registers the command handlers.
// servo may be nil, in which case servo commands fail to dispatch.
func NewLoop(commands *protocol.Consumer[protocol.Command], stepper *Stepper, servo *Servo, stats *Stats) *Loop {
	if stats == nil {
		stats = &Stats{}
	}
	l := &Loop{
		commands: commands,
		registry: NewCommandRegistry(),
		stepper:  stepper,
		servo:    servo,
		stats:    stats,
	}

	l.registry.Register(protocol.KindSetSpeed, func(cmd protocol.Command) error {
		l.stepper.SetSpeed(cmd.Speed)
		return nil
	})
	l.registry.Register(protocol.KindSetDirection, func(cmd protocol.Command) error {
		l.stepper.SetDirection(cmd.Direction)
		return nil
	})
	if servo != nil {
		l.registry.Register(protocol.KindSetServoAngle, func(cmd protocol.Command) error {
			return l.servo.SetAngle(cmd.Angle)
		})
	}

	return l
}

// UseTimer selects the timer-tick step variant driven by ticks
func (l *Loop) UseTimer(ticks *TickCounter) {
	l.mode = StepModeTimer
	l.ticks = ticks
}

// UseDelay selects the blocking step variant
func (l *Loop) UseDelay(delay DelayFunc) {
	l.mode = StepModeBlocking
	l.delay = delay
}

// Poll runs one loop iteration: dispatch at most one command, then drive the
// step output. Returns true if a command was handled.
func (l *Loop) Poll() bool {
	handled := false
	if cmd, ok := l.commands.Dequeue(); ok {
		handled = true
		l.handle(cmd)
	}

	switch l.mode {
	case StepModeTimer:
		if l.ticks == nil {
			break
		}
		n := l.ticks.Take()
		if n == 0 {
			break
		}
		if n > 1 {
			l.events.Record(EvtTicksLate, 0, l.ticks.Total(), n)
		}
		wasHigh := l.stepper.Level()
		l.stepper.Advance(n)
		if wasHigh && l.stepper.Threshold() == 0 {
			l.events.Record(EvtHalt, uint8(l.stepper.Direction()), l.ticks.Total(), l.stepper.Toggles())
		}
	case StepModeBlocking:
		if l.delay != nil {
			l.stepper.Step(l.delay)
		}
	}

	return handled
}

// Idle reports whether there is nothing for the loop to do right now
func (l *Loop) Idle() bool {
	if l.commands.Len() > 0 {
		return false
	}
	switch l.mode {
	case StepModeBlocking:
		return l.delay == nil || l.stepper.HalfPeriod() == 0 || l.stepper.Direction() == protocol.Stop
	default:
		return l.ticks == nil || l.ticks.Pending() == 0
	}
}

func (l *Loop) handle(cmd protocol.Command) {
	l.events.Record(EvtCommand, uint8(cmd.Kind), l.clock(), commandValue(cmd))

	if err := l.registry.Dispatch(cmd); err != nil {
		l.stats.DispatchErrors.Add(1)
		l.events.Record(EvtDispatchError, uint8(cmd.Kind), l.clock(), 0)
		DebugPrintln("[LOOP] " + cmd.String() + " failed: " + err.Error())
		// Report the history leading up to the failure once
		l.events.Dump()
		l.events.Clear()
		return
	}
	l.stats.CommandsHandled.Add(1)
	DebugPrintln("[LOOP] " + cmd.String())
}

func (l *Loop) clock() uint32 {
	if l.ticks == nil {
		return 0
	}
	return l.ticks.Total()
}

func commandValue(cmd protocol.Command) uint32 {
	switch cmd.Kind {
	case protocol.KindSetSpeed:
		return cmd.Speed
	case protocol.KindSetDirection:
		return uint32(cmd.Direction)
	case protocol.KindSetServoAngle:
		return uint32(cmd.Angle)
	}
	return 0
}
