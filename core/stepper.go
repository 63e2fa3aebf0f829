package core

// Step/direction stepper driver output
// Supports a blocking pulse variant and a non-blocking timer-tick variant

import (
	"errors"
	"time"

	"picostep/protocol"
)

// ErrNotImplemented is returned by stepper capabilities that are declared
// but deliberately unsupported
var ErrNotImplemented = errors.New("not implemented")

// Stepper drives a step/dir stepper driver
type Stepper struct {
	dirPin  Pin
	stepPin Pin

	// Configuration
	tickFrequency uint32        // Timer ticks per second (timer variant)
	basePeriod    time.Duration // Half period at speed 1 (blocking variant)

	// State
	direction protocol.Direction
	speed     uint32 // Pulses per command cycle, 0 = stopped
	level     bool   // Current step output level
	elapsed   uint32 // Ticks since last toggle

	toggles uint32 // Number of step output flips, for diagnostics
}

// NewStepper creates a stepper in the Forward direction with speed 0
func NewStepper(dirPin, stepPin Pin, tickFrequency uint32, basePeriod time.Duration) *Stepper {
	if tickFrequency == 0 {
		tickFrequency = DefaultTickFrequency
	}
	if basePeriod <= 0 {
		basePeriod = DefaultBasePeriod
	}
	return &Stepper{
		dirPin:        dirPin,
		stepPin:       stepPin,
		tickFrequency: tickFrequency,
		basePeriod:    basePeriod,
		direction:     protocol.Forward,
	}
}

// SetDirection sets the direction. Pins are updated on the next pulse call.
func (s *Stepper) SetDirection(dir protocol.Direction) {
	s.direction = dir
}

// SetSpeed sets the speed. 0 stops pulsing.
func (s *Stepper) SetSpeed(speed uint32) {
	s.speed = speed
}

// Direction returns the current direction
func (s *Stepper) Direction() protocol.Direction {
	return s.direction
}

// Speed returns the current speed
func (s *Stepper) Speed() uint32 {
	return s.speed
}

// Level returns the current step output level
func (s *Stepper) Level() bool {
	return s.level
}

// Toggles returns how many times the step output has changed level
func (s *Stepper) Toggles() uint32 {
	return s.toggles
}

// Threshold returns the half period in ticks for the current speed,
// or 0 when the stepper is not pulsing
func (s *Stepper) Threshold() uint32 {
	if s.speed == 0 || s.direction == protocol.Stop {
		return 0
	}
	threshold := s.tickFrequency / s.speed
	if threshold == 0 {
		// Faster than the tick rate: toggle every tick
		threshold = 1
	}
	return threshold
}

// HalfPeriod returns the blocking variant half period, or 0 when stopped
func (s *Stepper) HalfPeriod() time.Duration {
	if s.speed == 0 {
		return 0
	}
	return s.basePeriod / time.Duration(s.speed)
}

// applyDirection drives the dir pin. Returns false for Stop.
func (s *Stepper) applyDirection() bool {
	switch s.direction {
	case protocol.Forward:
		s.dirPin.High()
	case protocol.Backward:
		s.dirPin.Low()
	default:
		return false
	}
	return true
}

// Step emits one full pulse and blocks for a whole period.
// Stop and speed 0 return immediately without pulsing.
func (s *Stepper) Step(delay DelayFunc) {
	if !s.applyDirection() {
		return
	}
	half := s.HalfPeriod()
	if half == 0 {
		return
	}

	s.setLevel(true)
	delay(half)
	s.setLevel(false)
	delay(half)
}

// Tick advances the timer variant by one tick.
// Safe to call from a periodic interrupt.
func (s *Stepper) Tick() {
	s.Advance(1)
}

// Advance advances the timer variant by ticks elapsed ticks.
// A polled loop that observed several ticks since its last call passes them
// all at once, so the half period stays exactly Threshold() ticks.
func (s *Stepper) Advance(ticks uint32) {
	if !s.applyDirection() {
		s.halt()
		return
	}
	threshold := s.Threshold()
	if threshold == 0 {
		s.halt()
		return
	}

	total := uint64(s.elapsed) + uint64(ticks)
	flips := total / uint64(threshold)
	s.elapsed = uint32(total % uint64(threshold))
	s.toggles += uint32(flips)
	if flips%2 == 1 {
		s.level = !s.level
	}
	s.writeLevel()
}

// halt forces the step output low and resets the toggle state
func (s *Stepper) halt() {
	if s.level {
		s.toggles++
	}
	s.level = false
	s.elapsed = 0
	s.stepPin.Low()
}

func (s *Stepper) setLevel(high bool) {
	if s.level != high {
		s.toggles++
	}
	s.level = high
	s.writeLevel()
}

func (s *Stepper) writeLevel() {
	if s.level {
		s.stepPin.High()
	} else {
		s.stepPin.Low()
	}
}

// Hold would keep the motor energized while stationary.
// The step/dir wiring has no enable line, so this is not supported.
func (s *Stepper) Hold() error {
	return ErrNotImplemented
}

// SetAcceleration would configure an acceleration ramp.
// Motion profiling is not supported.
func (s *Stepper) SetAcceleration(acceleration int32) error {
	return ErrNotImplemented
}
