package core

import "time"

// Pin is a digital output line. machine.Pin satisfies it on TinyGo targets.
type Pin interface {
	High()
	Low()
}

// PWMChannel is a PWM output that accepts a raw duty value.
// The unit of duty is whatever the channel was calibrated in
// (the RP2040 target uses servo pulse microseconds).
type PWMChannel interface {
	SetDuty(duty uint16) error
}

// DelayFunc blocks the caller for d. Used by the blocking step variant.
type DelayFunc func(d time.Duration)

// StepMode selects how step pulses are generated
type StepMode uint8

const (
	// StepModeTimer advances a toggle state machine once per timer tick
	StepModeTimer StepMode = iota

	// StepModeBlocking emits one full pulse per loop iteration using a delay.
	// Only suitable when nothing else shares the execution context.
	StepModeBlocking
)

func (m StepMode) String() string {
	switch m {
	case StepModeTimer:
		return "timer"
	case StepModeBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}
