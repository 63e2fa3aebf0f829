package core

import (
	"errors"
	"time"

	"picostep/protocol"
)

// Config holds the firmware start-up configuration
type Config struct {
	// Pins (GPIO numbers on the target)
	StepPin  uint8
	DirPin   uint8
	ServoPin uint8

	// Serial link
	BaudRate uint32
	Echo     bool // Echo received bytes back before parsing

	// Stepper
	StepMode         StepMode
	TickFrequency    uint32        // Step timer ticks per second
	BasePeriod       time.Duration // Blocking half period at speed 1
	InitialSpeed     uint32
	InitialDirection protocol.Direction

	// Servo calibration
	ServoZeroDuty uint16 // Duty at 0 degrees (servo pulse microseconds)
	ServoMaxAngle uint16
}

var (
	ErrInvalidTickFrequency = errors.New("tick frequency must be positive")
	ErrInvalidBasePeriod    = errors.New("base period must be positive")
	ErrInvalidServoDuty     = errors.New("servo zero duty out of range")
	ErrInvalidServoAngle    = errors.New("servo max angle out of range")
	ErrInvalidStepMode      = errors.New("invalid step mode")
	ErrInvalidDirection     = errors.New("invalid initial direction")
)

// DefaultConfig returns the configuration for a Raspberry Pi Pico with the
// step line on the onboard LED
func DefaultConfig() Config {
	return Config{
		StepPin:          25,
		DirPin:           11,
		ServoPin:         22,
		BaudRate:         9600,
		Echo:             false,
		StepMode:         StepModeTimer,
		TickFrequency:    DefaultTickFrequency,
		BasePeriod:       DefaultBasePeriod,
		InitialSpeed:     2,
		InitialDirection: protocol.Forward,
		ServoZeroDuty:    500,
		ServoMaxAngle:    180,
	}
}

// Validate checks the configuration for values the core cannot run with
func (c Config) Validate() error {
	if c.TickFrequency == 0 {
		return ErrInvalidTickFrequency
	}
	if c.BasePeriod <= 0 {
		return ErrInvalidBasePeriod
	}
	// The duty at 90 degrees (3x zero duty) must fit in 16 bits
	if c.ServoZeroDuty == 0 || uint32(c.ServoZeroDuty)*3 > 0xFFFF {
		return ErrInvalidServoDuty
	}
	if c.ServoMaxAngle > protocol.MaxValue {
		return ErrInvalidServoAngle
	}
	if c.StepMode != StepModeTimer && c.StepMode != StepModeBlocking {
		return ErrInvalidStepMode
	}
	if c.InitialDirection > protocol.Stop {
		return ErrInvalidDirection
	}
	return nil
}

// NewStepperFromConfig builds a stepper with the configured initial state
func NewStepperFromConfig(cfg Config, dirPin, stepPin Pin) *Stepper {
	s := NewStepper(dirPin, stepPin, cfg.TickFrequency, cfg.BasePeriod)
	s.SetDirection(cfg.InitialDirection)
	s.SetSpeed(cfg.InitialSpeed)
	return s
}

// NewServoFromConfig builds a servo mapper with the configured calibration
func NewServoFromConfig(cfg Config, pwm PWMChannel) *Servo {
	return NewServo(pwm, cfg.ServoZeroDuty, cfg.ServoMaxAngle)
}
