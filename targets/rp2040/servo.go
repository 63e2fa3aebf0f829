//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/servo"
)

// servoChannel adapts a tinygo servo to core.PWMChannel. Duty values are
// pulse widths in microseconds.
type servoChannel struct {
	servo servo.Servo
}

// newServoChannel configures pin for servo output on its PWM slice
func newServoChannel(pin machine.Pin) (*servoChannel, error) {
	s, err := servo.New(pwmSlice(pin), pin)
	if err != nil {
		return nil, err
	}
	return &servoChannel{servo: s}, nil
}

func (c *servoChannel) SetDuty(duty uint16) error {
	if duty > 0x7FFF {
		duty = 0x7FFF
	}
	c.servo.SetMicroseconds(int16(duty))
	return nil
}

// pwmSlice returns the PWM peripheral driving pin.
// GPIO N maps to slice (N >> 1) & 7, channel N & 1.
func pwmSlice(pin machine.Pin) servo.PWM {
	switch (uint8(pin) >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
