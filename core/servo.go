package core

// Servo maps a commanded angle to a PWM duty value.
//
// Calibration comes from the duty at 0 degrees: the duty at 90 degrees is
// three times that, and the per-degree step is their difference divided by
// 90 using integer division. The remainder is dropped, so angles map slightly
// below the ideal line; Center uses the exact 90 degree duty.
type Servo struct {
	pwm PWMChannel

	dutyAtZero    uint16
	dutyAt90      uint16
	dutyPerDegree uint16
	maxAngle      uint16

	duty uint16 // Last emitted duty
}

// NewServo creates a servo mapper driving pwm
func NewServo(pwm PWMChannel, dutyAtZero, maxAngle uint16) *Servo {
	dutyAt90 := dutyAtZero * 3
	return &Servo{
		pwm:           pwm,
		dutyAtZero:    dutyAtZero,
		dutyAt90:      dutyAt90,
		dutyPerDegree: (dutyAt90 - dutyAtZero) / 90,
		maxAngle:      maxAngle,
	}
}

// DutyFor returns the duty for angle after clamping to the max angle
func (s *Servo) DutyFor(angle uint16) uint16 {
	if angle > s.maxAngle {
		angle = s.maxAngle
	}
	duty := uint32(s.dutyPerDegree)*uint32(angle) + uint32(s.dutyAtZero)
	if duty > 0xFFFF {
		duty = 0xFFFF
	}
	return uint16(duty)
}

// SetAngle moves the servo to angle, clamped to [0, max angle]
func (s *Servo) SetAngle(angle uint16) error {
	return s.emit(s.DutyFor(angle))
}

// Center moves the servo to 90 degrees
func (s *Servo) Center() error {
	return s.emit(s.dutyAt90)
}

// Duty returns the last emitted duty
func (s *Servo) Duty() uint16 {
	return s.duty
}

func (s *Servo) emit(duty uint16) error {
	if err := s.pwm.SetDuty(duty); err != nil {
		return err
	}
	s.duty = duty
	return nil
}
