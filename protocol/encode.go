package protocol

import "errors"

var (
	ErrValueOutOfRange = errors.New("value does not fit in 3 digits")
	ErrInvalidCommand  = errors.New("invalid command")
)

// AppendCommand appends the wire encoding of cmd to dst
func AppendCommand(dst []byte, cmd Command) ([]byte, error) {
	switch cmd.Kind {
	case KindSetSpeed:
		return appendDigits(dst, PrefixStepperSpeed, cmd.Speed)
	case KindSetServoAngle:
		return appendDigits(dst, PrefixServoAngle, uint32(cmd.Angle))
	case KindSetDirection:
		b := cmd.Direction.Byte()
		if b == 0 {
			return dst, ErrInvalidCommand
		}
		return append(dst, PrefixDirection, b), nil
	}
	return dst, ErrInvalidCommand
}

// Encode returns the wire encoding of cmd
func Encode(cmd Command) ([]byte, error) {
	return AppendCommand(make([]byte, 0, 1+DigitCount), cmd)
}

func appendDigits(dst []byte, prefix byte, v uint32) ([]byte, error) {
	if v > MaxValue {
		return dst, ErrValueOutOfRange
	}
	return append(dst,
		prefix,
		byte('0'+v/100),
		byte('0'+v/10%10),
		byte('0'+v%10),
	), nil
}
