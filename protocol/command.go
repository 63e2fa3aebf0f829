package protocol

// Direction is the commanded stepper direction
type Direction uint8

const (
	Forward Direction = iota
	Backward
	Stop
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Byte returns the wire byte for a direction, or 0 if it has none
func (d Direction) Byte() byte {
	switch d {
	case Forward:
		return DirForward
	case Backward:
		return DirBackward
	case Stop:
		return DirStop
	}
	return 0
}

// CommandKind selects which field of a Command is meaningful
type CommandKind uint8

const (
	KindSetSpeed CommandKind = iota + 1
	KindSetDirection
	KindSetServoAngle
)

// NumKinds is one past the largest CommandKind
const NumKinds = int(KindSetServoAngle) + 1

func (k CommandKind) String() string {
	switch k {
	case KindSetSpeed:
		return "set_speed"
	case KindSetDirection:
		return "set_direction"
	case KindSetServoAngle:
		return "set_servo_angle"
	default:
		return "invalid"
	}
}

// Command is a decoded protocol command. It is a small value type:
// copy it freely, compare it with ==.
type Command struct {
	Kind      CommandKind
	Speed     uint32    // KindSetSpeed: pulses per command cycle, 0 = stopped
	Direction Direction // KindSetDirection
	Angle     uint16    // KindSetServoAngle: degrees, clamped by the servo
}

// SetSpeed builds a stepper speed command
func SetSpeed(speed uint32) Command {
	return Command{Kind: KindSetSpeed, Speed: speed}
}

// SetDirection builds a stepper direction command
func SetDirection(dir Direction) Command {
	return Command{Kind: KindSetDirection, Direction: dir}
}

// SetServoAngle builds a servo angle command
func SetServoAngle(angle uint16) Command {
	return Command{Kind: KindSetServoAngle, Angle: angle}
}

func (c Command) String() string {
	switch c.Kind {
	case KindSetSpeed:
		return "set_speed speed=" + FormatUint(c.Speed)
	case KindSetDirection:
		return "set_direction dir=" + c.Direction.String()
	case KindSetServoAngle:
		return "set_servo_angle angle=" + FormatUint(uint32(c.Angle))
	default:
		return "invalid"
	}
}

// FormatUint formats n in decimal. Firmware packages use it instead of fmt
// and strconv, which are too large for the TinyGo target.
func FormatUint(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
