package protocol

// ByteSource is the consumer side of a byte channel
type ByteSource interface {
	Dequeue() (byte, bool)
}

// ParseError describes why no command could be decoded.
// Values are comparable, so errors.Is and == both work against the
// sentinels below.
type ParseError struct {
	description string
}

func (e ParseError) Error() string {
	return e.description
}

// Describe returns the human-readable description sent back to the host
func (e ParseError) Describe() string {
	return e.description
}

var (
	ErrNoCommand         = ParseError{"no command found"}
	ErrIncompletePayload = ParseError{"incomplete command payload"}
	ErrInvalidDigit      = ParseError{"invalid digit in command payload"}
	ErrInvalidDirection  = ParseError{"invalid direction"}
)

// commandFormat describes one prefix-tagged command shape
type commandFormat struct {
	Prefix      byte
	PayloadSize int
	Decode      func(payload []byte) (Command, error)
}

var commandFormats = [...]commandFormat{
	{
		Prefix:      PrefixServoAngle,
		PayloadSize: DigitCount,
		Decode: func(payload []byte) (Command, error) {
			v, err := parseDigits(payload)
			if err != nil {
				return Command{}, err
			}
			return SetServoAngle(uint16(v)), nil
		},
	},
	{
		Prefix:      PrefixStepperSpeed,
		PayloadSize: DigitCount,
		Decode: func(payload []byte) (Command, error) {
			v, err := parseDigits(payload)
			if err != nil {
				return Command{}, err
			}
			return SetSpeed(v), nil
		},
	},
	{
		Prefix:      PrefixDirection,
		PayloadSize: 1,
		Decode: func(payload []byte) (Command, error) {
			switch payload[0] {
			case DirForward:
				return SetDirection(Forward), nil
			case DirBackward:
				return SetDirection(Backward), nil
			case DirStop:
				return SetDirection(Stop), nil
			}
			return Command{}, ErrInvalidDirection
		},
	},
}

func lookupFormat(prefix byte) *commandFormat {
	for i := range commandFormats {
		if commandFormats[i].Prefix == prefix {
			return &commandFormats[i]
		}
	}
	return nil
}

// FrameSize returns the full length (prefix + payload) of the command that
// starts with b, or 0 if b is not a command prefix
func FrameSize(b byte) int {
	format := lookupFormat(b)
	if format == nil {
		return 0
	}
	return 1 + format.PayloadSize
}

// Parse consumes bytes from src until one command is decoded.
//
// Bytes that are not a known prefix are discarded. After a prefix, the full
// payload width is consumed before it is validated; a malformed or truncated
// payload is dropped as a whole (no rewind) and its ParseError is returned.
// Bytes after the returned command stay in src for the next call.
func Parse(src ByteSource) (Command, error) {
	for {
		b, ok := src.Dequeue()
		if !ok {
			return Command{}, ErrNoCommand
		}

		format := lookupFormat(b)
		if format == nil {
			continue
		}

		var payload [DigitCount]byte
		n := 0
		for n < format.PayloadSize {
			pb, ok := src.Dequeue()
			if !ok {
				break
			}
			payload[n] = pb
			n++
		}
		if n < format.PayloadSize {
			return Command{}, ErrIncompletePayload
		}

		return format.Decode(payload[:n])
	}
}

// ParseBytes parses the first command out of a byte slice.
// It returns the command and the number of bytes consumed.
func ParseBytes(data []byte) (Command, int, error) {
	src := sliceSource{data: data}
	cmd, err := Parse(&src)
	return cmd, src.pos, err
}

type sliceSource struct {
	data []byte
	pos  int
}

func (s *sliceSource) Dequeue() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	b := s.data[s.pos]
	s.pos++
	return b, true
}

// parseDigits combines ASCII decimal digits big-endian
func parseDigits(payload []byte) (uint32, error) {
	var v uint32
	for _, ch := range payload {
		if ch < '0' || ch > '9' {
			return 0, ErrInvalidDigit
		}
		v = v*10 + uint32(ch-'0')
	}
	return v, nil
}
