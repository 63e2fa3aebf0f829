// Package protocol implements the picostep serial command protocol
package protocol

// Version represents the picostep firmware version
const Version = "0.1.0"

// Command prefixes (first byte of every command)
const (
	PrefixServoAngle   = 'A'
	PrefixStepperSpeed = 'S'
	PrefixDirection    = 'D'
)

// Direction payload bytes
const (
	DirForward  = 'F'
	DirBackward = 'B'
	DirStop     = 'S'
)

// Payload and buffer sizes
const (
	DigitCount = 3 // Numeric payloads are always 3 ASCII digits
	MaxValue   = 999

	// ByteChannelSize holds at least one full command (prefix + payload)
	ByteChannelSize = 8

	// CommandChannelSize is the depth of the parser -> control loop queue
	CommandChannelSize = 2
)

// ByteChannel carries raw received bytes from the receiver to the parser
type ByteChannel = Queue[byte]

// CommandChannel carries decoded commands from the parser to the control loop
type CommandChannel = Queue[Command]

// NewByteChannel creates a byte channel with the default capacity
func NewByteChannel() *ByteChannel {
	return NewQueue[byte](ByteChannelSize)
}

// NewCommandChannel creates a command channel with the default depth
func NewCommandChannel() *CommandChannel {
	return NewQueue[Command](CommandChannelSize)
}
