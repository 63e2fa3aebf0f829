// Package link talks to the picostep firmware over a serial port
package link

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"picostep/host/serial"
	"picostep/protocol"
)

// ErrClosed is returned when sending on a closed link
var ErrClosed = errors.New("link closed")

// ReplyHandler receives one line sent back by the firmware
// (parse error descriptions, or echoed command text)
type ReplyHandler func(line string)

// Link represents a connection to the firmware
type Link struct {
	port serial.Port

	mu     sync.Mutex // Serialises writes
	closed bool

	sent uint32 // Commands written
}

// New wraps an already open port
func New(port serial.Port) *Link {
	return &Link{port: port}
}

// Connect opens the serial device described by cfg
func Connect(cfg *serial.Config) (*Link, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return New(port), nil
}

// Close closes the underlying port
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}

// Send encodes cmd and writes it to the firmware
func (l *Link) Send(cmd protocol.Command) error {
	data, err := protocol.Encode(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode %v: %w", cmd, err)
	}
	if err := l.SendRaw(data); err != nil {
		return err
	}

	l.mu.Lock()
	l.sent++
	l.mu.Unlock()
	return nil
}

// SendRaw writes bytes to the firmware unchanged
func (l *Link) SendRaw(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	for written := 0; written < len(data); {
		n, err := l.port.Write(data[written:])
		if err != nil {
			return fmt.Errorf("failed to write to port: %w", err)
		}
		written += n
	}
	return nil
}

// SetSpeed sends a stepper speed command
func (l *Link) SetSpeed(speed uint32) error {
	return l.Send(protocol.SetSpeed(speed))
}

// SetDirection sends a stepper direction command
func (l *Link) SetDirection(dir protocol.Direction) error {
	return l.Send(protocol.SetDirection(dir))
}

// SetAngle sends a servo angle command
func (l *Link) SetAngle(angle uint16) error {
	return l.Send(protocol.SetServoAngle(angle))
}

// Sent returns the number of commands sent
func (l *Link) Sent() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

// ReadReplies reads newline-terminated replies until the link is closed,
// calling handler for each. Read timeouts (io.EOF with no data) are retried.
func (l *Link) ReadReplies(handler ReplyHandler) error {
	buf := make([]byte, 64)
	var line []byte
	for {
		n, err := l.port.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				handler(strings.TrimRight(string(line), "\r"))
				line = line[:0]
				continue
			}
			line = append(line, b)
		}

		if l.isClosed() {
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read replies: %w", err)
		}
	}
}

func (l *Link) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// ParseDirection converts user input (f, forward, b, backward, s, stop)
func ParseDirection(s string) (protocol.Direction, error) {
	switch s {
	case "f", "F", "forward":
		return protocol.Forward, nil
	case "b", "B", "backward":
		return protocol.Backward, nil
	case "s", "S", "stop":
		return protocol.Stop, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
