// Package serial opens the UART link to a picostep board.
package serial

import (
	"errors"
	"io"
)

// Port is a byte stream to the firmware. Commands go out as fixed ASCII
// frames; replies (parse errors, echo) come back as newline-terminated
// lines. Implemented by NativePort and by the in-process simulator.
type Port interface {
	io.ReadWriteCloser

	// Flush discards received bytes that were not read yet
	Flush() error
}

// DefaultBaud matches the firmware's UART default
const DefaultBaud = 9600

// MaxReplyLen is the longest line the firmware sends back: the longest
// parse error description plus its newline
const MaxReplyLen = 40

// minReplyTimeout keeps fast links from polling the OS in a busy loop
const minReplyTimeout = 10

var (
	ErrNoDevice    = errors.New("no serial device given")
	ErrInvalidBaud = errors.New("baud rate must be positive")
)

// Config describes the serial link
type Config struct {
	Device string // e.g. "/dev/ttyACM0", "COM3"
	Baud   int

	// Read timeout in milliseconds (0 = blocking). A read that times out
	// returns no data, so it should cover at least one whole reply line.
	ReadTimeout int
}

// DefaultConfig returns the picostep link settings for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: ReplyTimeout(DefaultBaud),
	}
}

// Validate checks that the port can be opened with these settings
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return ErrInvalidBaud
	}
	return nil
}

// ReplyTimeout returns the time in milliseconds one MaxReplyLen line takes
// at baud (8N1, 10 bits per character), rounded up
func ReplyTimeout(baud int) int {
	if baud <= 0 {
		return 0
	}
	bits := MaxReplyLen * 10 * 1000
	ms := (bits + baud - 1) / baud
	if ms < minReplyTimeout {
		ms = minReplyTimeout
	}
	return ms
}
