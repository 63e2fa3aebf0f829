//go:build !wasm

package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// NativePort is a picostep link over an OS serial device
type NativePort struct {
	port   *serial.Port
	device string
}

// Open opens the serial device described by cfg
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Device, err)
	}

	// Drop anything the board printed before we attached (boot noise)
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush %s: %w", cfg.Device, err)
	}

	return &NativePort{port: port, device: cfg.Device}, nil
}

// Read returns reply bytes. After the read timeout it returns 0 bytes; tarm
// reports that as io.EOF on some platforms, which callers retry.
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write sends command bytes
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close releases the device
func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// Flush discards data received but not yet read
func (p *NativePort) Flush() error {
	if p.port == nil {
		return fmt.Errorf("%s: port closed", p.device)
	}
	return p.port.Flush()
}

// String returns the device path
func (p *NativePort) String() string {
	return p.device
}
