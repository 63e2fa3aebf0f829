package sim

import "sync/atomic"

// Pin is an output pin that records its level and rising edges.
// Safe to read from any goroutine while the firmware drives it.
type Pin struct {
	high  atomic.Bool
	rises atomic.Uint32
}

func (p *Pin) High() {
	if !p.high.Swap(true) {
		p.rises.Add(1)
	}
}

func (p *Pin) Low() {
	p.high.Store(false)
}

// IsHigh returns the current level
func (p *Pin) IsHigh() bool {
	return p.high.Load()
}

// Rises returns the number of low to high transitions
func (p *Pin) Rises() uint32 {
	return p.rises.Load()
}

// PWM is a PWM channel that records the last duty written
type PWM struct {
	duty   atomic.Uint32
	writes atomic.Uint32
}

func (p *PWM) SetDuty(duty uint16) error {
	p.duty.Store(uint32(duty))
	p.writes.Add(1)
	return nil
}

// Duty returns the last duty written
func (p *PWM) Duty() uint16 {
	return uint16(p.duty.Load())
}

// Writes returns the number of duty updates
func (p *PWM) Writes() uint32 {
	return p.writes.Load()
}

// Board is the set of simulated outputs
type Board struct {
	Step  Pin
	Dir   Pin
	Servo PWM
}
