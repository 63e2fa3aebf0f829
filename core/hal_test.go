package core

import (
	"errors"
	"time"
)

// mockPin records every level written to it
type mockPin struct {
	high   bool
	writes int
	rises  int
}

func (p *mockPin) High() {
	if !p.high {
		p.rises++
	}
	p.high = true
	p.writes++
}

func (p *mockPin) Low() {
	p.high = false
	p.writes++
}

// mockPWM records duty values
type mockPWM struct {
	duties []uint16
	err    error
}

func (m *mockPWM) SetDuty(duty uint16) error {
	if m.err != nil {
		return m.err
	}
	m.duties = append(m.duties, duty)
	return nil
}

func (m *mockPWM) last() uint16 {
	if len(m.duties) == 0 {
		return 0
	}
	return m.duties[len(m.duties)-1]
}

var errPWMFault = errors.New("pwm fault")

// recordDelay collects requested delays instead of sleeping
type recordDelay struct {
	calls []time.Duration
}

func (r *recordDelay) delay(d time.Duration) {
	r.calls = append(r.calls, d)
}
