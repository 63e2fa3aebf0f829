//go:build rp2040

package main

import (
	"runtime/volatile"
	"time"
	"unsafe"

	"picostep/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// hardwareUptime reads the 64-bit 1MHz RP2040 timer
func hardwareUptime() uint64 {
	// Read high, low, high again to detect rollover
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// tickLoop feeds the step timer at freq ticks per second. Deadlines advance
// by a fixed period from the hardware timer, so late wakeups are caught up
// as several ticks at once instead of stretching the step rate.
func tickLoop(ticks *core.TickCounter, freq uint32) {
	period := uint64(1000000 / freq)
	if period == 0 {
		period = 1
	}

	next := hardwareUptime() + period
	for {
		now := hardwareUptime()
		if now >= next {
			ticks.Tick()
			next += period
			continue
		}
		time.Sleep(time.Duration(next-now) * time.Microsecond)
	}
}
