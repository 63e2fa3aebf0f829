//go:build rp2040

package main

import (
	"machine"
	"time"

	"picostep/core"
	"picostep/protocol"
)

var (
	cfg = core.DefaultConfig()

	stats core.Stats
	ticks core.TickCounter
	ready core.EventFlag // Raised by the UART reader, taken by the parser

	uart = machine.UART0
)

func main() {
	// Clear any watchdog state left from before the reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(msg string) {
		println(msg)
	})
	core.InitAsyncDebug()

	if err := cfg.Validate(); err != nil {
		core.DebugAsync("[BOOT] invalid config: " + err.Error())
		return
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: cfg.BaudRate,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	stepPin := machine.Pin(cfg.StepPin)
	stepPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	stepPin.Low()
	dirPin := machine.Pin(cfg.DirPin)
	dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	servoOut, err := newServoChannel(machine.Pin(cfg.ServoPin))
	if err != nil {
		core.DebugAsync("[BOOT] servo: " + err.Error())
		return
	}

	byteProducer, byteConsumer := protocol.NewByteChannel().Split()
	cmdProducer, cmdConsumer := protocol.NewCommandChannel().Split()

	receiver := core.NewReceiver(byteProducer, &ready, &stats)
	parser := core.NewParserTask(byteConsumer, cmdProducer, &ready, uart, cfg.Echo, &stats)
	parser.SetFrameTimeout(core.FrameTimeout(cfg.BaudRate))

	stepper := core.NewStepperFromConfig(cfg, dirPin, stepPin)
	srv := core.NewServoFromConfig(cfg, servoOut)
	if err := srv.Center(); err != nil {
		core.DebugAsync("[BOOT] servo center: " + err.Error())
	}

	loop := core.NewLoop(cmdConsumer, stepper, srv, &stats)
	switch cfg.StepMode {
	case core.StepModeBlocking:
		loop.UseDelay(time.Sleep)
	default:
		loop.UseTimer(&ticks)
		go tickLoop(&ticks, cfg.TickFrequency)
	}

	go uartReaderLoop(receiver)
	go parserLoop(parser)

	core.DebugAsync("[BOOT] picostep " + protocol.Version + " " + cfg.StepMode.String() + " mode")

	// Control loop
	for {
		loop.Poll()
		if loop.Idle() {
			// Yield to other goroutines
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// uartReaderLoop moves bytes from the UART's interrupt-filled buffer into
// the byte channel
func uartReaderLoop(receiver *core.Receiver) {
	for {
		for uart.Buffered() > 0 {
			b, err := uart.ReadByte()
			if err != nil {
				break
			}
			receiver.Receive(b)
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// parserLoop runs the parsing context
func parserLoop(parser *core.ParserTask) {
	for {
		if parser.Poll() == 0 && !ready.IsSet() {
			time.Sleep(50 * time.Microsecond)
		}
	}
}
