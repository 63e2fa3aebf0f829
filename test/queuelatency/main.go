//go:build rp2040

// Queue latency benchmark
//
// Measures how long a byte takes to travel from the receiving goroutine,
// through the byte channel and parser, to the control loop on RP2040.
// Flash it, open the USB console and read the report.

package main

import (
	"time"

	"picostep/core"
	"picostep/protocol"
)

const iterations = 200

func main() {
	time.Sleep(2 * time.Second) // Give the console time to attach

	println("=== picostep queue latency ===")

	byteProducer, byteConsumer := protocol.NewByteChannel().Split()
	cmdProducer, cmdConsumer := protocol.NewCommandChannel().Split()

	var stats core.Stats
	var ready core.EventFlag
	receiver := core.NewReceiver(byteProducer, &ready, &stats)
	parser := core.NewParserTask(byteConsumer, cmdProducer, &ready, nil, false, &stats)

	go func() {
		for {
			if parser.Poll() == 0 && !ready.IsSet() {
				time.Sleep(time.Microsecond)
			}
		}
	}()

	var minLatency, maxLatency, total time.Duration
	minLatency = time.Hour
	frame := make([]byte, 0, 4)

	for i := 0; i < iterations; i++ {
		var err error
		frame, err = protocol.AppendCommand(frame[:0], protocol.SetSpeed(uint32(i%protocol.MaxValue)))
		if err != nil {
			println("encode failed:", err.Error())
			return
		}

		start := time.Now()
		receiver.ReceiveAll(frame)

		deadline := start.Add(10 * time.Millisecond)
		for {
			if _, ok := cmdConsumer.Dequeue(); ok {
				break
			}
			if time.Now().After(deadline) {
				println("timeout on iteration", i)
				break
			}
		}

		latency := time.Since(start)
		total += latency
		if latency < minLatency {
			minLatency = latency
		}
		if latency > maxLatency {
			maxLatency = latency
		}
		time.Sleep(100 * time.Microsecond)
	}

	println("samples:", iterations)
	println("min us:", minLatency.Microseconds())
	println("max us:", maxLatency.Microseconds())
	println("avg us:", (total / iterations).Microseconds())
	println("jitter us:", (maxLatency - minLatency).Microseconds())
	println(stats.String())
}
