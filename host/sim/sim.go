// Package sim runs the picostep firmware pipeline on the host.
//
// The receiver, parser and control loop run as separate goroutines standing
// in for the UART interrupt, core 1 and core 0, joined by the same lock-free
// channels the firmware uses. A Simulator is also a serial.Port, so host
// tooling can talk to it exactly as it talks to a board.
package sim

import (
	"context"
	"io"
	"sync"
	"time"

	"picostep/core"
	"picostep/protocol"
)

// pollInterval is how long idle goroutines sleep between checks
const pollInterval = 100 * time.Microsecond

// Simulator is an in-process picostep device
type Simulator struct {
	cfg   core.Config
	board Board
	stats core.Stats

	ticks core.TickCounter
	ready core.EventFlag

	receiver *core.Receiver
	bytesIn  *protocol.Producer[byte]
	byteTime time.Duration
	parser   *core.ParserTask
	loop     *core.Loop

	replies *replyBuffer

	writeMu sync.Mutex // Keeps Write single-producer
	running sync.WaitGroup
}

// New builds a simulator from a firmware configuration
func New(cfg core.Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:      cfg,
		byteTime: byteTime(cfg.BaudRate),
		replies:  newReplyBuffer(4096),
	}

	byteProducer, byteConsumer := protocol.NewByteChannel().Split()
	cmdProducer, cmdConsumer := protocol.NewCommandChannel().Split()

	s.bytesIn = byteProducer
	s.receiver = core.NewReceiver(byteProducer, &s.ready, &s.stats)
	s.parser = core.NewParserTask(byteConsumer, cmdProducer, &s.ready, s.replies, cfg.Echo, &s.stats)
	s.parser.SetFrameTimeout(core.FrameTimeout(cfg.BaudRate))

	stepper := core.NewStepperFromConfig(cfg, &s.board.Dir, &s.board.Step)
	servo := core.NewServoFromConfig(cfg, &s.board.Servo)
	s.loop = core.NewLoop(cmdConsumer, stepper, servo, &s.stats)

	switch cfg.StepMode {
	case core.StepModeBlocking:
		s.loop.UseDelay(time.Sleep)
	default:
		s.loop.UseTimer(&s.ticks)
	}

	if err := servo.Center(); err != nil {
		return nil, err
	}
	return s, nil
}

// Board returns the simulated outputs
func (s *Simulator) Board() *Board {
	return &s.board
}

// Stats returns the pipeline counters
func (s *Simulator) Stats() *core.Stats {
	return &s.stats
}

// Run starts the device and blocks until ctx is done.
// The control loop state must not be inspected through Loop while Run is
// active; use Board and Stats instead.
func (s *Simulator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.cfg.StepMode == core.StepModeTimer {
		s.running.Add(1)
		go s.tickLoop(ctx)
	}

	s.running.Add(1)
	go s.parserLoop(ctx)

	s.controlLoop(ctx)

	cancel()
	s.running.Wait()
	return ctx.Err()
}

func (s *Simulator) tickLoop(ctx context.Context) {
	defer s.running.Done()

	ticker := time.NewTicker(core.TickPeriod(s.cfg.TickFrequency))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ticks.Tick()
		}
	}
}

func (s *Simulator) parserLoop(ctx context.Context) {
	defer s.running.Done()

	for ctx.Err() == nil {
		if s.parser.Poll() == 0 && !s.ready.IsSet() {
			time.Sleep(pollInterval)
		}
	}
}

func (s *Simulator) controlLoop(ctx context.Context) {
	for ctx.Err() == nil {
		s.loop.Poll()
		if s.loop.Idle() {
			time.Sleep(pollInterval)
		}
	}
}

// Write delivers bytes to the device as if they arrived on its UART.
// Bytes are paced at the configured baud rate: each byte waits at most one
// character time for room in the byte channel and is dropped after that,
// as it would be on the wire.
func (s *Simulator) Write(p []byte) (int, error) {
	if s.replies.isClosed() {
		return 0, io.ErrClosedPipe
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, b := range p {
		deadline := time.Now().Add(s.byteTime)
		for !s.bytesIn.Ready() && time.Now().Before(deadline) {
			time.Sleep(pollInterval)
		}
		s.receiver.Receive(b)
	}
	return len(p), nil
}

// byteTime is the duration of one 8N1 character at baud
func byteTime(baud uint32) time.Duration {
	if baud == 0 {
		return 0
	}
	return 10 * time.Second / time.Duration(baud)
}

// Read returns bytes the device sent back (error replies, echo)
func (s *Simulator) Read(p []byte) (int, error) {
	return s.replies.Read(p)
}

// Flush discards unread replies
func (s *Simulator) Flush() error {
	s.replies.reset()
	return nil
}

// Close stops accepting input and unblocks readers
func (s *Simulator) Close() error {
	s.replies.close()
	return nil
}

// replyBuffer is the device's transmit side: writes never block (bytes are
// dropped once full), reads block until data or close
type replyBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	max    int
	closed bool
}

func newReplyBuffer(max int) *replyBuffer {
	r := &replyBuffer{max: max}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *replyBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.ErrClosedPipe
	}
	n := len(p)
	if room := r.max - len(r.buf); n > room {
		n = room
	}
	r.buf = append(r.buf, p[:n]...)
	r.cond.Broadcast()
	return len(p), nil
}

func (r *replyBuffer) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.buf) == 0 && !r.closed {
		r.cond.Wait()
	}
	if len(r.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *replyBuffer) reset() {
	r.mu.Lock()
	r.buf = nil
	r.mu.Unlock()
}

func (r *replyBuffer) close() {
	r.mu.Lock()
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()
}

func (r *replyBuffer) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
