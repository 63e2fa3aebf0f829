package core

import (
	"io"
	"time"

	"picostep/protocol"
)

// Receiver is the producer side of the byte channel. Receive is meant to be
// called from the UART interrupt (or the goroutine standing in for it) and
// never blocks.
type Receiver struct {
	bytes *protocol.Producer[byte]
	ready *EventFlag
	stats *Stats
}

// NewReceiver creates a receiver feeding bytes and raising ready
func NewReceiver(bytes *protocol.Producer[byte], ready *EventFlag, stats *Stats) *Receiver {
	if stats == nil {
		stats = &Stats{}
	}
	return &Receiver{bytes: bytes, ready: ready, stats: stats}
}

// Receive queues one byte. When the byte channel is full the byte is dropped
// and only counted; the sender is not told.
func (r *Receiver) Receive(b byte) {
	r.stats.BytesReceived.Add(1)
	if err := r.bytes.Enqueue(b); err != nil {
		r.stats.BytesDropped.Add(1)
	}
	r.ready.Raise()
}

// ReceiveAll queues every byte of data
func (r *Receiver) ReceiveAll(data []byte) {
	for _, b := range data {
		r.Receive(b)
	}
}

// ParserTask runs in the parsing context. It drains the byte channel through
// the parser into the command channel and reports parse errors back over the
// serial link.
type ParserTask struct {
	bytes    *protocol.Consumer[byte]
	commands *protocol.Producer[protocol.Command]
	ready    *EventFlag
	out      io.Writer // Error replies and echo, may be nil
	echo     bool
	stats    *Stats

	// A partial frame older than frameTimeout is flushed as truncated
	frameTimeout time.Duration
	partialSince time.Time // Zero when no partial frame is waiting
	now          func() time.Time
}

// NewParserTask creates a parser task. out receives error descriptions and,
// when echo is set, a copy of every consumed byte.
func NewParserTask(bytes *protocol.Consumer[byte], commands *protocol.Producer[protocol.Command], ready *EventFlag, out io.Writer, echo bool, stats *Stats) *ParserTask {
	if stats == nil {
		stats = &Stats{}
	}
	return &ParserTask{
		bytes:    bytes,
		commands: commands,
		ready:    ready,
		out:      out,
		echo:     echo && out != nil,
		stats:    stats,
		now:      time.Now,
	}
}

// SetFrameTimeout sets how long a partial frame may wait for its remaining
// bytes before it is reported as incomplete and dropped. 0 waits forever.
func (p *ParserTask) SetFrameTimeout(timeout time.Duration) {
	p.frameTimeout = timeout
}

// Poll parses everything received since the last call, and flushes a
// partial frame that has waited longer than the frame timeout.
// Returns the number of commands handed to the control loop.
func (p *ParserTask) Poll() int {
	if !p.ready.Take() {
		return p.expirePartial()
	}

	var src protocol.ByteSource = p.bytes
	if p.echo {
		src = &echoSource{src: p.bytes, out: p.out}
	}

	queued := 0
	for {
		// Drop noise up to the next prefix, then wait until the whole frame
		// has arrived so a command split across receive bursts is not
		// mistaken for a truncated one
		head, ok := p.bytes.Peek()
		if !ok {
			p.partialSince = time.Time{}
			break
		}
		size := protocol.FrameSize(head)
		if size == 0 {
			src.Dequeue()
			continue
		}
		if p.bytes.Len() < size {
			// New bytes arrived, so the timeout restarts
			p.partialSince = p.now()
			break
		}

		cmd, err := protocol.Parse(src)
		if err != nil {
			p.stats.ParseErrors.Add(1)
			p.reportError(err)
			continue
		}

		p.stats.CommandsParsed.Add(1)
		if err := p.commands.Enqueue(cmd); err != nil {
			// Control loop is behind; newest command is dropped
			p.stats.CommandsDropped.Add(1)
			DebugAsync("[PARSER] dropped " + cmd.String())
			continue
		}
		queued++
	}
	return queued
}

// Flush parses the bytes buffered right now without waiting for partial
// frames to complete. Truncated frames are reported as parse errors. Bytes
// that arrive while Flush runs are left for the next Poll.
func (p *ParserTask) Flush() int {
	p.partialSince = time.Time{}

	var src protocol.ByteSource = p.bytes
	if p.echo {
		src = &echoSource{src: p.bytes, out: p.out}
	}
	limited := &limitSource{src: src, n: p.bytes.Len()}

	queued := 0
	for limited.n > 0 {
		cmd, err := protocol.Parse(limited)
		if err == protocol.ErrNoCommand {
			break
		}
		if err != nil {
			p.stats.ParseErrors.Add(1)
			p.reportError(err)
			continue
		}
		p.stats.CommandsParsed.Add(1)
		if err := p.commands.Enqueue(cmd); err != nil {
			p.stats.CommandsDropped.Add(1)
			continue
		}
		queued++
	}
	return queued
}

// expirePartial flushes a partial frame that has waited too long
func (p *ParserTask) expirePartial() int {
	if p.frameTimeout <= 0 || p.partialSince.IsZero() {
		return 0
	}
	if p.now().Sub(p.partialSince) < p.frameTimeout {
		return 0
	}
	DebugAsync("[PARSER] partial frame timed out")
	return p.Flush()
}

func (p *ParserTask) reportError(err error) {
	DebugAsync("[PARSER] " + err.Error())
	if p.out == nil {
		return
	}
	msg := err.Error()
	if perr, ok := err.(protocol.ParseError); ok {
		msg = perr.Describe()
	}
	p.out.Write([]byte(msg + "\n"))
}

// echoSource writes every byte it hands to the parser
type echoSource struct {
	src protocol.ByteSource
	out io.Writer
	buf [1]byte
}

func (e *echoSource) Dequeue() (byte, bool) {
	b, ok := e.src.Dequeue()
	if ok {
		e.buf[0] = b
		e.out.Write(e.buf[:])
	}
	return b, ok
}

// limitSource hands out at most n bytes
type limitSource struct {
	src protocol.ByteSource
	n   int
}

func (l *limitSource) Dequeue() (byte, bool) {
	if l.n <= 0 {
		return 0, false
	}
	b, ok := l.src.Dequeue()
	if ok {
		l.n--
	}
	return b, ok
}
