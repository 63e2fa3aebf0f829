package link

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"picostep/protocol"
)

// mockPort records writes and replays scripted reads
type mockPort struct {
	mu       sync.Mutex
	written  bytes.Buffer
	reads    [][]byte
	readErr  error
	writeErr error
	closed   bool
	flushes  int
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	// Accept at most 3 bytes per call to exercise the write loop
	if len(p) > 3 {
		p = p[:3]
	}
	return m.written.Write(p)
}

func (m *mockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reads) == 0 {
		if m.readErr != nil {
			return 0, m.readErr
		}
		m.closed = true
		return 0, io.EOF
	}
	n := copy(p, m.reads[0])
	m.reads = m.reads[1:]
	return n, nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPort) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

func (m *mockPort) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

func TestSend(t *testing.T) {
	port := &mockPort{}
	l := New(port)

	if err := l.SetSpeed(7); err != nil {
		t.Fatal(err)
	}
	if err := l.SetDirection(protocol.Backward); err != nil {
		t.Fatal(err)
	}
	if err := l.SetAngle(135); err != nil {
		t.Fatal(err)
	}

	if got, want := port.String(), "S007DBA135"; got != want {
		t.Errorf("wire = %q, want %q", got, want)
	}
	if got := l.Sent(); got != 3 {
		t.Errorf("Sent() = %d, want 3", got)
	}
}

func TestSendRejectsOutOfRange(t *testing.T) {
	port := &mockPort{}
	l := New(port)

	err := l.SetSpeed(1000)
	if !errors.Is(err, protocol.ErrValueOutOfRange) {
		t.Fatalf("SetSpeed(1000) error = %v, want %v", err, protocol.ErrValueOutOfRange)
	}
	if port.String() != "" {
		t.Errorf("wrote %q for rejected command", port.String())
	}
	if l.Sent() != 0 {
		t.Errorf("Sent() = %d, want 0", l.Sent())
	}
}

func TestWriteError(t *testing.T) {
	boom := errors.New("unplugged")
	l := New(&mockPort{writeErr: boom})

	if err := l.SetSpeed(1); !errors.Is(err, boom) {
		t.Errorf("SetSpeed error = %v, want %v", err, boom)
	}
}

func TestClose(t *testing.T) {
	port := &mockPort{}
	l := New(port)

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !port.closed {
		t.Error("port not closed")
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := l.SetSpeed(1); !errors.Is(err, ErrClosed) {
		t.Errorf("SetSpeed after Close = %v, want %v", err, ErrClosed)
	}
}

func TestReadReplies(t *testing.T) {
	port := &mockPort{reads: [][]byte{
		[]byte("invalid digit"),
		[]byte(" in command payload\r\nincomplete"),
		[]byte(" command payload\n"),
	}}
	l := New(port)

	var got []string
	done := make(chan error)
	go func() {
		done <- l.ReadReplies(func(line string) {
			got = append(got, line)
			if len(got) == 2 {
				l.Close()
			}
		})
	}()

	if err := <-done; err != nil {
		t.Fatalf("ReadReplies: %v", err)
	}
	want := []string{
		protocol.ErrInvalidDigit.Describe(),
		protocol.ErrIncompletePayload.Describe(),
	}
	if len(got) != len(want) {
		t.Fatalf("replies = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reply[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadRepliesError(t *testing.T) {
	boom := errors.New("device lost")
	l := New(&mockPort{readErr: boom})

	if err := l.ReadReplies(func(string) {}); !errors.Is(err, boom) {
		t.Errorf("ReadReplies error = %v, want %v", err, boom)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want protocol.Direction
	}{
		{"f", protocol.Forward},
		{"F", protocol.Forward},
		{"forward", protocol.Forward},
		{"b", protocol.Backward},
		{"backward", protocol.Backward},
		{"s", protocol.Stop},
		{"stop", protocol.Stop},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseDirection(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseDirection("left"); err == nil {
		t.Error("ParseDirection(left) succeeded")
	}
}
