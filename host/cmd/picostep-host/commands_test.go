package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"picostep/host/link"
	"picostep/protocol"
)

// capturePort records everything written to it
type capturePort struct {
	bytes.Buffer
}

func (p *capturePort) Read([]byte) (int, error) { return 0, nil }
func (p *capturePort) Close() error             { return nil }
func (p *capturePort) Flush() error             { return nil }

func newTestSession() (*session, *capturePort, *bytes.Buffer) {
	port := &capturePort{}
	out := &bytes.Buffer{}
	return &session{link: link.New(port), out: out}, port, out
}

func TestExec(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wire    string
		wantErr error
	}{
		{"speed", []string{"speed", "12"}, "S012", nil},
		{"dir long", []string{"dir", "backward"}, "DB", nil},
		{"dir upper", []string{"DIR", "S"}, "DS", nil},
		{"angle", []string{"angle", "180"}, "A180", nil},
		{"raw joins args", []string{"raw", "S0", "01"}, "S001", nil},
		{"empty", nil, "", nil},
		{"unknown", []string{"jump"}, "", errUnknown},
		{"missing arg", []string{"speed"}, "", errUsage},
		{"extra arg", []string{"angle", "1", "2"}, "", errUsage},
		{"quit", []string{"quit"}, "", errQuit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, port, _ := newTestSession()
			err := s.exec(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("exec(%q) error = %v, want %v", tt.args, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("exec(%q) unexpected error: %v", tt.args, err)
			}
			if got := port.String(); got != tt.wire {
				t.Errorf("exec(%q) wrote %q, want %q", tt.args, got, tt.wire)
			}
		})
	}
}

func TestExecRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"speed", "1000"},
		{"speed", "-1"},
		{"angle", "ninety"},
		{"dir", "up"},
	} {
		s, port, _ := newTestSession()
		if err := s.exec(args); err == nil {
			t.Errorf("exec(%q) succeeded", args)
		}
		if port.Len() != 0 {
			t.Errorf("exec(%q) wrote %q", args, port.String())
		}
	}
}

func TestRunScript(t *testing.T) {
	s, port, out := newTestSession()

	script := `
# spin up
dir f
speed 100
raw "A0" '90'
stats
quit
speed 5
`
	if err := s.runScript(strings.NewReader(script)); err != nil {
		t.Fatalf("runScript: %v", err)
	}

	// The command after quit is not sent
	if got, want := port.String(), "DFS100A090"; got != want {
		t.Errorf("wire = %q, want %q", got, want)
	}
	if !strings.Contains(out.String(), "sent=2") {
		t.Errorf("stats output = %q", out.String())
	}
}

func TestRunScriptReportsLine(t *testing.T) {
	s, _, _ := newTestSession()

	err := s.runScript(strings.NewReader("speed 1\nspeed\n"))
	if !errors.Is(err, errUsage) {
		t.Fatalf("runScript error = %v, want %v", err, errUsage)
	}
	if !strings.HasPrefix(err.Error(), "line 2:") {
		t.Errorf("error %q does not name the line", err)
	}
}

func TestParseValue(t *testing.T) {
	v, err := parseValue("999")
	if err != nil || v != protocol.MaxValue {
		t.Errorf("parseValue(999) = %d, %v", v, err)
	}
	if _, err := parseValue("1000"); err == nil {
		t.Error("parseValue(1000) succeeded")
	}
}

func TestPrintHelpListsCommands(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf)
	for _, c := range commands {
		if !strings.Contains(buf.String(), c.usage) {
			t.Errorf("help missing %q", c.usage)
		}
	}
}
