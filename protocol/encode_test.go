package protocol

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{SetSpeed(5), "S005"},
		{SetSpeed(0), "S000"},
		{SetServoAngle(180), "A180"},
		{SetDirection(Forward), "DF"},
		{SetDirection(Backward), "DB"},
		{SetDirection(Stop), "DS"},
	}

	for _, test := range tests {
		got, err := Encode(test.cmd)
		if err != nil {
			t.Errorf("Encode(%v) failed: %v", test.cmd, err)
			continue
		}
		if string(got) != test.want {
			t.Errorf("Encode(%v): expected %q, got %q", test.cmd, test.want, got)
		}

		// The parser must read back what the encoder wrote
		parsed, _, err := ParseBytes(got)
		if err != nil || parsed != test.cmd {
			t.Errorf("ParseBytes(%q) = %v, %v; want %v", got, parsed, err, test.cmd)
		}
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	if _, err := Encode(SetSpeed(1000)); err != ErrValueOutOfRange {
		t.Errorf("Expected ErrValueOutOfRange, got %v", err)
	}
	if _, err := Encode(Command{}); err != ErrInvalidCommand {
		t.Errorf("Expected ErrInvalidCommand, got %v", err)
	}
	if _, err := Encode(SetDirection(Direction(9))); err != ErrInvalidCommand {
		t.Errorf("Expected ErrInvalidCommand for bad direction, got %v", err)
	}

	dst := []byte("xx")
	out, err := AppendCommand(dst, SetServoAngle(1000))
	if err == nil || string(out) != "xx" {
		t.Errorf("AppendCommand must leave dst untouched on error, got %q", out)
	}
}

func TestFormatUint(t *testing.T) {
	tests := map[uint32]string{
		0:          "0",
		7:          "7",
		999:        "999",
		4294967295: "4294967295",
	}
	for n, want := range tests {
		if got := FormatUint(n); got != want {
			t.Errorf("FormatUint(%d) = %q, want %q", n, got, want)
		}
	}
	if got := SetServoAngle(45).String(); got != "set_servo_angle angle=45" {
		t.Errorf("String() = %q", got)
	}
}
