package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"picostep/host/link"
	"picostep/host/sim"
	"picostep/protocol"
)

var (
	errUsage   = errors.New("wrong number of arguments")
	errUnknown = errors.New("unknown command")
	errQuit    = errors.New("quit")
)

// command is one host tool command, shared by the interactive shell and
// script mode
type command struct {
	name  string
	usage string
	help  string
	args  int // Exact argument count, -1 for any
	run   func(s *session, args []string) error
}

var commands = []command{
	{"speed", "speed <0-999>", "Set stepper speed", 1, (*session).speed},
	{"dir", "dir <f|b|s>", "Set stepper direction (forward, backward, stop)", 1, (*session).dir},
	{"angle", "angle <0-999>", "Set servo angle in degrees", 1, (*session).angle},
	{"raw", "raw <text>...", "Send text to the firmware unchanged", -1, (*session).raw},
	{"stats", "stats", "Show link and simulator counters", 0, (*session).stats},
	{"quit", "quit", "Exit", 0, func(*session, []string) error { return errQuit }},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// session binds the commands to a connected link
type session struct {
	link *link.Link
	sim  *sim.Simulator // nil when talking to hardware
	out  io.Writer
}

// exec runs one tokenized command line
func (s *session) exec(args []string) error {
	if len(args) == 0 {
		return nil
	}
	c, ok := lookupCommand(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("%w: %s", errUnknown, args[0])
	}
	if c.args >= 0 && len(args)-1 != c.args {
		return fmt.Errorf("%w: usage %s", errUsage, c.usage)
	}
	return c.run(s, args[1:])
}

// runScript executes r line by line. Blank lines and # comments are skipped.
// The first failing line stops the script.
func (s *session) runScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		args, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := s.exec(args); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

func (s *session) speed(args []string) error {
	v, err := parseValue(args[0])
	if err != nil {
		return err
	}
	if err := s.link.SetSpeed(uint32(v)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "speed %d\n", v)
	return nil
}

func (s *session) dir(args []string) error {
	d, err := link.ParseDirection(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	if err := s.link.SetDirection(d); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "direction %s\n", d)
	return nil
}

func (s *session) angle(args []string) error {
	v, err := parseValue(args[0])
	if err != nil {
		return err
	}
	if err := s.link.SetAngle(uint16(v)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "angle %d\n", v)
	return nil
}

func (s *session) raw(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage raw <text>...", errUsage)
	}
	return s.link.SendRaw([]byte(strings.Join(args, "")))
}

func (s *session) stats(args []string) error {
	fmt.Fprintf(s.out, "sent=%d\n", s.link.Sent())
	if s.sim != nil {
		fmt.Fprintln(s.out, s.sim.Stats().String())
		b := s.sim.Board()
		fmt.Fprintf(s.out, "step_rises=%d dir_high=%v servo_duty=%d\n",
			b.Step.Rises(), b.Dir.IsHigh(), b.Servo.Duty())
	}
	return nil
}

func parseValue(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	if v > protocol.MaxValue {
		return 0, fmt.Errorf("value %d out of range 0-%d", v, protocol.MaxValue)
	}
	return v, nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable commands:")
	sorted := append([]command(nil), commands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	for _, c := range sorted {
		fmt.Fprintf(w, "  %-16s - %s\n", c.usage, c.help)
	}
	fmt.Fprintln(w)
}
