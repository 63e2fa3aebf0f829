package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/abiosoft/ishell/v2"

	"picostep/core"
	"picostep/host/config"
	"picostep/host/link"
	"picostep/host/serial"
	"picostep/host/sim"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	list       = flag.Bool("list", false, "List serial ports and exit")
	simulate   = flag.Bool("simulate", false, "Run against the in-process firmware simulator")
	script     = flag.String("script", "", "Run commands from a file instead of the interactive shell")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	if *list {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}
	if *simulate {
		cfg.Simulate = true
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	s := &session{out: os.Stdout}

	if cfg.Simulate {
		fw, err := cfg.Core()
		if err != nil {
			return err
		}
		if cfg.Verbose {
			core.SetDebugWriter(func(msg string) { fmt.Println(msg) })
			core.SetDebugEnabled(true)
			core.InitAsyncDebug()
		}

		s.sim, err = sim.New(fw)
		if err != nil {
			return fmt.Errorf("failed to start simulator: %w", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.sim.Run(ctx)

		fmt.Printf("Simulating picostep firmware (%s mode, %d Hz tick)\n", fw.StepMode, fw.TickFrequency)
		s.link = link.New(s.sim)
	} else {
		fmt.Printf("Connecting to %s at %d baud...\n", cfg.Device, cfg.Baud)
		l, err := link.Connect(cfg.Serial())
		if err != nil {
			return err
		}
		s.link = l
	}
	defer s.link.Close()

	go func() {
		err := s.link.ReadReplies(func(line string) {
			fmt.Printf("< %s\n", line)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}()

	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			return err
		}
		defer f.Close()
		return s.runScript(f)
	}

	printHelp(os.Stdout)
	shell := newShell(s)
	shell.Run()
	return nil
}

func newShell(s *session) *ishell.Shell {
	shell := ishell.New()
	shell.Println("picostep host shell")
	shell.ShowPrompt(true)

	for _, c := range commands {
		c := c
		shell.AddCmd(&ishell.Cmd{
			Name:     c.name,
			Help:     c.help,
			LongHelp: c.usage,
			Func: func(ctx *ishell.Context) {
				err := s.exec(append([]string{c.name}, ctx.Args...))
				switch {
				case errors.Is(err, errQuit):
					ctx.Stop()
				case err != nil:
					ctx.Err(err)
				}
			},
		})
	}
	return shell
}
