// Package config loads the host tool configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// PICOSTEP_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"picostep/core"
	"picostep/host/link"
	"picostep/host/serial"
)

// Config is the host side configuration
type Config struct {
	Device        string   `yaml:"device" env:"PICOSTEP_DEVICE"`
	Baud          int      `yaml:"baud" env:"PICOSTEP_BAUD"`
	ReadTimeoutMs int      `yaml:"read_timeout_ms" env:"PICOSTEP_READ_TIMEOUT_MS"`
	Simulate      bool     `yaml:"simulate" env:"PICOSTEP_SIMULATE"`
	Verbose       bool     `yaml:"verbose" env:"PICOSTEP_VERBOSE"`
	Firmware      Firmware `yaml:"firmware"`
}

// Firmware mirrors core.Config in a file friendly form. It configures the
// simulator; on hardware the same values are compiled into the target.
type Firmware struct {
	StepMode         string `yaml:"step_mode" env:"PICOSTEP_STEP_MODE"`
	TickFrequency    uint32 `yaml:"tick_frequency" env:"PICOSTEP_TICK_FREQUENCY"`
	BasePeriodMs     uint32 `yaml:"base_period_ms" env:"PICOSTEP_BASE_PERIOD_MS"`
	InitialSpeed     uint32 `yaml:"initial_speed" env:"PICOSTEP_INITIAL_SPEED"`
	InitialDirection string `yaml:"initial_direction" env:"PICOSTEP_INITIAL_DIRECTION"`
	ServoZeroDuty    uint16 `yaml:"servo_zero_duty" env:"PICOSTEP_SERVO_ZERO_DUTY"`
	ServoMaxAngle    uint16 `yaml:"servo_max_angle" env:"PICOSTEP_SERVO_MAX_ANGLE"`
	Echo             bool   `yaml:"echo" env:"PICOSTEP_ECHO"`
}

var (
	ErrNoDevice    = errors.New("no serial device configured")
	ErrInvalidBaud = errors.New("baud rate must be positive")
	ErrUnknownMode = errors.New("unknown step mode")
)

// Default returns the configuration used when nothing else is given
func Default() Config {
	fw := core.DefaultConfig()
	return Config{
		Baud:          int(fw.BaudRate),
		ReadTimeoutMs: serial.DefaultConfig("").ReadTimeout,
		Firmware: Firmware{
			StepMode:         fw.StepMode.String(),
			TickFrequency:    fw.TickFrequency,
			BasePeriodMs:     uint32(fw.BasePeriod / time.Millisecond),
			InitialSpeed:     fw.InitialSpeed,
			InitialDirection: fw.InitialDirection.String(),
			ServoZeroDuty:    fw.ServoZeroDuty,
			ServoMaxAngle:    fw.ServoMaxAngle,
			Echo:             fw.Echo,
		},
	}
}

// Load reads path (if not empty) over the defaults and applies environment
// overrides
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys missing from data keep their current value.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Serial returns the serial port settings
func (c Config) Serial() *serial.Config {
	return &serial.Config{
		Device:      c.Device,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeoutMs,
	}
}

// Core converts the firmware section to a core.Config
func (c Config) Core() (core.Config, error) {
	cfg := core.DefaultConfig()

	mode, err := ParseStepMode(c.Firmware.StepMode)
	if err != nil {
		return cfg, err
	}
	dir, err := link.ParseDirection(strings.ToLower(c.Firmware.InitialDirection))
	if err != nil {
		return cfg, err
	}

	cfg.BaudRate = uint32(c.Baud)
	cfg.Echo = c.Firmware.Echo
	cfg.StepMode = mode
	cfg.TickFrequency = c.Firmware.TickFrequency
	cfg.BasePeriod = time.Duration(c.Firmware.BasePeriodMs) * time.Millisecond
	cfg.InitialSpeed = c.Firmware.InitialSpeed
	cfg.InitialDirection = dir
	cfg.ServoZeroDuty = c.Firmware.ServoZeroDuty
	cfg.ServoMaxAngle = c.Firmware.ServoMaxAngle

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("firmware config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to start the host tool
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return ErrInvalidBaud
	}
	if !c.Simulate && c.Device == "" {
		return ErrNoDevice
	}
	if _, err := c.Core(); err != nil {
		return err
	}
	return nil
}

// ParseStepMode accepts "timer" or "blocking"
func ParseStepMode(s string) (core.StepMode, error) {
	switch strings.ToLower(s) {
	case "timer", "":
		return core.StepModeTimer, nil
	case "blocking":
		return core.StepModeBlocking, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
