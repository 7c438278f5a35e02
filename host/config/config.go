// Package config loads the YAML configuration of the host tools.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"respirator/core"
	"respirator/host/serial"
)

// Config is the busmon configuration file
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Monitor MonitorConfig `yaml:"monitor"`
	Bus     BusConfig     `yaml:"bus"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- MONITOR ----

type MonitorConfig struct {
	// Give up when no frame arrives for this long
	ReceiveTimeoutMs int `yaml:"receive_timeout_ms"`

	// Only print reports whose error counters moved
	ErrorsOnly bool `yaml:"errors_only"`

	// Stop after this many reports, 0 for no limit
	Count int `yaml:"count"`
}

// ---- BUS ----

// BusConfig mirrors the firmware bus clock so busmon can show the SCL rate
// the divisor actually produces.
type BusConfig struct {
	SystemClock uint32 `yaml:"system_clock"`
	Frequency   uint32 `yaml:"frequency"`
}

// Load reads and parses path, then applies defaults. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.Serial.Device == "" {
		cfg.Serial.Device = "/dev/ttyUSB0"
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = serial.DefaultBaud
	}
	if cfg.Serial.ReadTimeoutMs == 0 {
		cfg.Serial.ReadTimeoutMs = serial.DefaultReadTimeout
	}

	if cfg.Monitor.ReceiveTimeoutMs == 0 {
		cfg.Monitor.ReceiveTimeoutMs = 5000
	}

	def := core.DefaultBusConfig()
	if cfg.Bus.SystemClock == 0 {
		cfg.Bus.SystemClock = def.SystemClock
	}
	if cfg.Bus.Frequency == 0 {
		cfg.Bus.Frequency = def.Frequency
	}
}

// SerialPort returns the port settings for serial.Open
func (c *Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeoutMs,
	}
}

// BusClock returns the firmware bus clock settings
func (c *Config) BusClock() core.BusConfig {
	return core.BusConfig{
		SystemClock: c.Bus.SystemClock,
		Frequency:   c.Bus.Frequency,
	}
}
