package config

import (
	"fmt"

	"respirator/core"
)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Serial.Device == "" {
		return fmt.Errorf("serial: device is required")
	}
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial: invalid baud rate %d", cfg.Serial.Baud)
	}
	if cfg.Serial.ReadTimeoutMs < 0 {
		return fmt.Errorf("serial: read_timeout_ms must not be negative")
	}

	if cfg.Monitor.ReceiveTimeoutMs < 0 {
		return fmt.Errorf("monitor: receive_timeout_ms must not be negative")
	}
	if cfg.Monitor.ReceiveTimeoutMs > 0 && cfg.Monitor.ReceiveTimeoutMs < cfg.Serial.ReadTimeoutMs {
		return fmt.Errorf(
			"monitor: receive_timeout_ms (%d) is shorter than serial read_timeout_ms (%d)",
			cfg.Monitor.ReceiveTimeoutMs,
			cfg.Serial.ReadTimeoutMs,
		)
	}
	if cfg.Monitor.Count < 0 {
		return fmt.Errorf("monitor: count must not be negative")
	}

	if _, err := core.ClockDivisor(cfg.Bus.SystemClock, cfg.Bus.Frequency); err != nil {
		return fmt.Errorf(
			"bus: %d Hz cannot be derived from a %d Hz clock: %w",
			cfg.Bus.Frequency,
			cfg.Bus.SystemClock,
			err,
		)
	}
	return nil
}
