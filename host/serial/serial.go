// Package serial opens the UART link to the bus firmware.
package serial

import (
	"io"
)

// Port represents a serial port. Tests substitute an in-memory pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Default link settings, matching the firmware UART
const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 // milliseconds
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration the firmware telemetry expects
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}
