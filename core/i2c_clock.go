package core

import "errors"

// Bus clock defaults for an Arduino class board
const (
	DefaultSystemClock = 16000000
	BusFreq100kHz      = 100000
	BusFreq400kHz      = 400000
)

// ErrFrequency is returned when the requested bus frequency cannot be
// derived from the system clock.
var ErrFrequency = errors.New("i2c: bus frequency out of range")

// BusConfig is the clock configuration applied by Bus.Setup.
type BusConfig struct {
	SystemClock uint32 // CPU clock feeding the peripheral, Hz
	Frequency   uint32 // desired SCL frequency, Hz
}

// DefaultBusConfig returns a standard mode (100 kHz) bus on a 16 MHz part.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		SystemClock: DefaultSystemClock,
		Frequency:   BusFreq100kHz,
	}
}

// Divisor is the bit rate register value and the prescaler selector
// (0..3 for a prescaler of 1, 4, 16 or 64).
type Divisor struct {
	BitRate   uint8
	Prescaler uint8
}

// prescale returns the prescaler factor selected by d.
func (d Divisor) prescale() uint32 {
	return 1 << (2 * uint32(d.Prescaler))
}

// Frequency returns the SCL frequency d produces from sysClock.
func (d Divisor) Frequency(sysClock uint32) uint32 {
	return sysClock / (16 + 2*uint32(d.BitRate)*d.prescale())
}

// ClockDivisor computes the divisor for
//
//	SCL = sysClock / (16 + 2 * BitRate * prescaler)
//
// picking the smallest prescaler that keeps BitRate in range.
// Datasheets advise a BitRate of 10 or more in master mode; lower values are
// returned as is.
func ClockDivisor(sysClock, freq uint32) (Divisor, error) {
	if sysClock == 0 || freq == 0 {
		return Divisor{}, ErrFrequency
	}
	ratio := sysClock / freq
	if ratio < 16 {
		return Divisor{}, ErrFrequency
	}
	span := (ratio - 16) / 2

	for ps := uint8(0); ps < 4; ps++ {
		d := Divisor{Prescaler: ps}
		if br := span / d.prescale(); br <= 0xFF {
			d.BitRate = uint8(br)
			return d, nil
		}
	}
	return Divisor{}, ErrFrequency
}
