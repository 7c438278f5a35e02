package core

import (
	"errors"
	"testing"
)

func TestClockDivisor(t *testing.T) {
	tests := []struct {
		name     string
		sysClock uint32
		freq     uint32
		want     Divisor
	}{
		{"standard mode at 16MHz", 16000000, BusFreq100kHz, Divisor{BitRate: 72}},
		{"fast mode at 16MHz", 16000000, BusFreq400kHz, Divisor{BitRate: 12}},
		{"standard mode at 8MHz", 8000000, BusFreq100kHz, Divisor{BitRate: 32}},
		{"fastest possible", 16000000, 1000000, Divisor{BitRate: 0}},
		{"needs prescaler 4", 16000000, 20000, Divisor{BitRate: 98, Prescaler: 1}},
		{"needs prescaler 64", 16000000, 1000, Divisor{BitRate: 124, Prescaler: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClockDivisor(tt.sysClock, tt.freq)
			if err != nil {
				t.Fatalf("ClockDivisor failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ClockDivisor(%d, %d) = %+v, want %+v", tt.sysClock, tt.freq, got, tt.want)
			}
		})
	}
}

func TestClockDivisorOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		sysClock uint32
		freq     uint32
	}{
		{"zero clock", 0, BusFreq100kHz},
		{"zero frequency", 16000000, 0},
		{"faster than clock/16", 1000000, BusFreq400kHz},
		{"too slow for prescaler", 16000000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ClockDivisor(tt.sysClock, tt.freq); !errors.Is(err, ErrFrequency) {
				t.Errorf("got %v, want ErrFrequency", err)
			}
		})
	}
}

func TestDivisorFrequency(t *testing.T) {
	d, err := ClockDivisor(16000000, BusFreq100kHz)
	if err != nil {
		t.Fatal(err)
	}
	if f := d.Frequency(16000000); f != BusFreq100kHz {
		t.Errorf("Frequency = %d, want %d", f, BusFreq100kHz)
	}

	// integer division rounds the divisor down, so the result is never slower
	d, _ = ClockDivisor(16000000, 30000)
	if f := d.Frequency(16000000); f < 30000 {
		t.Errorf("Frequency = %d, slower than requested", f)
	}
}
