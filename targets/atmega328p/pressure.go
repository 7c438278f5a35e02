//go:build atmega328p

// Airway pressure sensor.
//
// Hardware Setup:
//   - BMP280 breakout on the same TWI bus as the LCD and expander
//   - Address: 0x77 (SDO pin high)
//   - VCC: 3.3V through the breakout regulator
//
// The sensor runs in forced mode: every read triggers one conversion, so it
// only draws current while the telemetry timer samples it.

package main

import (
	"machine"

	"tinygo.org/x/drivers/bmp280"

	"respirator/core"
	"respirator/protocol"
)

const pressurePeriodMS = 250

var (
	sensor   bmp280.Device
	sensorOK bool

	pressureTimer = core.Timer{Handler: samplePressure}
)

// setupPressureSensor probes and configures the BMP280. The firmware keeps
// running without it; only the pressure frames are missing.
func setupPressureSensor(i2c *core.BlockingI2C) {
	sensor = bmp280.New(i2c)
	if !sensor.Connected() {
		core.DebugPrintln("[BMP280] not found")
		return
	}
	sensor.Configure(bmp280.STANDBY_63MS, bmp280.FILTER_4X,
		bmp280.SAMPLING_2X, bmp280.SAMPLING_16X, bmp280.MODE_FORCED)
	sensorOK = true

	pressureTimer.WakeTime = core.GetTime() + core.TimerFromMS(pressurePeriodMS)
	core.ScheduleTimer(&pressureTimer)
}

// samplePressure reads one conversion and reports it to the host
func samplePressure(t *core.Timer) uint8 {
	t.WakeTime += core.TimerFromMS(pressurePeriodMS)

	if bus.Swamped() {
		return core.SF_RESCHEDULE
	}
	temp, err := sensor.ReadTemperature()
	if err != nil {
		return core.SF_RESCHEDULE
	}
	pressure, err := sensor.ReadPressure()
	if err != nil {
		return core.SF_RESCHEDULE
	}

	r := protocol.PressureReport{
		Uptime:      uptime(),
		Pressure:    pressure,
		Temperature: temp,
	}
	outputBuffer.Reset()
	transport.SendPressureReport(&r)
	machine.Serial.Write(outputBuffer.Result())
	return core.SF_RESCHEDULE
}
