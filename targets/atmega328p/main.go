//go:build atmega328p

package main

import (
	"device/avr"
	"machine"
	"runtime/interrupt"
	"strconv"
	"time"

	"tinygo.org/x/drivers/hd44780i2c"

	"respirator/core"
	"respirator/protocol"
)

const (
	expanderAddr = 0x3F // PCF8574A port expander toggled by the bring-up loop
	lcdAddr      = 0x27 // HD44780 backpack
	// the BMP280 airway sensor sits at bmp280.Address (0x77)

	togglePeriodMS    = 2000
	telemetryPeriodMS = 1000

	// Text debug shares the UART with binary telemetry; the host decoder
	// skips it but it costs frames, so it stays off in normal builds.
	debugText = false
)

var (
	bus = core.NewBus(twiAdapter{})

	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport
	boot         time.Time

	lcd   hd44780i2c.Device
	lcdOK bool

	expander   core.StatusCell
	inFlight   bool
	level      byte
	lastErrors uint32

	toggleTimer = core.Timer{Handler: toggleExpander}
	reportTimer = core.Timer{Handler: reportStats}
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 9600})
	if debugText {
		core.SetDebugWriter(func(s string) {
			machine.Serial.Write([]byte(s))
			machine.Serial.Write([]byte("\r\n"))
		})
		core.SetDebugEnabled(true)
	}

	interrupt.New(avr.IRQ_TWI, handleTWI)

	err := bus.Setup(core.BusConfig{
		SystemClock: machine.CPUFrequency(),
		Frequency:   core.BusFreq100kHz,
	})
	if err != nil {
		halt()
	}
	if err := bus.Open(); err != nil {
		halt()
	}

	outputBuffer = protocol.NewScratchOutput()
	transport = protocol.NewTransport(outputBuffer)
	boot = time.Now()

	i2c := core.NewBlockingI2C(bus)
	lcd = hd44780i2c.New(i2c, lcdAddr)
	lcdOK = lcd.Configure(hd44780i2c.Config{Width: 16, Height: 2}) == nil

	core.SetTime(uptime())
	setupPressureSensor(i2c)
	toggleTimer.WakeTime = core.GetTime()
	reportTimer.WakeTime = core.GetTime() + core.TimerFromMS(500)
	core.ScheduleTimer(&toggleTimer)
	core.ScheduleTimer(&reportTimer)

	for {
		core.SetTime(uptime())
		core.ProcessTimers()
		time.Sleep(10 * time.Millisecond)
	}
}

func uptime() uint32 {
	return uint32(time.Since(boot).Milliseconds())
}

// toggleExpander drives every expander pin low, then high, one level per
// period. A level still on the bus is not overtaken.
func toggleExpander(t *core.Timer) uint8 {
	t.WakeTime += core.TimerFromMS(togglePeriodMS)

	if inFlight && !expander.Done() {
		return core.SF_RESCHEDULE
	}
	inFlight = false
	if !bus.Swamped() && bus.SendByte(expanderAddr, level, &expander) == nil {
		inFlight = true
		level = ^level
	}

	if lcdOK {
		showStats(bus.Stats(), bus.Pending())
	}
	return core.SF_RESCHEDULE
}

// reportStats emits a telemetry frame and, in debug builds, dumps the
// transition trace after an internal error.
func reportStats(t *core.Timer) uint8 {
	t.WakeTime += core.TimerFromMS(telemetryPeriodMS)

	stats := bus.Stats()
	sendReport(stats)
	if debugText && stats.InternalErrors != lastErrors {
		core.DumpBusTrace()
		lastErrors = stats.InternalErrors
	}
	return core.SF_RESCHEDULE
}

// sendReport writes one telemetry frame to the UART
func sendReport(stats core.BusStats) {
	r := protocol.BusReport{
		Uptime:         uptime(),
		State:          uint8(bus.State()),
		Pending:        uint8(bus.Pending()),
		Submitted:      stats.Submitted,
		Succeeded:      stats.Succeeded,
		LengthErrors:   stats.LengthErrors,
		Rejected:       stats.Rejected,
		Discarded:      stats.Discarded,
		InternalErrors: stats.InternalErrors,
		RepeatedStarts: stats.RepeatedStarts,
		Spurious:       stats.Spurious,
	}

	outputBuffer.Reset()
	transport.SendBusReport(&r)
	machine.Serial.Write(outputBuffer.Result())
}

// showStats prints the request counters on the status LCD
func showStats(stats core.BusStats, pending int) {
	failed := stats.LengthErrors + stats.Rejected + stats.Discarded + stats.InternalErrors

	lcd.ClearDisplay()
	lcd.Print([]byte("I2C ok " + strconv.FormatUint(uint64(stats.Succeeded), 10)))
	lcd.SetCursor(0, 1)
	lcd.Print([]byte("err " + strconv.FormatUint(uint64(failed), 10) +
		" q " + strconv.Itoa(pending)))
}

// halt stops here when the bus cannot be brought up
func halt() {
	for {
		time.Sleep(time.Second)
	}
}
