//go:build atmega328p

package main

import (
	"device/avr"
	"machine"
	"runtime/interrupt"

	"respirator/core"
)

// twiAdapter implements core.I2CBusAdapter on the ATmega TWI peripheral.
// Every method is a handful of register writes, callable from the ISR.
type twiAdapter struct{}

// twiRun hands the bus back to the peripheral for the next step
const twiRun = avr.TWCR_TWINT | avr.TWCR_TWEN | avr.TWCR_TWIE

// Configure programs the bit rate and prescaler and enables the SDA/SCL
// pull-ups.
func (twiAdapter) Configure(div core.Divisor) {
	machine.PC4.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	machine.PC5.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	avr.TWSR.Set(div.Prescaler & (avr.TWSR_TWPS0 | avr.TWSR_TWPS1))
	avr.TWBR.Set(div.BitRate)
}

func (twiAdapter) Enable() {
	avr.PRR.ClearBits(avr.PRR_PRTWI)
	avr.TWCR.Set(avr.TWCR_TWEN)
}

func (twiAdapter) Disable() {
	avr.TWCR.Set(0)
	avr.PRR.SetBits(avr.PRR_PRTWI)
}

func (twiAdapter) Start() {
	avr.TWCR.Set(twiRun | avr.TWCR_TWSTA)
}

func (twiAdapter) Stop() {
	avr.TWCR.Set(avr.TWCR_TWINT | avr.TWCR_TWEN | avr.TWCR_TWSTO)
}

func (twiAdapter) WriteByte(b byte) {
	avr.TWDR.Set(b)
	avr.TWCR.Set(twiRun)
}

func (twiAdapter) RequestByte(ack bool) {
	if ack {
		avr.TWCR.Set(twiRun | avr.TWCR_TWEA)
		return
	}
	avr.TWCR.Set(twiRun)
}

func (twiAdapter) ReadByte() byte {
	return avr.TWDR.Get()
}

// DisableInterrupt masks the TWI interrupt. TWINT reads back as zero after
// Stop, so the read-modify-write leaves the flag alone.
func (twiAdapter) DisableInterrupt() {
	avr.TWCR.ClearBits(avr.TWCR_TWIE)
}

// handleTWI forwards the TWI status code, prescaler bits masked off
func handleTWI(interrupt.Interrupt) {
	bus.Interrupt(core.BusEvent(avr.TWSR.Get() & 0xF8))
}
