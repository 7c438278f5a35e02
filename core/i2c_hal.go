package core

// BusEvent is the bus status code reported by the I2C peripheral when its
// interrupt fires. The values are the standard TWI master status codes
// (prescaler bits masked off); adapters for other silicon translate their
// own status into these.
type BusEvent uint8

const (
	EventBusError    BusEvent = 0x00 // illegal START/STOP seen on the bus
	EventStart       BusEvent = 0x08 // START transmitted
	EventRepStart    BusEvent = 0x10 // repeated START transmitted
	EventTxAddrAck   BusEvent = 0x18 // SLA+W transmitted, ACK received
	EventTxAddrNack  BusEvent = 0x20 // SLA+W transmitted, NACK received
	EventTxDataAck   BusEvent = 0x28 // data transmitted, ACK received
	EventTxDataNack  BusEvent = 0x30 // data transmitted, NACK received
	EventArbLost     BusEvent = 0x38 // arbitration lost
	EventRxAddrAck   BusEvent = 0x40 // SLA+R transmitted, ACK received
	EventRxAddrNack  BusEvent = 0x48 // SLA+R transmitted, NACK received
	EventRxDataAck   BusEvent = 0x50 // data received, ACK returned
	EventRxDataNack  BusEvent = 0x58 // data received, NACK returned
	EventGoOperative BusEvent = 0xFF // synthetic: a submission woke an idle bus
)

// carriesData reports whether the data register holds a received byte when
// the event fires.
func (e BusEvent) carriesData() bool {
	return e == EventRxDataAck || e == EventRxDataNack
}

func (e BusEvent) String() string {
	switch e {
	case EventBusError:
		return "BUS_ERROR"
	case EventStart:
		return "START"
	case EventRepStart:
		return "REP_START"
	case EventTxAddrAck:
		return "MT_SLA_ACK"
	case EventTxAddrNack:
		return "MT_SLA_NACK"
	case EventTxDataAck:
		return "MT_DATA_ACK"
	case EventTxDataNack:
		return "MT_DATA_NACK"
	case EventArbLost:
		return "ARB_LOST"
	case EventRxAddrAck:
		return "MR_SLA_ACK"
	case EventRxAddrNack:
		return "MR_SLA_NACK"
	case EventRxDataAck:
		return "MR_DATA_ACK"
	case EventRxDataNack:
		return "MR_DATA_NACK"
	case EventGoOperative:
		return "GO_OPERATIVE"
	}
	return "0x" + hex8(uint8(e))
}

// I2CBusAdapter is the register-level surface of one I2C peripheral.
// Porting the driver to different silicon means implementing only this.
//
// Start, WriteByte and RequestByte leave the bus interrupt enabled: the
// peripheral raises it once the operation completes. Stop does not.
type I2CBusAdapter interface {
	// Configure programs the clock divisor computed by ClockDivisor.
	Configure(div Divisor)

	// Enable powers the peripheral and hands it the SDA/SCL pins.
	Enable()

	// Disable releases the peripheral.
	Disable()

	// Start issues a START condition, or a repeated START if the bus is held.
	Start()

	// Stop issues a STOP condition.
	Stop()

	// WriteByte transmits one byte, either an SLA or data.
	WriteByte(b byte)

	// RequestByte releases the next receive cycle. ack selects whether the
	// byte about to arrive is acknowledged (more expected) or not (last one).
	RequestByte(ack bool)

	// ReadByte returns the last byte received.
	ReadByte() byte

	// DisableInterrupt masks the bus interrupt source.
	DisableInterrupt()
}
