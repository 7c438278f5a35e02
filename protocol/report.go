package protocol

import "errors"

// Message IDs
const (
	MsgBusReport      uint16 = 1
	MsgAirwayPressure uint16 = 2
)

// ErrUnknownMessage is returned when a payload carries an unexpected ID
var ErrUnknownMessage = errors.New("unknown message id")

// BusReport is the periodic snapshot of the I2C bus the firmware emits
type BusReport struct {
	Uptime  uint32 // milliseconds since boot
	State   uint8  // automaton state
	Pending uint8  // requests queued or in progress

	Submitted      uint32
	Succeeded      uint32
	LengthErrors   uint32
	Rejected       uint32
	Discarded      uint32
	InternalErrors uint32
	RepeatedStarts uint32
	Spurious       uint32
}

func (r *BusReport) fields() []*uint32 {
	return []*uint32{
		&r.Submitted, &r.Succeeded, &r.LengthErrors, &r.Rejected,
		&r.Discarded, &r.InternalErrors, &r.RepeatedStarts, &r.Spurious,
	}
}

// EncodeBusReport writes the report fields after the message ID
func EncodeBusReport(output OutputBuffer, r *BusReport) {
	EncodeVLQUint(output, r.Uptime)
	EncodeVLQUint(output, uint32(r.State))
	EncodeVLQUint(output, uint32(r.Pending))
	for _, f := range r.fields() {
		EncodeVLQUint(output, *f)
	}
}

// SendBusReport frames r as a MsgBusReport message
func (t *Transport) SendBusReport(r *BusReport) {
	t.SendMessage(MsgBusReport, func(output OutputBuffer) {
		EncodeBusReport(output, r)
	})
}

// MessageID returns the message ID at the start of a frame payload
func MessageID(payload []byte) (uint16, error) {
	id, err := DecodeVLQUint(&payload)
	return uint16(id), err
}

// expect consumes the message ID and checks it against want
func expect(payload *[]byte, want uint16) error {
	id, err := DecodeVLQUint(payload)
	if err != nil {
		return err
	}
	if uint16(id) != want {
		return ErrUnknownMessage
	}
	return nil
}

// DecodeBusReport parses a MsgBusReport frame payload
func DecodeBusReport(payload []byte) (BusReport, error) {
	var r BusReport

	err := expect(&payload, MsgBusReport)
	if err != nil {
		return r, err
	}

	if r.Uptime, err = DecodeVLQUint(&payload); err != nil {
		return r, err
	}
	state, err := DecodeVLQUint(&payload)
	if err != nil {
		return r, err
	}
	pending, err := DecodeVLQUint(&payload)
	if err != nil {
		return r, err
	}
	r.State, r.Pending = uint8(state), uint8(pending)

	for _, f := range r.fields() {
		if *f, err = DecodeVLQUint(&payload); err != nil {
			return r, err
		}
	}
	return r, nil
}

// PressureReport is one airway pressure sample from the BMP280
type PressureReport struct {
	Uptime      uint32 // milliseconds since boot
	Pressure    int32  // mPa
	Temperature int32  // milli degrees Celsius
}

// SendPressureReport frames r as a MsgAirwayPressure message
func (t *Transport) SendPressureReport(r *PressureReport) {
	t.SendMessage(MsgAirwayPressure, func(output OutputBuffer) {
		EncodeVLQUint(output, r.Uptime)
		EncodeVLQInt(output, r.Pressure)
		EncodeVLQInt(output, r.Temperature)
	})
}

// DecodePressureReport parses a MsgAirwayPressure frame payload
func DecodePressureReport(payload []byte) (PressureReport, error) {
	var r PressureReport

	err := expect(&payload, MsgAirwayPressure)
	if err != nil {
		return r, err
	}
	if r.Uptime, err = DecodeVLQUint(&payload); err != nil {
		return r, err
	}
	if r.Pressure, err = DecodeVLQInt(&payload); err != nil {
		return r, err
	}
	r.Temperature, err = DecodeVLQInt(&payload)
	return r, err
}
