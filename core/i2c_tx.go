package core

import "tinygo.org/x/drivers"

// BlockingI2C adapts a Bus to tinygo.org/x/drivers.I2C so that TinyGo device
// drivers can share the asynchronous queue with other bus users. Each Tx
// queues its requests and spins until they complete, so it must only be used
// from foreground code with the bus interrupt live.
type BlockingI2C struct {
	bus *Bus
}

// Ensure compile-time conformance with drivers.I2C
var _ drivers.I2C = (*BlockingI2C)(nil)

// NewBlockingI2C wraps bus
func NewBlockingI2C(bus *Bus) *BlockingI2C {
	return &BlockingI2C{bus: bus}
}

// Tx writes w and then reads len(r) bytes from addr. When both are present the
// two transfers are joined by a repeated START.
func (d *BlockingI2C) Tx(addr uint16, w, r []byte) error {
	if addr > uint16(MaxAddress) {
		return ErrInvalidAddress
	}
	node := Address(addr)

	var ws, rs StatusCell
	switch {
	case len(w) > 0 && len(r) > 0:
		if err := d.bus.Send(node, w, &ws); err != nil {
			return err
		}
		if err := d.bus.Receive(node, r, &rs); err != nil {
			// w is still referenced by the queued send
			ws.Wait()
			return err
		}
		sent, received := ws.Wait(), rs.Wait()
		if err := sent.Err(); err != nil {
			return err
		}
		return received.Err()
	case len(w) > 0:
		if err := d.bus.Send(node, w, &ws); err != nil {
			return err
		}
		return ws.Wait().Err()
	case len(r) > 0:
		if err := d.bus.Receive(node, r, &rs); err != nil {
			return err
		}
		return rs.Wait().Err()
	}
	return ErrEmptyBuffer
}
