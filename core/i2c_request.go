package core

import (
	"errors"
	"sync/atomic"
)

// Address is a 7-bit I2C node address.
type Address uint8

// MaxAddress is the highest valid 7-bit address.
const MaxAddress Address = 0x7F

// sla builds the address byte sent after a START: address plus direction bit.
func (a Address) sla(read bool) byte {
	b := byte(a) << 1
	if read {
		b |= 0x01
	}
	return b
}

// RequestKind tags the payload shape of a Request.
type RequestKind uint8

const (
	SendBlock    RequestKind = iota // Buffer is transmitted
	ReceiveBlock                    // Buffer is filled from the node
	SendByte                        // Byte is transmitted
)

func (k RequestKind) String() string {
	switch k {
	case SendBlock:
		return "send"
	case ReceiveBlock:
		return "receive"
	case SendByte:
		return "send_byte"
	}
	return "unknown"
}

// Request describes one bus transaction. Requests are copied into the queue at
// submission. Buffer belongs to the caller and must be left alone until the
// request reaches a terminal status.
type Request struct {
	Kind   RequestKind
	Node   Address
	Status *StatusCell // optional

	Buffer []byte // SendBlock and ReceiveBlock, len > 0
	Byte   byte   // SendByte
}

// length returns the number of data bytes the request moves.
func (r *Request) length() int {
	switch r.Kind {
	case SendBlock, ReceiveBlock:
		return len(r.Buffer)
	case SendByte:
		return 1
	}
	return 0
}

// Status is the progress of a submitted request.
type Status uint32

const (
	Running Status = iota
	Success
	ReceivedMessageLenError
	SlaveRejected
	SlaveDiscardedData
	InternalError
)

// Terminal reports whether s is a final outcome.
func (s Status) Terminal() bool {
	return s != Running
}

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Success:
		return "success"
	case ReceivedMessageLenError:
		return "received_message_len_error"
	case SlaveRejected:
		return "slave_rejected"
	case SlaveDiscardedData:
		return "slave_discarded_data"
	case InternalError:
		return "internal_error"
	}
	return "unknown"
}

// Request outcome errors, as returned by Status.Err.
var (
	ErrStillRunning      = errors.New("i2c: request still running")
	ErrMessageLength     = errors.New("i2c: received message length mismatch")
	ErrSlaveRejected     = errors.New("i2c: slave rejected address")
	ErrSlaveDiscarded    = errors.New("i2c: slave discarded data")
	ErrInternalAutomaton = errors.New("i2c: unexpected bus event")
)

// Err maps a status to nil for Success or to its sentinel error.
func (s Status) Err() error {
	switch s {
	case Success:
		return nil
	case Running:
		return ErrStillRunning
	case ReceivedMessageLenError:
		return ErrMessageLength
	case SlaveRejected:
		return ErrSlaveRejected
	case SlaveDiscardedData:
		return ErrSlaveDiscarded
	}
	return ErrInternalAutomaton
}

// StatusCell is the shared cell a request reports through. The bus interrupt
// writes it once with a terminal status; foreground code only reads it.
type StatusCell struct {
	v atomic.Uint32
}

// Load returns the current status.
func (c *StatusCell) Load() Status {
	return Status(c.v.Load())
}

// Done reports whether the request reached a terminal status.
func (c *StatusCell) Done() bool {
	return c.Load().Terminal()
}

// Wait spins until the request finishes and returns its outcome.
func (c *StatusCell) Wait() Status {
	for {
		if s := c.Load(); s.Terminal() {
			return s
		}
		spinPause()
	}
}

func (c *StatusCell) store(s Status) {
	c.v.Store(uint32(s))
}
