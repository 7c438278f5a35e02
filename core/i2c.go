// Asynchronous I2C master support
// Requests are queued by foreground code and carried out by the bus
// interrupt, one protocol step per interrupt.
package core

import (
	"errors"
	"unsafe"
)

// Submission errors
var (
	ErrNotSetup       = errors.New("i2c: bus opened before setup")
	ErrBusClosed      = errors.New("i2c: bus not open")
	ErrEmptyBuffer    = errors.New("i2c: empty buffer")
	ErrInvalidAddress = errors.New("i2c: address is not 7-bit")
)

// Bus is an interrupt driven I2C master on one peripheral.
//
// Foreground code submits requests with Send, Receive and friends; the
// platform forwards the peripheral interrupt to Interrupt. Submissions block
// only while the queue is full.
type Bus struct {
	hw    I2CBusAdapter
	queue RequestQueue
	fsm   automaton

	setupDone bool
	opens     uint8 // nested Open count
}

// NewBus binds a bus to its hardware adapter
func NewBus(hw I2CBusAdapter) *Bus {
	b := &Bus{hw: hw}
	b.fsm.queue = &b.queue
	return b
}

// Setup programs the bus clock. It must be called before Open; only the
// first call has an effect.
func (b *Bus) Setup(cfg BusConfig) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if b.setupDone {
		return nil
	}
	div, err := ClockDivisor(cfg.SystemClock, cfg.Frequency)
	if err != nil {
		return err
	}
	b.hw.Configure(div)
	b.setupDone = true
	return nil
}

// Open enables the bus. Opens nest: only the first one resets the queue and
// powers the peripheral, and a matching number of Close calls releases it.
func (b *Bus) Open() error {
	state := disableInterrupts()
	if !b.setupDone {
		restoreInterrupts(state)
		return ErrNotSetup
	}
	b.opens++
	first := b.opens == 1
	if first {
		b.queue.reset()
		b.fsm.reset()
		b.hw.Enable()
	}
	restoreInterrupts(state)

	if first {
		DebugPrintln("[I2C] bus open")
	}
	return nil
}

// Close waits until every queued request has completed. The last matching
// Close then disables the peripheral. Never call it from interrupt context.
func (b *Bus) Close() {
	for b.State() != Idle {
		spinPause()
	}

	state := disableInterrupts()
	if b.opens == 0 {
		restoreInterrupts(state)
		return
	}
	b.opens--
	last := b.opens == 0
	if last {
		b.hw.Disable()
	}
	restoreInterrupts(state)

	if last {
		DebugPrintln("[I2C] bus closed")
	}
}

// Swamped reports whether the next submission would have to wait for a free
// queue slot.
func (b *Bus) Swamped() bool {
	return b.queue.IsFull()
}

// State returns the current automaton state.
func (b *Bus) State() BusState {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return b.fsm.state
}

// Pending returns the number of requests queued or in progress.
func (b *Bus) Pending() int {
	return b.queue.Len()
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() BusStats {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return b.fsm.stats
}

// Send queues the transmission of buf to node. buf must not be modified
// until status reports a terminal value. status may be nil.
func (b *Bus) Send(node Address, buf []byte, status *StatusCell) error {
	if len(buf) == 0 {
		return ErrEmptyBuffer
	}
	return b.submit(Request{Kind: SendBlock, Node: node, Buffer: buf, Status: status})
}

// Receive queues the reception of len(buf) bytes from node into buf. buf must
// not be touched until status reports a terminal value. status may be nil.
func (b *Bus) Receive(node Address, buf []byte, status *StatusCell) error {
	if len(buf) == 0 {
		return ErrEmptyBuffer
	}
	return b.submit(Request{Kind: ReceiveBlock, Node: node, Buffer: buf, Status: status})
}

// SendByte queues the transmission of a single byte. The byte is copied into
// the request so there is no buffer to keep alive.
func (b *Bus) SendByte(node Address, v byte, status *StatusCell) error {
	return b.submit(Request{Kind: SendByte, Node: node, Byte: v, Status: status})
}

// ReceiveByte queues the reception of a single byte into *dst.
func (b *Bus) ReceiveByte(node Address, dst *byte, status *StatusCell) error {
	if dst == nil {
		return ErrEmptyBuffer
	}
	return b.Receive(node, unsafe.Slice(dst, 1), status)
}

// SendAndReceive queues a transmission of w followed by a reception into r,
// joined by a repeated START. status reports the reception only; a failed
// transmission is seen as a failed reception.
func (b *Bus) SendAndReceive(node Address, w, r []byte, status *StatusCell) error {
	if len(w) == 0 || len(r) == 0 {
		return ErrEmptyBuffer
	}
	if err := b.Send(node, w, nil); err != nil {
		return err
	}
	return b.Receive(node, r, status)
}

// submit queues r, spinning while the queue is full, and wakes the automaton
// if it is idle.
func (b *Bus) submit(r Request) error {
	if r.Node > MaxAddress {
		return ErrInvalidAddress
	}
	state := disableInterrupts()
	open := b.opens > 0
	restoreInterrupts(state)
	if !open {
		return ErrBusClosed
	}
	if r.Status != nil {
		r.Status.store(Running)
	}

	for {
		state := disableInterrupts()
		if b.queue.enqueue(r) {
			b.fsm.stats.Submitted++
			if b.fsm.state == Idle {
				b.apply(b.fsm.next(Event{Code: EventGoOperative}))
			}
			restoreInterrupts(state)
			return nil
		}
		restoreInterrupts(state)
		spinPause()
	}
}

// Interrupt advances the automaton with the status code the peripheral
// reported. Platforms call it from the bus interrupt handler; host tests call
// it to simulate one.
func (b *Bus) Interrupt(code BusEvent) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	ev := Event{Code: code}
	if code.carriesData() {
		ev.Data = b.hw.ReadByte()
	}
	b.apply(b.fsm.next(ev))
}

// apply carries out a transition's command on the hardware.
func (b *Bus) apply(cmd Command) {
	switch cmd.Op {
	case OpStart:
		b.hw.Start()
	case OpStop:
		b.hw.Stop()
		b.hw.DisableInterrupt()
	case OpWrite:
		b.hw.WriteByte(cmd.Data)
	case OpRequest:
		b.hw.RequestByte(cmd.Ack)
	}
}
