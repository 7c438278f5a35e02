package core

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"tinygo.org/x/drivers/tester"
)

// simNode is a simulated slave on a simBus.
type simNode struct {
	nackAddr  bool   // refuse to be addressed
	nackData  int    // index of the written byte to NACK, -1 for none
	supply    []byte // bytes handed out on reads (register mode ignores it)
	lastAfter int    // end reads after this many bytes, 0 for never
	written   []byte // every data byte written to the node

	regs    *tester.I2CDevice8 // register mode: first written byte selects the register
	pointer uint8
}

// simBus implements I2CBusAdapter in memory. Each hardware operation leaves
// at most one pending event which the test delivers to Bus.Interrupt, like
// the peripheral raising its interrupt.
type simBus struct {
	mu    sync.Mutex
	nodes map[Address]*simNode
	ops   []string

	divisor  Divisor
	enabled  bool
	irq      bool
	held     bool // bus owned between START and STOP
	pending  []BusEvent
	data     byte
	addrNext bool // next written byte is an SLA
	node     *simNode
	txCount  int // data bytes written in this transfer
	rxCount  int // data bytes read in this transfer
}

func newSimBus() *simBus {
	return &simBus{nodes: make(map[Address]*simNode)}
}

// addNode attaches a node that acknowledges everything.
func (s *simBus) addNode(addr Address) *simNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &simNode{nackData: -1}
	s.nodes[addr] = n
	return n
}

// addRegisterNode attaches a node backed by a tester register map.
func (s *simBus) addRegisterNode(t *testing.T, addr Address) *tester.I2CDevice8 {
	n := s.addNode(addr)
	n.regs = tester.NewI2CDevice8(t, uint8(addr))
	return n.regs
}

func (s *simBus) log(op string) {
	s.ops = append(s.ops, op)
}

func (s *simBus) raise(ev BusEvent) {
	s.pending = append(s.pending, ev)
}

func (s *simBus) Configure(div Divisor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.divisor = div
}

func (s *simBus) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

func (s *simBus) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

func (s *simBus) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.irq = true
	s.addrNext = true
	if s.held {
		s.log("RESTART")
		s.raise(EventRepStart)
		return
	}
	s.log("START")
	s.held = true
	s.raise(EventStart)
}

func (s *simBus) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("STOP")
	s.held = false
	s.node = nil
}

func (s *simBus) WriteByte(b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addrNext {
		s.addrNext = false
		addr, read := Address(b>>1), b&1 == 1
		if read {
			s.log("SLA+R 0x" + hex8(uint8(addr)))
		} else {
			s.log("SLA+W 0x" + hex8(uint8(addr)))
		}
		n := s.nodes[addr]
		if n == nil || n.nackAddr {
			s.node = nil
			if read {
				s.raise(EventRxAddrNack)
			} else {
				s.raise(EventTxAddrNack)
			}
			return
		}
		s.node, s.txCount, s.rxCount = n, 0, 0
		if read {
			s.raise(EventRxAddrAck)
		} else {
			s.raise(EventTxAddrAck)
		}
		return
	}

	s.log("DATA 0x" + hex8(b))
	n := s.node
	if n == nil {
		s.raise(EventBusError)
		return
	}
	n.written = append(n.written, b)
	if n.regs != nil {
		if s.txCount == 0 {
			n.pointer = b
		} else {
			n.regs.Registers[n.pointer] = b
			n.pointer++
		}
	}
	if s.txCount == n.nackData {
		s.txCount++
		s.raise(EventTxDataNack)
		return
	}
	s.txCount++
	s.raise(EventTxDataAck)
}

func (s *simBus) RequestByte(ack bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ack {
		s.log("READ ACK")
	} else {
		s.log("READ NACK")
	}
	n := s.node
	if n == nil {
		s.raise(EventBusError)
		return
	}
	switch {
	case n.regs != nil:
		s.data = n.regs.Registers[n.pointer]
		n.pointer++
	case s.rxCount < len(n.supply):
		s.data = n.supply[s.rxCount]
	default:
		s.data = 0xFF
	}
	s.rxCount++
	if !ack || (n.lastAfter > 0 && s.rxCount >= n.lastAfter) {
		s.raise(EventRxDataNack)
		return
	}
	s.raise(EventRxDataAck)
}

func (s *simBus) ReadByte() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *simBus) DisableInterrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.irq = false
}

// take pops the pending event, if any
func (s *simBus) take() (BusEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0, false
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, true
}

// step delivers one pending event to bus.
func (s *simBus) step(bus *Bus) bool {
	ev, ok := s.take()
	if ok {
		bus.Interrupt(ev)
	}
	return ok
}

// drain delivers events until the bus falls silent.
func (s *simBus) drain(bus *Bus) {
	for s.step(bus) {
	}
}

// pump delivers events from a separate goroutine, standing in for the
// interrupt preempting foreground code. The returned func stops it and may be
// called more than once.
func (s *simBus) pump(bus *Bus) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			default:
			}
			if !s.step(bus) {
				runtime.Gosched()
			}
		}
	}()
	return func() {
		once.Do(func() { close(done) })
		<-stopped
	}
}

func (s *simBus) opLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *simBus) interruptEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.irq
}

func (s *simBus) hardwareEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// newOpenBus returns an open bus on a fresh simulated adapter.
func newOpenBus(t *testing.T) (*Bus, *simBus) {
	t.Helper()
	sim := newSimBus()
	bus := NewBus(sim)
	if err := bus.Setup(DefaultBusConfig()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := bus.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return bus, sim
}

// waitFor fails the test if done is not closed within a second.
func waitFor(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func equalOps(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("op %d = %q, want %q (ops %v)", i, got[i], want[i], got)
		}
	}
}
