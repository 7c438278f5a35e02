package core

// BusState is the state of the master automaton.
type BusState uint8

const (
	Idle           BusState = iota // no request in progress, bus interrupt off
	Starting                       // START sent, waiting for it to complete
	SeekingSlaveTx                 // SLA+W sent
	TxData                         // transmitting data bytes
	SeekingSlaveRx                 // SLA+R sent
	RxData                         // receiving data bytes
)

func (s BusState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case SeekingSlaveTx:
		return "seeking_slave_tx"
	case TxData:
		return "tx_data"
	case SeekingSlaveRx:
		return "seeking_slave_rx"
	case RxData:
		return "rx_data"
	}
	return "unknown"
}

// Event is one input to the automaton. Data holds the received byte for
// EventRxDataAck and EventRxDataNack and is ignored otherwise.
type Event struct {
	Code BusEvent
	Data byte
}

// Op is a hardware operation requested by a transition.
type Op uint8

const (
	OpNone    Op = iota
	OpStart      // START or repeated START, bus interrupt on
	OpStop       // STOP, bus interrupt off
	OpWrite      // transmit Command.Data
	OpRequest    // receive next byte, answering with Command.Ack
)

// Command is what a transition asks the hardware to do next.
type Command struct {
	Op   Op
	Data byte
	Ack  bool
}

// BusStats counts request outcomes and bus diagnostics.
type BusStats struct {
	Submitted      uint32
	Succeeded      uint32
	LengthErrors   uint32
	Rejected       uint32
	Discarded      uint32
	InternalErrors uint32
	RepeatedStarts uint32 // bus kept across two queued requests
	Spurious       uint32 // events received while idle
}

func (s *BusStats) record(outcome Status) {
	switch outcome {
	case Success:
		s.Succeeded++
	case ReceivedMessageLenError:
		s.LengthErrors++
	case SlaveRejected:
		s.Rejected++
	case SlaveDiscardedData:
		s.Discarded++
	default:
		s.InternalErrors++
	}
}

// automaton is the I2C master protocol state machine. It works on the request
// at the queue front and never touches the hardware itself: every transition
// returns the Command the caller must apply. Callers hold the critical
// section for the duration of next.
type automaton struct {
	queue *RequestQueue
	state BusState
	cur   uint8 // queue slot of the request in progress
	index int   // next byte to transmit or receive
	stats BusStats
}

func (m *automaton) reset() {
	m.state = Idle
	m.cur = 0
	m.index = 0
}

// current is the request in progress. Only valid outside Idle.
func (m *automaton) current() *Request {
	return m.queue.at(m.cur)
}

// next performs the transition for ev.
func (m *automaton) next(ev Event) Command {
	from := m.state
	cmd, outcome := m.step(ev)
	recordBusTrace(from, ev.Code, m.state, outcome)
	return cmd
}

// step returns the command to apply and, when a request finished, its
// outcome (Running otherwise).
func (m *automaton) step(ev Event) (Command, Status) {
	switch m.state {
	case Idle:
		if ev.Code != EventGoOperative || m.queue.isEmpty() {
			// nothing to attach a status to
			m.stats.Spurious++
			return Command{}, Running
		}
		m.cur = m.queue.frontSlot()
		m.state = Starting
		return Command{Op: OpStart}, Running

	case Starting:
		if ev.Code != EventStart && ev.Code != EventRepStart {
			break
		}
		req := m.current()
		m.index = 0
		switch req.Kind {
		case ReceiveBlock:
			m.state = SeekingSlaveRx
			return Command{Op: OpWrite, Data: req.Node.sla(true)}, Running
		case SendBlock, SendByte:
			m.state = SeekingSlaveTx
			return Command{Op: OpWrite, Data: req.Node.sla(false)}, Running
		}

	case SeekingSlaveTx:
		switch ev.Code {
		case EventTxAddrAck:
			b, ok := m.current().txByte(0)
			if !ok {
				break
			}
			m.index = 1
			m.state = TxData
			return Command{Op: OpWrite, Data: b}, Running
		case EventTxAddrNack:
			return m.finish(SlaveRejected)
		}

	case TxData:
		switch ev.Code {
		case EventTxDataAck:
			if b, ok := m.current().txByte(m.index); ok {
				m.index++
				return Command{Op: OpWrite, Data: b}, Running
			}
			return m.finish(Success)
		case EventTxDataNack:
			return m.finish(SlaveDiscardedData)
		}

	case SeekingSlaveRx:
		switch ev.Code {
		case EventRxAddrAck:
			req := m.current()
			if req.Kind != ReceiveBlock {
				break
			}
			m.state = RxData
			// acknowledge the first byte unless it is also the last one
			return Command{Op: OpRequest, Ack: len(req.Buffer) > 1}, Running
		case EventRxAddrNack:
			return m.finish(SlaveRejected)
		}

	case RxData:
		buf := m.current().Buffer
		switch ev.Code {
		case EventRxDataAck:
			if m.index >= len(buf) {
				// node kept sending past the requested length
				return m.finish(ReceivedMessageLenError)
			}
			buf[m.index] = ev.Data
			m.index++
			return Command{Op: OpRequest, Ack: m.index+1 < len(buf)}, Running
		case EventRxDataNack:
			if m.index < len(buf) {
				buf[m.index] = ev.Data
			}
			m.index++
			if m.index == len(buf) {
				return m.finish(Success)
			}
			return m.finish(ReceivedMessageLenError)
		}
	}

	return m.finish(InternalError)
}

// finish completes the current request with outcome and moves on: a repeated
// START if more requests are queued, keeping the bus, or STOP and Idle.
func (m *automaton) finish(outcome Status) (Command, Status) {
	req := m.current()
	if req.Status != nil {
		req.Status.store(outcome)
	}
	m.stats.record(outcome)
	m.queue.dequeue()

	if m.queue.isEmpty() {
		m.state = Idle
		return Command{Op: OpStop}, outcome
	}
	m.cur = m.queue.frontSlot()
	m.state = Starting
	m.stats.RepeatedStarts++
	return Command{Op: OpStart}, outcome
}

// txByte returns the i-th byte to transmit, or false once the payload is
// exhausted.
func (r *Request) txByte(i int) (byte, bool) {
	switch r.Kind {
	case SendBlock:
		if i < len(r.Buffer) {
			return r.Buffer[i], true
		}
	case SendByte:
		if i == 0 {
			return r.Byte, true
		}
	}
	return 0, false
}
