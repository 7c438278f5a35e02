package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// BusTraceEvent captures one automaton transition for post-mortem analysis
type BusTraceEvent struct {
	Seq     uint32 // 0 marks an empty slot
	From    BusState
	Event   BusEvent
	To      BusState
	Outcome Status // terminal status when the transition finished a request
}

const (
	BusTraceSize = 32 // Keep last 32 transitions for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Transition ring buffer, written from interrupt context inside the
	// critical section and read back by DumpBusTrace
	traceRing     [BusTraceSize]BusTraceEvent
	traceRingHead uint8
	traceSeq      uint32
	traceEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetBusTraceEnabled turns transition capture on or off
func SetBusTraceEnabled(enabled bool) {
	state := disableInterrupts()
	traceEnabled = enabled
	restoreInterrupts(state)
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from interrupt context.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// recordBusTrace captures a transition in the ring buffer.
// Caller holds the critical section.
func recordBusTrace(from BusState, ev BusEvent, to BusState, outcome Status) {
	if !traceEnabled {
		return
	}
	traceSeq++
	idx := traceRingHead
	traceRing[idx] = BusTraceEvent{
		Seq:     traceSeq,
		From:    from,
		Event:   ev,
		To:      to,
		Outcome: outcome,
	}
	traceRingHead = (idx + 1) % BusTraceSize
}

// BusTrace returns the captured transitions, oldest first
func BusTrace() []BusTraceEvent {
	state := disableInterrupts()
	ring := traceRing
	head := traceRingHead
	restoreInterrupts(state)

	events := make([]BusTraceEvent, 0, BusTraceSize)
	for i := uint8(0); i < BusTraceSize; i++ {
		evt := ring[(head+i)%BusTraceSize]
		if evt.Seq == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// DumpBusTrace outputs the transition ring buffer (call on shutdown/error)
func DumpBusTrace() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[I2C] === Bus Trace Dump ===")
	for _, evt := range BusTrace() {
		line := "[I2C] #" + utoa(evt.Seq) + " " + evt.From.String() +
			" --" + evt.Event.String() + "--> " + evt.To.String()
		if evt.Outcome.Terminal() {
			line += " (" + evt.Outcome.String() + ")"
		}
		debugPrintln(line)
	}
	debugPrintln("[I2C] === End Dump ===")
}

// ClearBusTrace clears the trace buffer
func ClearBusTrace() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	for i := range traceRing {
		traceRing[i] = BusTraceEvent{}
	}
	traceRingHead = 0
	traceSeq = 0
}
