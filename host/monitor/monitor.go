// Package monitor follows the bus telemetry emitted by the firmware.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"respirator/core"
	"respirator/host/serial"
	"respirator/protocol"
)

// ErrNotConnected is returned by Next on a monitor without a source
var ErrNotConnected = errors.New("not connected to firmware")

// Source delivers validated telemetry frames
type Source interface {
	ReceiveMessage(timeout time.Duration) (*protocol.Message, error)
	Stats() protocol.DecoderStats
}

// Sample is one report with the counters that moved since the previous one
type Sample struct {
	Sequence  uint8
	Report    protocol.BusReport
	Delta     protocol.BusReport // counter increments; Uptime is the elapsed time
	Restarted bool               // firmware rebooted since the previous report
	First     bool               // no previous report to compare with

	Pressure     protocol.PressureReport // latest airway pressure sample
	HavePressure bool
}

// Errors returns the number of failed requests in this interval
func (s Sample) Errors() uint32 {
	d := s.Delta
	return d.LengthErrors + d.Rejected + d.Discarded + d.InternalErrors
}

// String formats the sample as one log line
func (s Sample) String() string {
	r, d := s.Report, s.Delta
	var b strings.Builder
	fmt.Fprintf(&b, "t=%.1fs state=%s pending=%d", float64(r.Uptime)/1000, core.BusState(r.State), r.Pending)
	fmt.Fprintf(&b, " ok=%d(+%d) submitted=%d(+%d)", r.Succeeded, d.Succeeded, r.Submitted, d.Submitted)
	if s.Errors() > 0 || r.LengthErrors+r.Rejected+r.Discarded+r.InternalErrors > 0 {
		fmt.Fprintf(&b, " len_err=%d(+%d) rejected=%d(+%d) discarded=%d(+%d) internal=%d(+%d)",
			r.LengthErrors, d.LengthErrors, r.Rejected, d.Rejected,
			r.Discarded, d.Discarded, r.InternalErrors, d.InternalErrors)
	}
	fmt.Fprintf(&b, " restarts=%d spurious=%d", r.RepeatedStarts, r.Spurious)
	if s.HavePressure {
		fmt.Fprintf(&b, " p=%.2fhPa", float64(s.Pressure.Pressure)/100000)
	}
	if s.Restarted {
		b.WriteString(" [firmware restarted]")
	}
	return b.String()
}

// Monitor turns frames from a Source into Samples
type Monitor struct {
	src     Source
	port    io.Closer
	timeout time.Duration

	prev     protocol.BusReport
	havePrev bool
	skipped  uint32 // frames that were not understood

	pressure     protocol.PressureReport
	havePressure bool
}

// New creates a monitor over an existing frame source
func New(src Source, timeout time.Duration) *Monitor {
	return &Monitor{src: src, timeout: timeout}
}

// Connect opens the serial port described by cfg and monitors it
func Connect(cfg *serial.Config, timeout time.Duration) (*Monitor, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush serial port: %w", err)
	}

	transport := protocol.NewHostTransport(port)
	m := New(transport, timeout)
	m.port = transport
	return m, nil
}

// Close closes the connection opened by Connect. It may be called from
// another goroutine to end a blocked Next, which then reports
// protocol.ErrTransportStopped.
func (m *Monitor) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}

// Next waits for the next bus report
func (m *Monitor) Next() (Sample, error) {
	if m.src == nil {
		return Sample{}, ErrNotConnected
	}

	for {
		msg, err := m.src.ReceiveMessage(m.timeout)
		if err != nil {
			return Sample{}, err
		}

		if id, _ := protocol.MessageID(msg.Payload); id == protocol.MsgAirwayPressure {
			p, err := protocol.DecodePressureReport(msg.Payload)
			if err != nil {
				m.skipped++
				continue
			}
			m.pressure, m.havePressure = p, true
			continue
		}

		r, err := protocol.DecodeBusReport(msg.Payload)
		if err != nil {
			m.skipped++
			continue
		}
		return m.sample(msg.Sequence, r), nil
	}
}

// sample compares r with the previous report
func (m *Monitor) sample(seq uint8, r protocol.BusReport) Sample {
	s := Sample{Sequence: seq, Report: r, Pressure: m.pressure, HavePressure: m.havePressure}

	switch {
	case !m.havePrev:
		s.First = true
		s.Delta = r
	case r.Uptime < m.prev.Uptime || r.Submitted < m.prev.Submitted:
		// counters start over after a reboot
		s.Restarted = true
		s.Delta = r
	default:
		p := m.prev
		s.Delta = protocol.BusReport{
			Uptime:         r.Uptime - p.Uptime,
			State:          r.State,
			Pending:        r.Pending,
			Submitted:      r.Submitted - p.Submitted,
			Succeeded:      r.Succeeded - p.Succeeded,
			LengthErrors:   r.LengthErrors - p.LengthErrors,
			Rejected:       r.Rejected - p.Rejected,
			Discarded:      r.Discarded - p.Discarded,
			InternalErrors: r.InternalErrors - p.InternalErrors,
			RepeatedStarts: r.RepeatedStarts - p.RepeatedStarts,
			Spurious:       r.Spurious - p.Spurious,
		}
	}

	m.prev, m.havePrev = r, true
	return s
}

// Pressure returns the latest airway pressure sample, if any was received
func (m *Monitor) Pressure() (protocol.PressureReport, bool) {
	return m.pressure, m.havePressure
}

// Skipped returns the number of frames that could not be decoded
func (m *Monitor) Skipped() uint32 {
	return m.skipped
}

// LinkStats returns the frame decoder counters of the source
func (m *Monitor) LinkStats() protocol.DecoderStats {
	if m.src == nil {
		return protocol.DecoderStats{}
	}
	return m.src.Stats()
}
