package protocol

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func sampleReport() BusReport {
	return BusReport{
		Uptime:         2000,
		Submitted:      3,
		Succeeded:      2,
		Rejected:       1,
		RepeatedStarts: 1,
	}
}

func encodeReports(reports ...BusReport) []byte {
	var out []byte
	scratch := NewScratchOutput()
	tr := NewTransport(scratch)
	for i := range reports {
		scratch.Reset()
		tr.SendBusReport(&reports[i])
		out = append(out, scratch.Result()...)
	}
	return out
}

func TestTransportEncodesBusReport(t *testing.T) {
	got := encodeReports(sampleReport())
	want := []byte{
		0x12, 0x10, // length, sequence
		0x01,       // MsgBusReport
		0x8F, 0x50, // uptime 2000
		0x00, 0x00, // state, pending
		0x03, 0x02, 0x00, 0x01, 0x00, 0x00, 0x01, 0x00,
		0x17, 0xBB, MessageValueSync,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("frame = % x\nwant    % x", got, want)
	}
}

func TestTransportSequenceWraps(t *testing.T) {
	tr := NewTransport(NewScratchOutput())
	for i := 0; i < MessageSeqMask+1; i++ {
		tr.SendMessage(MsgBusReport, nil)
	}
	if seq := tr.Sequence(); seq != MessageDest {
		t.Errorf("sequence after 16 frames = %#x, want %#x", seq, MessageDest)
	}
	tr.SendMessage(MsgBusReport, nil)
	tr.Reset()
	if seq := tr.Sequence(); seq != MessageDest {
		t.Errorf("sequence after Reset = %#x", seq)
	}
}

func decodeAll(t *testing.T, d *FrameDecoder, stream []byte) []BusReport {
	t.Helper()
	var reports []BusReport
	d.Receive(NewSliceInputBuffer(stream), func(msg Message) {
		r, err := DecodeBusReport(msg.Payload)
		if err != nil {
			t.Fatalf("DecodeBusReport failed: %v", err)
		}
		reports = append(reports, r)
	})
	return reports
}

func TestFrameDecoderRoundTrip(t *testing.T) {
	in := []BusReport{sampleReport(), {Uptime: 0xFFFFFFFF, State: 5, Pending: 9, Spurious: 70000}}
	d := NewFrameDecoder()

	out := decodeAll(t, d, encodeReports(in...))
	if len(out) != len(in) {
		t.Fatalf("decoded %d reports, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("report %d = %+v, want %+v", i, out[i], in[i])
		}
	}
	if s := d.Stats(); s.Frames != 2 || s.Resyncs != 0 || s.Lost != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestFrameDecoderResyncsAfterGarbage(t *testing.T) {
	stream := append([]byte{0x41, 0x42, 0x43}, encodeReports(sampleReport(), sampleReport())...)
	d := NewFrameDecoder()

	if out := decodeAll(t, d, stream); len(out) != 1 {
		t.Errorf("decoded %d reports, want 1 after losing the first frame", len(out))
	}
	s := d.Stats()
	if s.Resyncs != 1 {
		t.Errorf("Resyncs = %d, want 1", s.Resyncs)
	}
	if s.Discarded == 0 {
		t.Error("garbage not counted as discarded")
	}
}

func TestFrameDecoderRejectsBadCRC(t *testing.T) {
	stream := encodeReports(sampleReport(), sampleReport())
	stream[4] ^= 0x01 // corrupt the first payload

	d := NewFrameDecoder()
	out := decodeAll(t, d, stream)
	if len(out) != 1 {
		t.Fatalf("decoded %d reports, want 1", len(out))
	}
	if d.Stats().Resyncs != 1 {
		t.Errorf("Resyncs = %d, want 1", d.Stats().Resyncs)
	}
}

func TestFrameDecoderCountsLostFrames(t *testing.T) {
	frames := make([][]byte, 5)
	scratch := NewScratchOutput()
	tr := NewTransport(scratch)
	r := sampleReport()
	for i := range frames {
		scratch.Reset()
		tr.SendBusReport(&r)
		frames[i] = append([]byte(nil), scratch.Result()...)
	}

	// frames 1 and 2 never arrive
	var stream []byte
	stream = append(stream, frames[0]...)
	stream = append(stream, frames[3]...)
	stream = append(stream, frames[4]...)

	d := NewFrameDecoder()
	decodeAll(t, d, stream)
	if s := d.Stats(); s.Frames != 3 || s.Lost != 2 {
		t.Errorf("stats = %+v, want 3 frames and 2 lost", s)
	}
}

func TestFrameDecoderPartialFrames(t *testing.T) {
	stream := encodeReports(sampleReport())
	fifo := NewFifoBuffer(128)
	d := NewFrameDecoder()

	count := 0
	handle := func(Message) { count++ }

	fifo.Write(stream[:7])
	d.Receive(fifo, handle)
	if count != 0 {
		t.Fatal("frame delivered before it was complete")
	}
	if fifo.Available() != 7 {
		t.Errorf("partial frame consumed: %d bytes left", fifo.Available())
	}

	fifo.Write(stream[7:])
	d.Receive(fifo, handle)
	if count != 1 || !fifo.IsEmpty() {
		t.Errorf("count = %d, %d bytes left", count, fifo.Available())
	}
}

func TestDecodeBusReportErrors(t *testing.T) {
	if _, err := DecodeBusReport([]byte{0x02}); err != ErrUnknownMessage {
		t.Errorf("wrong id: got %v, want ErrUnknownMessage", err)
	}
	if _, err := DecodeBusReport([]byte{0x01, 0x8F}); err != ErrBufferTooSmall {
		t.Errorf("truncated: got %v, want ErrBufferTooSmall", err)
	}
	if _, err := DecodeBusReport(nil); err != ErrBufferTooSmall {
		t.Errorf("empty: got %v, want ErrBufferTooSmall", err)
	}
}

func TestHostTransportReceivesFrames(t *testing.T) {
	pr, pw := io.Pipe()
	ht := NewHostTransport(pr)
	defer ht.Close()

	stream := encodeReports(sampleReport(), sampleReport())
	go func() {
		// odd sized writes split frames across reads
		for len(stream) > 0 {
			n := 5
			if n > len(stream) {
				n = len(stream)
			}
			pw.Write(stream[:n])
			stream = stream[n:]
		}
		pw.Close()
	}()

	for i := 0; i < 2; i++ {
		msg, err := ht.ReceiveMessage(time.Second)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if msg.Sequence != MessageDest|uint8(i) {
			t.Errorf("frame %d sequence = %#x", i, msg.Sequence)
		}
		r, err := DecodeBusReport(msg.Payload)
		if err != nil || r != sampleReport() {
			t.Errorf("frame %d: report %+v err %v", i, r, err)
		}
	}

	if _, err := ht.ReceiveMessage(time.Second); err != ErrTransportStopped {
		t.Errorf("after EOF: got %v, want ErrTransportStopped", err)
	}
}

func TestHostTransportTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ht := NewHostTransport(pr)
	defer ht.Close()

	if _, err := ht.ReceiveMessage(10 * time.Millisecond); err != ErrReceiveTimeout {
		t.Errorf("got %v, want ErrReceiveTimeout", err)
	}
}

func TestPressureReportRoundTrip(t *testing.T) {
	scratch := NewScratchOutput()
	tr := NewTransport(scratch)
	in := PressureReport{Uptime: 1500, Pressure: 100656000, Temperature: -2500}
	tr.SendPressureReport(&in)

	var got []Message
	NewFrameDecoder().Receive(NewSliceInputBuffer(scratch.Result()), func(msg Message) {
		got = append(got, msg)
	})
	if len(got) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(got))
	}

	if id, err := MessageID(got[0].Payload); err != nil || id != MsgAirwayPressure {
		t.Errorf("MessageID = %d, %v", id, err)
	}
	out, err := DecodePressureReport(got[0].Payload)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("report = %+v, want %+v", out, in)
	}
	if _, err := DecodeBusReport(got[0].Payload); err != ErrUnknownMessage {
		t.Errorf("DecodeBusReport on a pressure frame = %v, want ErrUnknownMessage", err)
	}
}
