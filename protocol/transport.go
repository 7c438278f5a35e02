package protocol

// Transport frames outgoing messages on the firmware side. The low nibble of
// the sequence byte advances once per frame so the host can count lost frames.
// It is used from foreground code only.
type Transport struct {
	output OutputBuffer
	seq    uint8
}

// NewTransport creates a new Transport writing frames to output
func NewTransport(output OutputBuffer) *Transport {
	return &Transport{output: output}
}

// EncodeFrame encodes one frame whose payload is produced by frameData. The
// payload must leave room for the header and trailer within MessageLengthMax.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	// Write header (length placeholder and sequence)
	t.output.Output([]byte{0, MessageDest | t.seq})

	frameData(t.output)

	// Update length field
	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	t.seq = (t.seq + 1) & MessageSeqMask
}

// SendMessage encodes a frame holding msgID followed by its arguments
func (t *Transport) SendMessage(msgID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(msgID))
		if args != nil {
			args(output)
		}
	})
}

// Sequence returns the sequence byte of the next frame
func (t *Transport) Sequence() uint8 {
	return MessageDest | t.seq
}

// Reset restarts the sequence counter
func (t *Transport) Reset() {
	t.seq = 0
}

// DecoderStats counts what a FrameDecoder has seen
type DecoderStats struct {
	Frames    uint32 // valid frames delivered
	Resyncs   uint32 // times the decoder lost framing
	Discarded uint32 // bytes skipped while searching for a sync byte
	Lost      uint32 // frames missing according to the sequence counter
}

// FrameDecoder extracts validated frames from a byte stream. A bad length,
// sequence byte, trailer or checksum drops it out of sync; it then skips
// input up to the next sync byte.
type FrameDecoder struct {
	synchronized bool
	haveSeq      bool
	expected     uint8
	stats        DecoderStats
}

// NewFrameDecoder returns a decoder that treats the stream as synchronized
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{synchronized: true}
}

// Receive processes the data available in input, calling handle for every
// complete frame, and pops what it consumed. Message payloads alias input
// and are only valid during the call.
func (d *FrameDecoder) Receive(input InputBuffer, handle func(msg Message)) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				d.stats.Discarded += uint32(syncPos)
				data = data[syncPos+1:]
				d.synchronized = true
			} else {
				d.stats.Discarded += uint32(len(data))
				data = nil
			}
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.lostSync()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.lostSync()
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.lostSync()
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.lostSync()
			continue
		}

		msg := Message{
			Length:   uint8(msgLen),
			Sequence: seq,
			Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
			CRC:      frameCRC,
		}
		data = data[msgLen:]

		d.track(seq)
		d.stats.Frames++
		handle(msg)
	}

	// Remove consumed bytes from input
	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// track counts the frames skipped between the last sequence and seq
func (d *FrameDecoder) track(seq uint8) {
	n := seq & MessageSeqMask
	if d.haveSeq && n != d.expected {
		d.stats.Lost += uint32((n - d.expected) & MessageSeqMask)
	}
	d.expected = (n + 1) & MessageSeqMask
	d.haveSeq = true
}

func (d *FrameDecoder) lostSync() {
	d.synchronized = false
	d.stats.Resyncs++
}

// Stats returns the decoder counters
func (d *FrameDecoder) Stats() DecoderStats {
	return d.stats
}

// Reset forgets framing and sequence state
func (d *FrameDecoder) Reset() {
	*d = FrameDecoder{synchronized: true}
}
