// Package protocol implements the framing used to carry bus telemetry from
// the firmware to host tools. Frames are
//
//	len | seq | payload | crc16 hi | crc16 lo | 0x7E
//
// with VLQ encoded payload fields.
package protocol

// Version is the telemetry protocol version
const Version = "0.1.0"

// Frame layout
const (
	MessageMax         = 64 // scratch output size, one full frame
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// Sequence byte: fixed high nibble, counter in the low nibble
	MessageDest    = 0x10
	MessageSeqMask = 0x0F
)

// Message is one validated frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // frame data without header/trailer
	CRC      uint16
}
