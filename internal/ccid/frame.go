package ccid

import (
	"encoding/binary"
	"fmt"
)

// Frame is one CCID message: a 10-byte header plus payload.
//
// Header layout (dwLength little-endian):
//
//	offset 0    bMessageType
//	offset 1-4  dwLength (payload byte count)
//	offset 5    bSlot
//	offset 6    bSeq
//	offset 7-9  bSpecific (command parameters; status, error and chain
//	            bytes in a reply)
type Frame struct {
	Type     byte
	Slot     byte
	Seq      byte
	Specific [3]byte
	Payload  []byte
}

// MarshalFrame encodes f into wire bytes. dwLength always reflects the
// actual payload length; payloads beyond MaxPayload are refused.
func MarshalFrame(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, &ProtocolError{
			Kind:   FrameTooLarge,
			Detail: fmt.Sprintf("payload %d bytes, limit %d", len(f.Payload), MaxPayload),
		}
	}
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = f.Type
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(f.Payload)))
	buf[5] = f.Slot
	buf[6] = f.Seq
	copy(buf[7:10], f.Specific[:])
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// ParseFrame decodes one complete CCID message. The caller supplies whole
// messages only; the transport accumulates bytes before decoding, so any
// length mismatch here is a wire fault, never a partial read.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("header truncated, %d of %d bytes", len(data), HeaderSize),
		}
	}
	length := binary.LittleEndian.Uint32(data[1:5])
	if length > MaxPayload {
		return Frame{}, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("declared payload %d bytes, limit %d", length, MaxPayload),
		}
	}
	if uint32(len(data)-HeaderSize) != length {
		return Frame{}, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("declared payload %d bytes, %d available", length, len(data)-HeaderSize),
		}
	}

	f := Frame{Type: data[0], Slot: data[5], Seq: data[6]}
	copy(f.Specific[:], data[7:10])
	if length > 0 {
		f.Payload = make([]byte, length)
		copy(f.Payload, data[HeaderSize:])
	}
	return f, nil
}
