package ccid

import "fmt"

// Checksum returns the XOR block check over data.
func Checksum(data []byte) byte {
	var c byte
	for _, b := range data {
		c ^= b
	}
	return c
}

// WrapLink frames one marshalled CCID message for the serial line:
// STX + message + ETX + BCC.
func WrapLink(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+3)
	out = append(out, STX)
	out = append(out, msg...)
	out = append(out, ETX)
	out = append(out, Checksum(out[1:]))
	return out
}

// UnwrapLink validates and strips the link framing, returning the CCID
// message bytes.
func UnwrapLink(framed []byte) ([]byte, error) {
	if len(framed) < HeaderSize+3 {
		return nil, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("link frame truncated, %d bytes", len(framed)),
		}
	}
	if framed[0] != STX {
		return nil, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("expected STX, got 0x%02X", framed[0]),
		}
	}
	if framed[len(framed)-2] != ETX {
		return nil, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("expected ETX, got 0x%02X", framed[len(framed)-2]),
		}
	}
	want := Checksum(framed[1 : len(framed)-1])
	if got := framed[len(framed)-1]; got != want {
		return nil, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("checksum 0x%02X, want 0x%02X", got, want),
		}
	}
	return framed[1 : len(framed)-2], nil
}
