package ccid

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarshalFrameLayout(t *testing.T) {
	f := Frame{
		Type:     MsgXfrBlock,
		Slot:     0x00,
		Seq:      0x2A,
		Specific: [3]byte{0x01, 0x02, 0x03},
		Payload:  []byte{0xFF, 0xCA, 0x00, 0x00, 0x00},
	}
	got, err := MarshalFrame(f)
	if err != nil {
		t.Fatalf("MarshalFrame failed: %v", err)
	}
	want := []byte{
		0x6F,                   // bMessageType
		0x05, 0x00, 0x00, 0x00, // dwLength, little-endian
		0x00,             // bSlot
		0x2A,             // bSeq
		0x01, 0x02, 0x03, // bSpecific
		0xFF, 0xCA, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("MarshalFrame = % X, want % X", got, want)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frames := []Frame{
		{Type: MsgPowerOn, Seq: 1},
		{Type: MsgPowerOff, Seq: 255},
		{Type: MsgXfrBlock, Seq: 7, Payload: []byte{0xFF, 0x86, 0x00, 0x00, 0x05, 0x01, 0x00, 0x04, 0x60, 0x03}},
		{Type: MsgDataBlock, Seq: 9, Specific: [3]byte{0x14, 0x00, 0x00}, Payload: []byte{0x90, 0x00}},
		{Type: MsgXfrBlock, Seq: 0, Payload: bytes.Repeat([]byte{0xAB}, MaxPayload)},
	}
	for _, f := range frames {
		data, err := MarshalFrame(f)
		if err != nil {
			t.Fatalf("MarshalFrame(%+v) failed: %v", f, err)
		}
		got, err := ParseFrame(data)
		if err != nil {
			t.Fatalf("ParseFrame failed: %v", err)
		}
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestMarshalFrameTooLarge(t *testing.T) {
	f := Frame{Type: MsgXfrBlock, Payload: make([]byte, MaxPayload+1)}
	_, err := MarshalFrame(f)
	if err == nil {
		t.Fatal("expected error for oversized payload, got nil")
	}
	if !errors.Is(err, &ProtocolError{Kind: FrameTooLarge}) {
		t.Errorf("error = %v, want FrameTooLarge", err)
	}
}

func TestParseFrameShortHeader(t *testing.T) {
	_, err := ParseFrame([]byte{0x80, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected error for truncated header, got nil")
	}
	if !errors.Is(err, &ProtocolError{Kind: MalformedFrame}) {
		t.Errorf("error = %v, want MalformedFrame", err)
	}
}

func TestParseFrameLengthMismatch(t *testing.T) {
	// Declares 4 payload bytes but carries 2.
	data := []byte{0x80, 0x04, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x90, 0x00}
	_, err := ParseFrame(data)
	if err == nil {
		t.Fatal("expected error for declared/actual mismatch, got nil")
	}
	if !errors.Is(err, &ProtocolError{Kind: MalformedFrame}) {
		t.Errorf("error = %v, want MalformedFrame", err)
	}
}

func TestParseFrameDeclaredLengthOverCeiling(t *testing.T) {
	data := make([]byte, HeaderSize+300)
	data[0] = MsgDataBlock
	data[1] = 0x2C // 300 little-endian
	data[2] = 0x01
	_, err := ParseFrame(data)
	if err == nil {
		t.Fatal("expected error for payload over ceiling, got nil")
	}
}

func TestParseFrameTrailingGarbage(t *testing.T) {
	data := []byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0xAA}
	_, err := ParseFrame(data)
	if err == nil {
		t.Fatal("expected error for bytes beyond declared length, got nil")
	}
}
