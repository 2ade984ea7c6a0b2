package ccid

import (
	"bytes"
	"testing"
)

// classifyWire decodes raw CCID reply bytes and classifies them for kind.
func classifyWire(t *testing.T, kind Kind, wire []byte) Outcome {
	t.Helper()
	f, err := ParseFrame(wire)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	r, err := ParseResponse(f)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	return Classify(kind, r)
}

func TestClassifyAuthenticateSuccessVector(t *testing.T) {
	// Reader reply observed on a correct key: status byte 0x14, SW 90 00.
	wire := []byte{0x80, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01, 0x14, 0x00, 0x00, 0x90, 0x00}
	if got := classifyWire(t, KindAuthenticate, wire); got != OutcomeAuthSuccess {
		t.Errorf("Classify = %v, want AuthSuccess", got)
	}
}

func TestClassifyAuthenticateFailureVector(t *testing.T) {
	// Reader reply observed on a wrong key: failure bits set, SW absent.
	wire := []byte{0x80, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01, 0x14, 0x40, 0x69, 0x00, 0x00}
	if got := classifyWire(t, KindAuthenticate, wire); got != OutcomeAuthFailure {
		t.Errorf("Classify = %v, want AuthFailure", got)
	}
}

func TestClassifyAuthenticate(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want Outcome
	}{
		{
			name: "sw trailer success",
			resp: Response{Status: 0x00, Payload: []byte{0x90, 0x00}},
			want: OutcomeAuthSuccess,
		},
		{
			name: "sw trailer success despite nonzero status",
			resp: Response{Status: 0x14, Payload: []byte{0x90, 0x00}},
			want: OutcomeAuthSuccess,
		},
		{
			name: "sw trailer rejection",
			resp: Response{Status: 0x00, Payload: []byte{0x63, 0x00}},
			want: OutcomeAuthFailure,
		},
		{
			name: "sw trailer rejection with appended 9000",
			resp: Response{Status: 0x00, Payload: []byte{0x63, 0x00, 0x90, 0x00}},
			want: OutcomeAuthFailure,
		},
		{
			name: "no payload failed status",
			resp: Response{Status: 0x40, Error: 0xFE},
			want: OutcomeAuthFailure,
		},
		{
			name: "no payload auth error code",
			resp: Response{Status: 0x00, Error: 0x69},
			want: OutcomeAuthFailure,
		},
		{
			name: "no payload card mute",
			resp: Response{Status: 0x00, Error: 0x02},
			want: OutcomeCardMute,
		},
		{
			name: "no payload card mute with failed status",
			resp: Response{Status: 0x40, Error: 0x02},
			want: OutcomeCardMute,
		},
		{
			name: "no payload hardware error",
			resp: Response{Status: 0x00, Error: 0xFE},
			want: OutcomeError,
		},
		{
			name: "no payload no evidence",
			resp: Response{Status: 0x00, Error: 0x00},
			want: OutcomeAuthFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(KindAuthenticate, tt.resp); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyCommands(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		resp Response
		want Outcome
	}{
		{
			name: "power on clean",
			kind: KindPowerOn,
			resp: Response{Status: 0x00, Error: 0x00},
			want: OutcomeOK,
		},
		{
			name: "icc state bits tolerated",
			kind: KindGetUID,
			resp: Response{Status: 0x14, Error: 0x00, Payload: []byte{0x04, 0xA1, 0xB2, 0xC3, 0x90, 0x00}},
			want: OutcomeOK,
		},
		{
			name: "card mute",
			kind: KindGetUID,
			resp: Response{Status: 0x40, Error: 0x02},
			want: OutcomeCardMute,
		},
		{
			name: "load key failure",
			kind: KindLoadKey,
			resp: Response{Status: 0x40, Error: 0xFE},
			want: OutcomeError,
		},
		{
			name: "failed status zero error",
			kind: KindPowerOn,
			resp: Response{Status: 0x40, Error: 0x00},
			want: OutcomeError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.kind, tt.resp); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestParseResponseRejectsRequestTypes(t *testing.T) {
	_, err := ParseResponse(Frame{Type: MsgXfrBlock})
	if err == nil {
		t.Fatal("expected error for host-to-reader type, got nil")
	}
}

func TestParseResponseFields(t *testing.T) {
	f := Frame{
		Type:     MsgDataBlock,
		Seq:      3,
		Specific: [3]byte{0x40, 0xFE, 0x01},
		Payload:  []byte{0xAA},
	}
	r, err := ParseResponse(f)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if r.Status != 0x40 || r.Error != 0xFE || r.Chain != 0x01 {
		t.Errorf("triple = %02X/%02X/%02X, want 40/FE/01", r.Status, r.Error, r.Chain)
	}
	if !bytes.Equal(r.Payload, []byte{0xAA}) {
		t.Errorf("payload = % X, want AA", r.Payload)
	}
}

func TestTimeExtension(t *testing.T) {
	if !(Response{Status: 0x80}).TimeExtension() {
		t.Error("status 0x80 not reported as time extension")
	}
	if !(Response{Status: 0x81}).TimeExtension() {
		t.Error("status 0x81 not reported as time extension")
	}
	for _, s := range []byte{0x00, 0x14, 0x40, 0xC0} {
		if (Response{Status: s}).TimeExtension() {
			t.Errorf("status 0x%02X wrongly reported as time extension", s)
		}
	}
}

func TestResponseUID(t *testing.T) {
	r := Response{Payload: []byte{0x04, 0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6, 0x90, 0x00}}
	uid, err := r.UID()
	if err != nil {
		t.Fatalf("UID failed: %v", err)
	}
	want := []byte{0x04, 0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6}
	if !bytes.Equal(uid, want) {
		t.Errorf("UID = % X, want % X", uid, want)
	}

	if _, err := (Response{Payload: []byte{0x90, 0x00}}).UID(); err == nil {
		t.Error("expected error for trailer-only payload")
	}
}
