package ccid

import "fmt"

// Response is the decoded status triple and payload of a reader reply.
type Response struct {
	Status  byte // bStatus, header offset 7
	Error   byte // bError, header offset 8
	Chain   byte // chain parameter, header offset 9
	Payload []byte
}

// ParseResponse extracts a Response from a reply frame. Only
// RDR_to_PC_DataBlock and RDR_to_PC_SlotStatus are valid reply types.
func ParseResponse(f Frame) (Response, error) {
	if f.Type != MsgDataBlock && f.Type != MsgSlotStatus {
		return Response{}, &ProtocolError{
			Kind:   MalformedFrame,
			Detail: fmt.Sprintf("unexpected reply type 0x%02X", f.Type),
		}
	}
	return Response{
		Status:  f.Specific[0],
		Error:   f.Specific[1],
		Chain:   f.Specific[2],
		Payload: f.Payload,
	}, nil
}

// TimeExtension reports whether the reply only asks for more time. Such
// frames are not answers; the transport keeps reading within the same
// timeout window.
func (r Response) TimeExtension() bool {
	return r.Status&StatusMask == StatusTimeExtension
}

// Outcome classifies one reply for the step runner.
type Outcome int

const (
	OutcomeOK          Outcome = iota // command accepted
	OutcomeAuthSuccess                // 3DES handshake completed
	OutcomeAuthFailure                // key rejected; the expected majority case
	OutcomeCardMute                   // card absent or silent
	OutcomeError                      // any other reader-reported failure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeAuthSuccess:
		return "AuthSuccess"
	case OutcomeAuthFailure:
		return "AuthFailure"
	case OutcomeCardMute:
		return "CardMute"
	case OutcomeError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Classify judges a reply according to the command kind that produced it;
// the same bytes mean different things for PowerOn and Authenticate.
//
// Authenticate replies carrying at least two payload bytes are judged by
// their SW trailer alone: a payload opening with 90 00 means the handshake
// completed, anything else is a rejected key. Reader firmware accompanies
// successful handshakes with nonzero status bytes such as 0x14, so the
// status pair is only consulted when no trailer came back: an ICC mute
// error code marks the card absent, then 0x40 command failure or error
// code 0x69 count as rejections.
//
// For every other command the status pair decides: clean status and a zero
// error code is OK, an ICC mute error code marks the card absent, and any
// other nonzero error byte is a reader-side failure.
func Classify(kind Kind, r Response) Outcome {
	if kind == KindAuthenticate {
		if len(r.Payload) >= 2 {
			if r.Payload[0] == 0x90 && r.Payload[1] == 0x00 {
				return OutcomeAuthSuccess
			}
			return OutcomeAuthFailure
		}
		if r.Error == ErrorCodeICCMute {
			return OutcomeCardMute
		}
		if r.Status&StatusMask == StatusFailed || r.Error == ErrorCodeAuthFail {
			return OutcomeAuthFailure
		}
		if r.Error != ErrorCodeNone {
			return OutcomeError
		}
		// No trailer and no failure evidence; never a success.
		return OutcomeAuthFailure
	}

	if r.Error == ErrorCodeICCMute {
		return OutcomeCardMute
	}
	if r.Status&StatusMask == StatusOK && r.Error == ErrorCodeNone {
		return OutcomeOK
	}
	return OutcomeError
}

// UID strips the SW trailer from a Get UID payload. It fails when the
// reply is too short to contain both a UID and the trailer.
func (r Response) UID() ([]byte, error) {
	if len(r.Payload) <= 2 {
		return nil, fmt.Errorf("uid reply too short: %d bytes", len(r.Payload))
	}
	uid := make([]byte, len(r.Payload)-2)
	copy(uid, r.Payload)
	return uid, nil
}
