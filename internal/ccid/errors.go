package ccid

import (
	"errors"
	"fmt"
)

// ErrCardMute reports an ICC mute error byte: the card is out of the
// field or went silent mid-exchange.
var ErrCardMute = errors.New("card mute")

// ProtocolErrorKind names the wire contract violation classes.
type ProtocolErrorKind int

const (
	MalformedFrame ProtocolErrorKind = iota
	FrameTooLarge
	SequenceMismatch
)

func (k ProtocolErrorKind) String() string {
	switch k {
	case MalformedFrame:
		return "malformed frame"
	case FrameTooLarge:
		return "frame too large"
	case SequenceMismatch:
		return "sequence mismatch"
	default:
		return fmt.Sprintf("protocol error %d", int(k))
	}
}

// ProtocolError reports a violation of the CCID wire contract. It is
// retryable at the step level; the transport never surfaces a damaged
// frame as an answer.
type ProtocolError struct {
	Kind   ProtocolErrorKind
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return "ccid: " + e.Kind.String()
	}
	return fmt.Sprintf("ccid: %s: %s", e.Kind, e.Detail)
}

// Is matches two ProtocolErrors by kind, so errors.Is works against a
// bare &ProtocolError{Kind: …} probe.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Kind == e.Kind
}
