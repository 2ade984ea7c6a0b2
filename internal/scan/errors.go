package scan

import (
	"errors"
	"fmt"

	"github.com/mzyy94/ulcscan/internal/ccid"
)

// ErrScanRunning rejects a Start while a worker is still live.
var ErrScanRunning = errors.New("scan already running")

// ErrWrongKey reports that the card rejected the supplied current key
// during a key write.
var ErrWrongKey = errors.New("card rejected the current key")

// FatalKind sorts scan-ending failures.
type FatalKind int

const (
	// RetryExhausted means a step burned its whole retry budget on
	// transport, protocol or reader errors.
	RetryExhausted FatalKind = iota
	// CardNotPresent means the card went mute for a whole budget: it was
	// removed from the field rather than the line failing.
	CardNotPresent
	// ConnectionLost means the session was closed under the scan.
	ConnectionLost
)

func (k FatalKind) String() string {
	switch k {
	case RetryExhausted:
		return "retry budget exhausted"
	case CardNotPresent:
		return "card not present"
	case ConnectionLost:
		return "connection lost"
	default:
		return fmt.Sprintf("fatal %d", int(k))
	}
}

// FatalError is the cause carried by a Failed terminal state. Step names
// the command that ended the scan.
type FatalError struct {
	Kind  FatalKind
	Step  ccid.Kind
	Cause error
}

func (e *FatalError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Kind, e.Cause)
}

func (e *FatalError) Unwrap() error { return e.Cause }
