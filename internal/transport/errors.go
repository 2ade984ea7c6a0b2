package transport

import "errors"

// Failure sentinels for a single exchange. ErrTimeout and ErrSerialIO are
// retryable at the step level. ErrClosed means the session was shut down
// under the caller; no retry can succeed.
var (
	ErrTimeout  = errors.New("command timeout")
	ErrSerialIO = errors.New("serial i/o failure")
	ErrClosed   = errors.New("session closed")
)
