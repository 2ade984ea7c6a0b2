package scan

import "github.com/mzyy94/ulcscan/internal/keyspace"

// State is the scan lifecycle. Idle and Running are transient; the other
// four are absorbing.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateExhausted
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateExhausted, StateStopped, StateFailed:
		return true
	}
	return false
}

// Event is one report from the scan worker: a progress sample per
// completed iteration while running, then exactly one terminal event
// before the stream closes.
type Event struct {
	State    State
	Key      keyspace.Key // last attempted candidate
	Attempts uint64       // completed iterations this run
	Progress float64      // percent of the range covered
	Rate     float64      // attempts per second since the run started
	Err      error        // cause, when State is StateFailed
}
