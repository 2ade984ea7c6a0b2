package scan

import "fmt"

// Mode selects how much of the command cycle runs per candidate key.
type Mode int

const (
	// ModePowerCycle runs the full PowerOn, GetUID, LoadKey,
	// Authenticate cycle for every candidate.
	ModePowerCycle Mode = iota
	// ModeReloadOnly powers the card once per run, then only reloads and
	// authenticates per candidate. Faster, but card removal only shows
	// up once authentication starts failing oddly.
	ModeReloadOnly
)

func (m Mode) String() string {
	switch m {
	case ModePowerCycle:
		return "power-cycle"
	case ModeReloadOnly:
		return "reload-only"
	default:
		return "unknown"
	}
}

// ParseMode maps a configuration string onto a Mode. The empty string
// selects the default power-cycle mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "power-cycle":
		return ModePowerCycle, nil
	case "reload-only":
		return ModeReloadOnly, nil
	default:
		return ModePowerCycle, fmt.Errorf("unknown scan mode %q", s)
	}
}

const (
	defaultRetryBudget = 3
	defaultEventBuffer = 64
)

type config struct {
	mode    Mode
	retries int
	buffer  int
}

func defaultConfig() config {
	return config{
		mode:    ModePowerCycle,
		retries: defaultRetryBudget,
		buffer:  defaultEventBuffer,
	}
}

// Option adjusts engine behavior at construction time.
type Option func(*config)

// WithMode selects the per-key command cycle.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithRetryBudget sets how many attempts each step gets before the scan
// fails.
func WithRetryBudget(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.buffer = n
		}
	}
}
