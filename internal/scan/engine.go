package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mzyy94/ulcscan/internal/ccid"
	"github.com/mzyy94/ulcscan/internal/keyspace"
	"github.com/mzyy94/ulcscan/internal/transport"
)

// Transport is the command surface the engine drives. *transport.Session
// implements it; tests substitute a scripted card.
type Transport interface {
	Exchange(cmd ccid.Command) (ccid.Response, error)
	ResetSequence()
}

// Engine walks a key range against the card, one candidate per
// iteration. A single background worker owns the transport for the
// lifetime of a run; callers talk to it only through Start, Stop, the
// event stream and Snapshot.
type Engine struct {
	tr  Transport
	rng keyspace.Range
	cfg config

	stop atomic.Bool

	mu       sync.Mutex
	state    State
	current  keyspace.Key
	attempts uint64
	started  time.Time
	uid      []byte
	found    *keyspace.Key
	err      error
}

// New builds an engine over tr for the given key range.
func New(tr Transport, rng keyspace.Range, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{tr: tr, rng: rng, cfg: cfg, state: StateIdle, current: rng.Start}
}

// Start launches the scan worker and returns its event stream. The
// stream carries one event per completed iteration and exactly one
// terminal event, then closes. A terminal engine may be started again;
// a running one may not.
func (e *Engine) Start(ctx context.Context) (<-chan Event, error) {
	if !e.rng.Valid() {
		return nil, fmt.Errorf("key range start %s is above its end %s", e.rng.Start, e.rng.End)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		return nil, ErrScanRunning
	}
	e.state = StateRunning
	e.current = e.rng.Start
	e.attempts = 0
	e.started = time.Now()
	e.uid = nil
	e.found = nil
	e.err = nil
	e.stop.Store(false)

	events := make(chan Event, e.cfg.buffer)
	slog.Info("scan started", "start", e.rng.Start, "end", e.rng.End, "mode", e.cfg.mode)
	go e.run(ctx, events)
	return events, nil
}

// Stop requests a cooperative stop. The worker honors it once the
// iteration in flight has classified; it never interrupts a command
// exchange.
func (e *Engine) Stop() { e.stop.Store(true) }

// run is the scan worker. It alone touches the transport until the
// terminal event is out; after that no further hardware I/O is issued.
func (e *Engine) run(ctx context.Context, events chan<- Event) {
	defer close(events)
	e.tr.ResetSequence()

	if e.cfg.mode == ModeReloadOnly {
		if err := e.powerUp(); err != nil {
			e.finish(events, StateFailed, e.rng.Start, err)
			return
		}
	}

	key := e.rng.Start
	for {
		out, err := e.attempt(key)
		if err != nil {
			e.finish(events, StateFailed, key, err)
			return
		}

		e.record(key)

		if out == ccid.OutcomeAuthSuccess {
			e.finish(events, StateSucceeded, key, nil)
			return
		}

		e.emit(events, e.progressEvent(key))

		if e.stop.Load() || ctx.Err() != nil {
			e.finish(events, StateStopped, key, nil)
			return
		}
		if keyspace.Compare(key, e.rng.End) >= 0 {
			e.finish(events, StateExhausted, key, nil)
			return
		}
		next, ok := key.Next()
		if !ok {
			e.finish(events, StateExhausted, key, nil)
			return
		}
		key = next
	}
}

// attempt runs one candidate through the command cycle and returns the
// authentication outcome.
func (e *Engine) attempt(key keyspace.Key) (ccid.Outcome, error) {
	if e.cfg.mode == ModePowerCycle {
		if err := e.powerUp(); err != nil {
			return 0, err
		}
	}
	if _, _, err := e.runStep(ccid.LoadKey(ccid.DefaultKeySlot, key)); err != nil {
		return 0, err
	}
	_, out, err := e.runStep(ccid.Authenticate(ccid.DefaultAuthPage, ccid.DefaultKeySlot))
	return out, err
}

// powerUp wakes the card and notes its UID. The UID is informational;
// any readable answer passes.
func (e *Engine) powerUp() error {
	if _, _, err := e.runStep(ccid.PowerOn()); err != nil {
		return err
	}
	r, _, err := e.runStep(ccid.GetUID())
	if err != nil {
		return err
	}
	if uid, err := r.UID(); err == nil {
		e.mu.Lock()
		e.uid = uid
		e.mu.Unlock()
	}
	return nil
}

// runStep issues one command under the per-step retry budget. Transport
// and protocol failures, reader-side errors and mute replies each burn
// an attempt; a classified answer returns immediately. Every retry sends
// the same command bytes under a fresh sequence number, which the
// transport assigns per send. A closed session is fatal at once since no
// retry can reach the reader.
func (e *Engine) runStep(cmd ccid.Command) (ccid.Response, ccid.Outcome, error) {
	var lastErr error
	for i := 1; i <= e.cfg.retries; i++ {
		r, err := e.tr.Exchange(cmd)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return ccid.Response{}, 0, &FatalError{Kind: ConnectionLost, Step: cmd.Kind, Cause: err}
			}
			lastErr = err
			slog.Warn("exchange failed", "step", cmd.Kind, "attempt", i, "error", err)
			continue
		}
		out := ccid.Classify(cmd.Kind, r)
		switch out {
		case ccid.OutcomeOK, ccid.OutcomeAuthSuccess, ccid.OutcomeAuthFailure:
			return r, out, nil
		case ccid.OutcomeCardMute:
			lastErr = ccid.ErrCardMute
		default:
			lastErr = fmt.Errorf("reader error 0x%02X", r.Error)
		}
		slog.Warn("step rejected", "step", cmd.Kind, "attempt", i, "error", lastErr)
	}
	kind := RetryExhausted
	if errors.Is(lastErr, ccid.ErrCardMute) {
		kind = CardNotPresent
	}
	return ccid.Response{}, 0, &FatalError{Kind: kind, Step: cmd.Kind, Cause: lastErr}
}

// record publishes one completed iteration into the snapshot.
func (e *Engine) record(key keyspace.Key) {
	e.mu.Lock()
	e.current = key
	e.attempts++
	e.mu.Unlock()
}

func (e *Engine) progressEvent(key keyspace.Key) Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Event{
		State:    StateRunning,
		Key:      key,
		Attempts: e.attempts,
		Progress: e.rng.Progress(key),
		Rate:     e.rate(),
	}
}

// rate is attempts per second since the run started. Callers hold e.mu.
func (e *Engine) rate() float64 {
	elapsed := time.Since(e.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(e.attempts) / elapsed
}

// emit delivers a progress event without ever blocking the worker. A
// full buffer drops the sample; the next iteration carries fresher
// numbers.
func (e *Engine) emit(events chan<- Event, ev Event) {
	select {
	case events <- ev:
	default:
	}
}

// finish records the terminal state and delivers the terminal event.
// Unlike progress samples it always arrives.
func (e *Engine) finish(events chan<- Event, st State, key keyspace.Key, err error) {
	e.mu.Lock()
	e.state = st
	e.current = key
	if st == StateSucceeded {
		k := key
		e.found = &k
	}
	e.err = err
	attempts := e.attempts
	progress := e.rng.Progress(key)
	rate := e.rate()
	e.mu.Unlock()

	switch st {
	case StateSucceeded:
		slog.Info("key found", "key", key, "attempts", attempts)
	case StateExhausted:
		slog.Info("key range exhausted", "attempts", attempts)
	case StateStopped:
		slog.Info("scan stopped", "key", key, "attempts", attempts)
	case StateFailed:
		slog.Error("scan failed", "error", err, "attempts", attempts)
	}
	events <- Event{State: st, Key: key, Attempts: attempts, Progress: progress, Rate: rate, Err: err}
}

// Snapshot is a point-in-time copy of the scan state for pollers.
type Snapshot struct {
	State    State
	Key      keyspace.Key
	Attempts uint64
	Progress float64
	Rate     float64
	UID      []byte
	Found    *keyspace.Key
	Err      error
}

// Snapshot reports the current scan state. Safe from any goroutine.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		State:    e.state,
		Key:      e.current,
		Attempts: e.attempts,
		Progress: e.rng.Progress(e.current),
		Err:      e.err,
	}
	if e.state != StateIdle {
		snap.Rate = e.rate()
	}
	if len(e.uid) > 0 {
		snap.UID = append([]byte(nil), e.uid...)
	}
	if e.found != nil {
		k := *e.found
		snap.Found = &k
	}
	return snap
}
