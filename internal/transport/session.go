package transport

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/mzyy94/ulcscan/internal/ccid"
)

// Line parameters for the reader.
const (
	BaudRate       = 57600
	CommandTimeout = time.Second
	ProbeTimeout   = 2 * time.Second
)

// Conn is the serial surface a Session drives. go.bug.st/serial ports
// satisfy it; tests substitute a scripted device.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// Option adjusts a Session at construction time.
type Option func(*Session)

// WithTimeout overrides the per-command reply window.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Session owns one open serial connection to a reader. Exactly one worker
// drives Exchange at a time; Close may be called from another goroutine
// and unblocks a pending read.
type Session struct {
	conn    Conn
	port    string
	timeout time.Duration

	mu     sync.Mutex
	seq    byte
	closed bool
}

// ListPorts enumerates the serial ports visible on this host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Open connects to the reader on the named port at 57600 8N1.
func Open(port string, opts ...Option) (*Session, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	conn, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	slog.Info("serial port open", "port", port, "baud", BaudRate)
	return NewSession(conn, port, opts...), nil
}

// NewSession wraps an already open connection. The sequence counter
// starts at 1.
func NewSession(conn Conn, port string, opts ...Option) *Session {
	s := &Session{conn: conn, port: port, timeout: CommandTimeout, seq: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Port returns the port name the session was opened on.
func (s *Session) Port() string { return s.port }

// Close releases the serial handle. Safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	slog.Debug("serial port closed", "port", s.port)
	return s.conn.Close()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ResetSequence rewinds the counter to 1. A scan session starts here so
// its first command goes out under sequence 1.
func (s *Session) ResetSequence() {
	s.mu.Lock()
	s.seq = 1
	s.mu.Unlock()
}

// nextSeq returns the current sequence number and advances the counter,
// wrapping with the byte.
func (s *Session) nextSeq() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.seq
	s.seq++
	return n
}

// Exchange sends one command and blocks for its reply, up to the
// session's per-command window. Stale replies under a different sequence
// number are discarded and the read continues; time-extension replies
// keep the same window open. A retry of the same command goes out under
// a fresh sequence number, so callers simply call Exchange again.
func (s *Session) Exchange(cmd ccid.Command) (ccid.Response, error) {
	return s.exchange(cmd, s.timeout)
}

func (s *Session) exchange(cmd ccid.Command, timeout time.Duration) (ccid.Response, error) {
	if s.isClosed() {
		return ccid.Response{}, ErrClosed
	}
	seq := s.nextSeq()
	msg, err := ccid.MarshalFrame(cmd.Frame(seq))
	if err != nil {
		return ccid.Response{}, err
	}

	deadline := time.Now().Add(timeout)
	if _, err := s.conn.Write(ccid.WrapLink(msg)); err != nil {
		if s.isClosed() {
			return ccid.Response{}, ErrClosed
		}
		return ccid.Response{}, fmt.Errorf("%w: %v", ErrSerialIO, err)
	}
	slog.Debug("command sent", "kind", cmd.Kind, "seq", seq)

	for {
		f, err := s.readFrame(deadline)
		if err != nil {
			return ccid.Response{}, err
		}
		if f.Seq != seq {
			slog.Debug("stale reply discarded", "want", seq, "got", f.Seq)
			continue
		}
		r, err := ccid.ParseResponse(f)
		if err != nil {
			return ccid.Response{}, err
		}
		if r.TimeExtension() {
			slog.Debug("time extension", "kind", cmd.Kind, "seq", seq)
			continue
		}
		return r, nil
	}
}

// readFrame accumulates one link-framed reply: STX, the CCID header, the
// declared payload, ETX and checksum. Validation happens on the complete
// message so a damaged frame is never surfaced as an answer.
func (s *Session) readFrame(deadline time.Time) (ccid.Frame, error) {
	var head [1 + ccid.HeaderSize]byte
	if err := s.readFull(head[:], deadline); err != nil {
		return ccid.Frame{}, err
	}
	if head[0] != ccid.STX {
		return ccid.Frame{}, &ccid.ProtocolError{
			Kind:   ccid.MalformedFrame,
			Detail: fmt.Sprintf("expected STX, got 0x%02X", head[0]),
		}
	}
	length := binary.LittleEndian.Uint32(head[2:6])
	if length > ccid.MaxPayload {
		return ccid.Frame{}, &ccid.ProtocolError{
			Kind:   ccid.MalformedFrame,
			Detail: fmt.Sprintf("declared payload %d bytes, limit %d", length, ccid.MaxPayload),
		}
	}

	framed := make([]byte, len(head)+int(length)+2)
	copy(framed, head[:])
	if err := s.readFull(framed[len(head):], deadline); err != nil {
		return ccid.Frame{}, err
	}
	msg, err := ccid.UnwrapLink(framed)
	if err != nil {
		return ccid.Frame{}, err
	}
	return ccid.ParseFrame(msg)
}

// readFull fills buf from the port before deadline. The serial driver
// reports an expired read timeout as a zero-byte read with a nil error,
// so after arming SetReadTimeout with the remaining window a zero read
// means the window elapsed.
func (s *Session) readFull(buf []byte, deadline time.Time) error {
	for off := 0; off < len(buf); {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if err := s.conn.SetReadTimeout(remaining); err != nil {
			return fmt.Errorf("%w: %v", ErrSerialIO, err)
		}
		n, err := s.conn.Read(buf[off:])
		if err != nil {
			if s.isClosed() {
				return ErrClosed
			}
			return fmt.Errorf("%w: %v", ErrSerialIO, err)
		}
		if n == 0 {
			return ErrTimeout
		}
		off += n
	}
	return nil
}

// Probe checks that a reader answers on the line: one Power On under a
// doubled window. A mute reply still proves the reader is there, so it
// comes back as ccid.ErrCardMute for the caller to tell apart.
func (s *Session) Probe() error {
	s.ResetSequence()
	cmd := ccid.PowerOn()
	r, err := s.exchange(cmd, ProbeTimeout)
	if err != nil {
		return err
	}
	switch ccid.Classify(cmd.Kind, r) {
	case ccid.OutcomeOK:
		return nil
	case ccid.OutcomeCardMute:
		return ccid.ErrCardMute
	default:
		return fmt.Errorf("probe rejected: status 0x%02X error 0x%02X", r.Status, r.Error)
	}
}

// CardUID reads the UID of the card in the field, with the SW trailer
// stripped.
func (s *Session) CardUID() ([]byte, error) {
	cmd := ccid.GetUID()
	r, err := s.Exchange(cmd)
	if err != nil {
		return nil, err
	}
	switch ccid.Classify(cmd.Kind, r) {
	case ccid.OutcomeOK:
		return r.UID()
	case ccid.OutcomeCardMute:
		return nil, ccid.ErrCardMute
	default:
		return nil, fmt.Errorf("uid read failed: status 0x%02X error 0x%02X", r.Status, r.Error)
	}
}
