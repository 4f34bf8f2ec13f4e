package serialport

import (
	"errors"
	"strings"
	"sync"
	"time"

	goserial "github.com/daedaluz/goserial"
	"github.com/dragoncraft87/scarab-host/internal/identity"
	"github.com/dragoncraft87/scarab-host/internal/scarabio"
)

// State is one node of the link manager's state machine (spec.md §3).
type State int

const (
	StateSearching State = iota
	StateOpening
	StateHandshaking
	StateSyncing
	StateStreaming
	StatePaused
	StateFailed
	StateClosed
)

// ScanPerPortTimeout is the per-candidate probe budget of spec.md §4.2.
// SearchAndConnect does not reference it: a probe's length is set by
// deviceResetWait plus the handshake's ReadTimeout.
const ScanPerPortTimeout = 1500 * time.Millisecond

// deviceResetWait is the pause after opening a port before the handshake
// query is sent, giving the embedded device time to finish its own reset.
const deviceResetWait = 1 * time.Second

// identitySyncGap is the minimum quiet gap between NAME_* lines, per
// spec.md §9 Open Question 2 (40ms is the documented safe lower bound).
const identitySyncGap = 40 * time.Millisecond

// reconnectBackoff is the wait between failed connection attempts in the
// outer Run loop, per spec.md §4.2.
const reconnectBackoff = 2 * time.Second

var (
	ErrNotFound  = errors.New("serialport: no candidate device found")
	ErrCancelled = errors.New("serialport: cancelled")
)

// Session is the mutable state owned by the link manager for one open
// connection, per spec.md §3 "Device session".
type Session struct {
	PortName           string
	Baud               int
	DTR                bool
	RemoteIdentityHash string
	LastGood           time.Time

	mu    sync.Mutex
	state State
	port  rawPort
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// SendCommand appends a trailing newline if absent and writes the line
// while holding the write lock. Valid only in Streaming or Paused state,
// per spec.md §4.2.
func (s *Session) SendCommand(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming && s.state != StatePaused {
		return scarabio.New(scarabio.KindWriteFailed, "send_command invalid outside streaming/paused state")
	}
	return s.writeLineLocked(line)
}

// writeLineLocked is the single choke point for all writes to the port; it
// must be called with s.mu held so telemetry, uploads and command
// passthrough never interleave mid-line.
func (s *Session) writeLineLocked(line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := s.port.Write([]byte(line)); err != nil {
		s.state = StateFailed
		return scarabio.Wrap(scarabio.KindWriteFailed, "serial write failed", err)
	}
	s.LastGood = time.Now()
	return nil
}

// WriteLine implements telemetry.Writer: the framer calls this for every
// sample line, guarded by the same write lock as commands and upload
// chunks so at most one writer is ever mid-line (spec.md §8 property 8).
func (s *Session) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLineLocked(line)
}

// Write implements upload.Writer for the chunked upload engine, sharing
// the identical write lock.
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.port.Write(data); err != nil {
		s.state = StateFailed
		return scarabio.Wrap(scarabio.KindWriteFailed, "serial write failed", err)
	}
	s.LastGood = time.Now()
	return nil
}

// ReadLine implements upload.Reader: reads bytes until \n/\r or deadline,
// per spec.md §4.6's response reader behavior.
func (s *Session) ReadLine(deadline time.Time) (string, error) {
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", scarabio.New(scarabio.KindChunkTimeout, "read deadline exceeded")
		}
		n, err := s.port.ReadTimeout(buf, minDuration(remaining, ReadTimeout))
		if err != nil {
			continue // transient read timeout, keep polling until deadline
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\n' || buf[0] == '\r' {
			if line.Len() == 0 {
				continue
			}
			return line.String(), nil
		}
		line.WriteByte(buf[0])
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// Close is idempotent and cancels any pending reads by closing the port.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// LinkManager owns the connect/handshake/reconnect lifecycle of spec.md
// §4.2. A non-empty FixedPort pins the manager to one device across retries;
// otherwise it re-scans via Enumerate on every reconnect attempt.
type LinkManager struct {
	FixedPort string
	Identity  identity.Identity

	openPort func(name string) (rawPort, error) // overridable in tests
}

func NewLinkManager(id identity.Identity, fixedPort string) *LinkManager {
	return &LinkManager{FixedPort: fixedPort, Identity: id, openPort: openRealPort}
}

// candidates returns the ports to try this scan pass: just the fixed port
// if one was configured, otherwise the enumerator's non-skipped output in
// priority order.
func (m *LinkManager) candidates() []string {
	if m.FixedPort != "" {
		return []string{m.FixedPort}
	}
	var names []string
	for _, c := range Enumerate() {
		if !c.Skip {
			names = append(names, c.Name)
		}
	}
	return names
}

// SearchAndConnect iterates candidates, opening, handshaking and syncing
// identity on the first that succeeds. Returns ErrNotFound if every
// candidate failed this pass, or ErrCancelled if cancel fired. No other
// error escapes - a single candidate's failure just moves on to the next
// (spec.md §4.2 "Failure semantics: no exception escapes search_and_connect").
func (m *LinkManager) SearchAndConnect(cancel <-chan struct{}) (*Session, error) {
	for _, name := range m.candidates() {
		select {
		case <-cancel:
			return nil, ErrCancelled
		default:
		}

		sess, err := m.tryConnect(name, cancel)
		if err == nil {
			return sess, nil
		}
		if errors.Is(err, ErrCancelled) {
			return nil, ErrCancelled
		}
		// Any other per-candidate failure (busy, handshake timeout, I/O
		// error) just tries the next candidate.
	}
	return nil, ErrNotFound
}

func (m *LinkManager) tryConnect(name string, cancel <-chan struct{}) (*Session, error) {
	port, err := m.openPort(name)
	if err != nil {
		return nil, scarabio.Wrap(scarabio.KindPortBusy, "open failed", err)
	}

	select {
	case <-cancel:
		port.Close()
		return nil, ErrCancelled
	case <-time.After(deviceResetWait):
	}

	remoteHash, ok := handshake(port)
	if !ok {
		port.Close()
		return nil, scarabio.New(scarabio.KindHandshakeTimeout, "no SCARAB_CLIENT_OK within deadline")
	}

	sess := &Session{PortName: name, Baud: Baud, DTR: true, port: port, RemoteIdentityHash: remoteHash}
	sess.setState(StateSyncing)
	if remoteHash != m.Identity.IdentityHash {
		if err := syncIdentityIfNeeded(sess, remoteHash, m.Identity); err != nil {
			port.Close()
			return nil, err
		}
	}
	sess.LastGood = time.Now()
	sess.setState(StateStreaming)
	return sess, nil
}

// handshake performs the query/response exchange of spec.md §4.2 and §6.
// It flushes unread input first: a prior session left without a clean
// close (e.g. a crashed daemon) can leave stale bytes on the tty that
// would otherwise be misread as (or ahead of) this handshake's response.
func handshake(port rawPort) (remoteHash string, ok bool) {
	_ = port.Flush(goserial.TCIFLUSH)
	if _, err := port.Write([]byte("WHO_ARE_YOU?\n")); err != nil {
		return "", false
	}
	line, err := readLineDeadline(port, time.Now().Add(ReadTimeout))
	if err != nil {
		return "", false
	}
	if !strings.Contains(line, "SCARAB_CLIENT_OK") {
		return "", false
	}
	if idx := strings.Index(line, "|H:"); idx >= 0 && idx+11 <= len(line) {
		return line[idx+3 : idx+11], true
	}
	return identity.LegacyHash, true
}

func readLineDeadline(port rawPort, deadline time.Time) (string, error) {
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", scarabio.New(scarabio.KindHandshakeTimeout, "handshake read timed out")
		}
		n, err := port.ReadTimeout(buf, remaining)
		if err != nil {
			continue
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\n' || buf[0] == '\r' {
			if line.Len() == 0 {
				continue
			}
			return line.String(), nil
		}
		line.WriteByte(buf[0])
	}
}

// syncIdentityIfNeeded transmits the three NAME_* lines of spec.md §4.2/§6
// when the remote identity hash doesn't already match, separated by
// identitySyncGap quiet gaps. Fire-and-forget: no response is awaited.
func syncIdentityIfNeeded(sess *Session, remoteHash string, id identity.Identity) error {
	if remoteHash == id.IdentityHash {
		return nil
	}
	lines := []string{
		"NAME_CPU=" + id.CPUName,
		"NAME_GPU=" + id.GPUName,
		"NAME_HASH=" + id.IdentityHash,
	}
	for i, line := range lines {
		if _, err := sess.port.Write([]byte(line + "\n")); err != nil {
			return scarabio.Wrap(scarabio.KindWriteFailed, "identity sync write failed", err)
		}
		if i < len(lines)-1 {
			time.Sleep(identitySyncGap)
		}
	}
	return nil
}

// Run drives the outer Searching/reconnect loop of spec.md §4.2: connect,
// hand the live session to onSession, and on return from onSession (the
// session failed or was closed) back off and reconnect - unless cancel
// fires, in which case Run returns.
func (m *LinkManager) Run(cancel <-chan struct{}, onSession func(*Session)) {
	for {
		select {
		case <-cancel:
			return
		default:
		}

		sess, err := m.SearchAndConnect(cancel)
		switch {
		case errors.Is(err, ErrCancelled):
			return
		case errors.Is(err, ErrNotFound):
			if !sleepCancellable(reconnectBackoff, cancel) {
				return
			}
			continue
		case err != nil:
			if !sleepCancellable(reconnectBackoff, cancel) {
				return
			}
			continue
		}

		onSession(sess)
		sess.Close()

		if !sleepCancellable(reconnectBackoff, cancel) {
			return
		}
	}
}

// sleepCancellable sleeps for d in <=100ms increments so cancellation is
// honored within that bound (spec.md §5), returning false if cancelled.
func sleepCancellable(d time.Duration, cancel <-chan struct{}) bool {
	const step = 100 * time.Millisecond
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-cancel:
			return false
		case <-time.After(step):
		}
	}
	return true
}
