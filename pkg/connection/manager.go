package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/transport"
)

// Connection manager errors.
var (
	// ErrManagerStopped is returned once the manager has been stopped.
	ErrManagerStopped = errors.New("connection manager stopped")

	// ErrManagerStarted is returned by Start after a previous Start.
	ErrManagerStarted = errors.New("connection manager already started")

	// ErrNoSession is returned by Disconnect when no device is connected.
	ErrNoSession = errors.New("no active session")
)

// State represents the manager state.
type State uint8

const (
	// StateIdle indicates the manager has not started waiting yet.
	StateIdle State = iota

	// StateWaiting indicates the manager is waiting for a device.
	StateWaiting

	// StateConnected indicates a session is active.
	StateConnected

	// StateStopped indicates the manager has shut down.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWaiting:
		return "WAITING"
	case StateConnected:
		return "CONNECTED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Session is the slice of the projection session the manager drives.
// *session.Session satisfies it.
type Session interface {
	Start(ctx context.Context, handler session.EventHandler) error
	Stop()
	Pause()
	Resume()
	Disconnect(ctx context.Context) error
	ID() string
	State() session.State
}

// SessionFactory builds a session for an accepted transport. On success
// the session owns the transport; on failure the caller closes it.
type SessionFactory func(t transport.Transport) (Session, error)

// Config configures a Manager.
type Config struct {
	// Waiters produce candidate devices (at least one required).
	Waiters []transport.DeviceWaiter

	// Factory builds a session for each accepted device (required).
	Factory SessionFactory

	// Backoff paces retries after discovery failures. Defaults to
	// NewBackoff().
	Backoff *Backoff

	// EventLog receives manager events (optional).
	EventLog log.Logger

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// Manager serializes device discovery and enforces the single active
// session. Every waiter is raced for the next device; an accepted
// device replaces a running session. The manager keeps racing while a
// session is up, so a newly attached device always wins over a stale
// connection.
type Manager struct {
	config   Config
	logger   *slog.Logger
	eventLog log.Logger
	backoff  *Backoff

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	session Session

	onStateChange        func(from, to State)
	onDeviceConnected    func(t transport.Transport)
	onDeviceDisconnected func()
}

// NewManager creates a manager over a set of device waiters. The
// manager does not wait for devices until Start.
func NewManager(config Config) (*Manager, error) {
	if len(config.Waiters) == 0 {
		return nil, fmt.Errorf("at least one device waiter is required")
	}
	if config.Factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if config.Backoff == nil {
		config.Backoff = NewBackoff()
	}
	if config.EventLog == nil {
		config.EventLog = log.NoopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:   config,
		logger:   config.Logger,
		eventLog: config.EventLog,
		backoff:  config.Backoff,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
	}, nil
}

// OnStateChange sets a callback for manager state changes.
func (m *Manager) OnStateChange(fn func(from, to State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnDeviceConnected sets a callback invoked when a session starts.
func (m *Manager) OnDeviceConnected(fn func(t transport.Transport)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeviceConnected = fn
}

// OnDeviceDisconnected sets a callback invoked when a session ends.
func (m *Manager) OnDeviceDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeviceDisconnected = fn
}

// State returns the current manager state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether a session is active.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Session returns the active session, or nil.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Start begins waiting for devices.
func (m *Manager) Start() error {
	m.mu.Lock()
	switch m.state {
	case StateStopped:
		m.mu.Unlock()
		return ErrManagerStopped
	case StateIdle:
	default:
		m.mu.Unlock()
		return ErrManagerStarted
	}
	m.state = StateWaiting
	m.mu.Unlock()
	m.emitStateChange(StateIdle, StateWaiting, "start")

	m.wg.Add(1)
	go m.run(m.ctx)
	return nil
}

// Stop shuts the manager down: discovery is cancelled on every waiter,
// the active session is stopped, and the manager never waits again.
// Idempotent; safe to call from the session quit path.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	from := m.state
	m.state = StateStopped
	active := m.session
	m.session = nil
	m.mu.Unlock()

	m.emitStateChange(from, StateStopped, "stop")

	m.cancel()
	for _, w := range m.config.Waiters {
		if err := w.Stop(); err != nil {
			m.debugLog("waiter stop failed", "err", err)
		}
	}

	if active != nil {
		active.Stop()
		m.emitDeviceDisconnected()
	}

	m.wg.Wait()
}

// Pause suspends media flow on the active session. Without a session
// this is a no-op.
func (m *Manager) Pause() {
	if s := m.Session(); s != nil {
		s.Pause()
		return
	}
	m.debugLog("pause ignored: no active session")
}

// Resume lifts a pause on the active session. Without a session this is
// a no-op.
func (m *Manager) Resume() {
	if s := m.Session(); s != nil {
		s.Resume()
		return
	}
	m.debugLog("resume ignored: no active session")
}

// Disconnect asks the connected device to end the session. The session
// quits once the device acknowledges.
func (m *Manager) Disconnect(ctx context.Context) error {
	s := m.Session()
	if s == nil {
		return ErrNoSession
	}
	return s.Disconnect(ctx)
}

// run is the discovery loop: race every waiter for the next device,
// hand the winner to adopt, repeat.
func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		t, err := m.race(ctx)
		if err != nil {
			if transport.IsAbort(err) || ctx.Err() != nil {
				m.debugLog("device wait ended", "err", err)
				return
			}

			m.logError(fmt.Errorf("device wait failed: %w", err))
			delay := m.backoff.Next()
			m.debugLog("retrying device wait", "attempt", m.backoff.Attempts(), "delay", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		m.backoff.Reset()
		m.adopt(ctx, t)
	}
}

// race runs one WaitForDevice on every waiter and returns the first
// device. Once a winner arrives the remaining waits are cancelled and
// drained; a device that raced in alongside the winner is closed. With
// no winner a retryable error wins over the aborted kind.
func (m *Manager) race(ctx context.Context) (transport.Transport, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		transport transport.Transport
		err       error
	}
	results := make(chan result, len(m.config.Waiters))
	for _, w := range m.config.Waiters {
		go func() {
			t, err := w.WaitForDevice(raceCtx)
			results <- result{transport: t, err: err}
		}()
	}

	var (
		winner   transport.Transport
		firstErr error
	)
	for range m.config.Waiters {
		r := <-results
		switch {
		case r.err != nil:
			if firstErr == nil || (transport.IsAbort(firstErr) && !transport.IsAbort(r.err)) {
				firstErr = r.err
			}
		case winner == nil:
			winner = r.transport
			cancel()
		default:
			m.debugLog("concurrent device lost the race", "remote", r.transport.RemoteAddr())
			_ = r.transport.Close()
		}
	}

	if winner != nil {
		return winner, nil
	}
	return nil, firstErr
}

// adopt turns an accepted transport into the active session. An
// existing session is fully stopped and released before the replacement
// is built. The manager closes the transport itself only when
// construction or start fails; otherwise the session owns it.
func (m *Manager) adopt(ctx context.Context, t transport.Transport) {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		_ = t.Close()
		return
	}
	old := m.session
	m.session = nil
	m.mu.Unlock()

	if old != nil {
		m.debugLog("session superseded", "session", old.ID(), "remote", t.RemoteAddr())
		old.Stop()
		m.setState(StateWaiting, "session superseded")
		m.emitDeviceDisconnected()
	}

	s, err := m.config.Factory(t)
	if err != nil {
		m.logError(fmt.Errorf("session construction failed: %w", err))
		_ = t.Close()
		m.setState(StateWaiting, "session construction failed")
		return
	}

	if err := s.Start(ctx, &sessionHandler{manager: m, session: s}); err != nil {
		m.logError(fmt.Errorf("session start failed: %w", err))
		s.Stop()
		m.setState(StateWaiting, "session start failed")
		return
	}

	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		s.Stop()
		return
	}
	m.session = s
	m.mu.Unlock()

	m.debugLog("device connected", "session", s.ID(), "transport", t.Kind(), "remote", t.RemoteAddr())
	m.setState(StateConnected, "device connected")
	m.emitDeviceConnected(t)
}

// sessionHandler relays one session's quit notification to the manager.
// Binding the session here lets the manager tell a quit from the active
// session apart from a late one raised by a session it has already
// replaced.
type sessionHandler struct {
	manager *Manager
	session Session
}

func (h *sessionHandler) OnSessionQuit() {
	h.manager.onSessionQuit(h.session)
}

// onSessionQuit handles a session that ended on its own: the session is
// released and the next device wins as usual, unless the manager is
// stopping.
func (m *Manager) onSessionQuit(s Session) {
	m.mu.Lock()
	if m.state == StateStopped || m.session != s {
		m.mu.Unlock()
		m.debugLog("session quit ignored", "session", s.ID())
		return
	}
	m.session = nil
	m.mu.Unlock()

	m.debugLog("session quit", "session", s.ID())
	s.Stop()
	m.setState(StateWaiting, "session quit")
	m.emitDeviceDisconnected()
}

// setState moves the manager to a new state unless it has been stopped.
func (m *Manager) setState(to State, reason string) {
	m.mu.Lock()
	from := m.state
	if from == to || from == StateStopped {
		m.mu.Unlock()
		return
	}
	m.state = to
	m.mu.Unlock()
	m.emitStateChange(from, to, reason)
}

func (m *Manager) emitStateChange(from, to State, reason string) {
	m.debugLog("manager state change", "from", from, "to", to, "reason", reason)
	m.eventLog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityManager,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})

	m.mu.Lock()
	fn := m.onStateChange
	m.mu.Unlock()
	if fn != nil {
		fn(from, to)
	}
}

func (m *Manager) emitDeviceConnected(t transport.Transport) {
	m.mu.Lock()
	fn := m.onDeviceConnected
	m.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (m *Manager) emitDeviceDisconnected() {
	m.mu.Lock()
	fn := m.onDeviceDisconnected
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) logError(err error) {
	if m.logger != nil {
		m.logger.Error("connection manager error", "err", err)
	}
	m.eventLog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSession,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: err.Error(),
			Aborted: transport.IsAbort(err),
		},
	})
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
