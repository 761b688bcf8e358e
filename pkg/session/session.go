package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openprojection/headunit-go/pkg/cryptor"
	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/transport"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Session errors.
var (
	// ErrSessionStarted is returned by Start on any state but CREATED.
	ErrSessionStarted = errors.New("session already started")
)

// EventHandler receives session lifecycle notifications. The session
// holds the handler only until it quits or stops; it never owns it.
type EventHandler interface {
	// OnSessionQuit is invoked at most once, when the session has ended
	// and should be released by its owner.
	OnSessionQuit()
}

// Config configures a Session. Transport, Cryptor, and Messenger are
// owned by the session once it is created: nothing else may stop them.
type Config struct {
	// Transport carrying the session (required).
	Transport transport.Transport

	// Cryptor securing the session (required).
	Cryptor cryptor.Cryptor

	// Messenger multiplexing the session's channels (required).
	Messenger *messenger.Messenger

	// Services owned by the session, in advertisement order.
	Services []Service

	// Identity advertised in the service discovery response. Zero value
	// means DefaultIdentity.
	Identity Identity

	// Version announced in the version request. Zero value means Current.
	Version Version

	// Ping configures the keepalive watchdog.
	Ping PingerConfig

	// SessionID tags protocol log events. Generated when empty.
	SessionID string

	// EventLog receives protocol events (optional).
	EventLog log.Logger

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// Session drives the projection protocol for one connected device. All
// control channel handling runs on a single dispatch goroutine; Stop,
// Pause, and Resume may be called from any goroutine.
type Session struct {
	config   Config
	id       string
	logger   *slog.Logger
	eventLog log.Logger

	transportName string
	remoteAddr    string

	state    atomic.Int32
	stopping atomic.Bool
	stopOnce sync.Once

	mu      sync.Mutex
	handler EventHandler

	pinger *Pinger
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a session over an accepted transport. The session does not
// touch the wire until Start.
func New(config Config) (*Session, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if config.Cryptor == nil {
		return nil, fmt.Errorf("cryptor is required")
	}
	if config.Messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if config.Identity == (Identity{}) {
		config.Identity = DefaultIdentity()
	}
	if config.Version == (Version{}) {
		config.Version = Current
	}
	if config.SessionID == "" {
		config.SessionID = uuid.NewString()
	}
	if config.EventLog == nil {
		config.EventLog = log.NoopLogger{}
	}

	s := &Session{
		config:        config,
		id:            config.SessionID,
		logger:        config.Logger,
		eventLog:      config.EventLog,
		transportName: config.Transport.Kind().String(),
		remoteAddr:    config.Transport.RemoteAddr(),
		done:          make(chan struct{}),
	}
	s.state.Store(int32(StateCreated))

	pingConfig := config.Ping
	if pingConfig.Logger == nil {
		pingConfig.Logger = config.Logger
	}
	s.pinger = NewPinger(pingConfig, s.sendPingRequest, s.onPingFailure)

	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed when the control dispatch loop has exited. Valid after
// a successful Start.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start begins the protocol: starts the messenger and every service,
// announces the head unit version, and spawns the control dispatch loop.
// The handler is notified once when the session ends on its own.
func (s *Session) Start(ctx context.Context, handler EventHandler) error {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateVersionPending)) {
		return ErrSessionStarted
	}
	s.logStateChange(StateCreated, StateVersionPending, "start")

	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()

	if err := s.config.Messenger.Start(); err != nil {
		return fmt.Errorf("failed to start messenger: %w", err)
	}

	for _, svc := range s.config.Services {
		svc.Start()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.send(runCtx, wire.MsgVersionRequest, wire.VersionRequest{
		Major: s.config.Version.Major,
		Minor: s.config.Version.Minor,
	}, false); err != nil {
		cancel()
		return fmt.Errorf("failed to send version request: %w", err)
	}

	go s.controlLoop(runCtx)
	return nil
}

// Pause suspends media flow on every service. The transport and
// messenger stay up. Pausing a session that is not active is a no-op.
func (s *Session) Pause() {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StatePaused)) {
		s.debugLog("pause ignored", "state", s.State())
		return
	}
	s.logStateChange(StateActive, StatePaused, "pause")

	for _, svc := range s.config.Services {
		svc.Pause()
	}
	if s.config.Ping.PauseStops {
		s.pinger.Pause()
	}
}

// Resume lifts a pause.
func (s *Session) Resume() {
	if !s.state.CompareAndSwap(int32(StatePaused), int32(StateActive)) {
		s.debugLog("resume ignored", "state", s.State())
		return
	}
	s.logStateChange(StatePaused, StateActive, "resume")

	for _, svc := range s.config.Services {
		svc.Resume()
	}
	if s.config.Ping.PauseStops {
		s.pinger.Resume()
	}
}

// Disconnect asks the device to end the session. The device acknowledges
// with a bye-bye response, which quits the session.
func (s *Session) Disconnect(ctx context.Context) error {
	if st := s.State(); st != StateActive && st != StatePaused {
		return fmt.Errorf("cannot disconnect in state %s", st)
	}
	return s.send(ctx, wire.MsgByeByeRequest, wire.ByeByeRequest{
		Reason: wire.ByeByeReasonUserExit,
	}, true)
}

// Stop tears the session down: services first, then the messenger, the
// transport, and the cryptor. Outstanding channel operations resolve
// with the aborted error. Idempotent; a failing step never blocks the
// ones after it.
func (s *Session) Stop() {
	s.stopOnce.Do(s.stop)
}

func (s *Session) stop() {
	s.stopping.Store(true)
	s.setState(StateStopping, "stop")

	s.mu.Lock()
	s.handler = nil
	s.mu.Unlock()

	s.pinger.Stop()
	if s.cancel != nil {
		s.cancel()
	}

	for _, svc := range s.config.Services {
		svc.Stop()
	}

	s.config.Messenger.Stop()

	if err := s.config.Transport.Close(); err != nil {
		s.debugLog("transport close failed", "err", err)
	}
	if err := s.config.Cryptor.Deinit(); err != nil {
		s.debugLog("cryptor deinit failed", "err", err)
	}

	s.setState(StateStopped, "stopped")
}

// controlLoop is the session's dispatch strand: one receive outstanding
// on the control channel, every handler run to completion before the
// next receive.
func (s *Session) controlLoop(ctx context.Context) {
	defer close(s.done)

	for {
		msg, err := s.config.Messenger.Receive(ctx, wire.ChannelControl)
		if err != nil {
			s.onChannelError(err)
			return
		}
		s.handleMessage(ctx, msg)
	}
}

func (s *Session) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgVersionResponse:
		s.onVersionResponse(ctx, msg)
	case wire.MsgHandshake:
		s.onHandshake(ctx, msg)
	case wire.MsgServiceDiscoveryRequest:
		s.onServiceDiscoveryRequest(ctx, msg)
	case wire.MsgAudioFocusRequest:
		s.onAudioFocusRequest(ctx, msg)
	case wire.MsgNavigationFocusRequest:
		s.onNavigationFocusRequest(ctx, msg)
	case wire.MsgPingRequest:
		s.onPingRequest(ctx, msg)
	case wire.MsgPingResponse:
		s.onPingResponse(msg)
	case wire.MsgBatteryStatusNotification:
		s.onBatteryStatus(msg)
	case wire.MsgVoiceSessionNotification:
		s.onVoiceSession(msg)
	case wire.MsgByeByeRequest:
		s.onByeByeRequest(ctx, msg)
	case wire.MsgByeByeResponse:
		s.onByeByeResponse()
	default:
		s.debugLog("unexpected control message", "type", msg.Type)
	}
}

func (s *Session) onVersionResponse(ctx context.Context, msg *wire.Message) {
	if st := s.State(); st != StateVersionPending {
		s.debugLog("version response ignored", "state", st)
		return
	}

	var resp wire.VersionResponse
	if err := msg.Decode(&resp); err != nil {
		s.fatal(err)
		return
	}

	remote := Version{Major: resp.Major, Minor: resp.Minor}
	if !resp.Status.IsOK() {
		s.fatal(fmt.Errorf("version mismatch: device %s, head unit %s", remote, s.config.Version))
		return
	}

	s.debugLog("version negotiated", "device", remote.String())
	s.setState(StateHandshaking, "version accepted")
	s.continueHandshake(ctx, nil)
}

func (s *Session) onHandshake(ctx context.Context, msg *wire.Message) {
	if st := s.State(); st != StateHandshaking {
		s.debugLog("handshake message ignored", "state", st)
		return
	}

	var hs wire.Handshake
	if err := msg.Decode(&hs); err != nil {
		s.fatal(err)
		return
	}
	s.continueHandshake(ctx, hs.Payload)
}

// continueHandshake feeds one inbound flight (nil to open) into the
// cryptor and forwards its output. When the exchange completes the
// session confirms with AuthComplete and waits for service discovery.
func (s *Session) continueHandshake(ctx context.Context, in []byte) {
	out, hsDone, err := s.config.Cryptor.Handshake(ctx, in)
	if err != nil {
		s.fatal(fmt.Errorf("handshake failed: %w", err))
		return
	}

	if len(out) > 0 {
		if err := s.send(ctx, wire.MsgHandshake, wire.Handshake{Payload: out}, false); err != nil {
			s.onSendError(err)
			return
		}
	}

	if hsDone {
		if err := s.send(ctx, wire.MsgAuthComplete, wire.AuthComplete{Status: wire.StatusOK}, false); err != nil {
			s.onSendError(err)
			return
		}
		s.debugLog("handshake complete")
		s.setState(StateServiceDiscovery, "handshake complete")
	}
}

func (s *Session) onServiceDiscoveryRequest(ctx context.Context, msg *wire.Message) {
	if st := s.State(); st != StateServiceDiscovery {
		s.debugLog("service discovery request ignored", "state", st)
		return
	}

	var req wire.ServiceDiscoveryRequest
	if err := msg.Decode(&req); err != nil {
		s.fatal(err)
		return
	}
	s.debugLog("service discovery request", "device", req.DeviceName, "brand", req.DeviceBrand)

	resp := s.config.Identity.discoveryResponse()
	for _, svc := range s.config.Services {
		svc.FillFeatures(&resp)
	}

	if err := s.send(ctx, wire.MsgServiceDiscoveryResponse, resp, true); err != nil {
		s.onSendError(err)
		return
	}

	s.setState(StateActive, "service discovery complete")
	s.pinger.Start(ctx)
}

func (s *Session) onAudioFocusRequest(ctx context.Context, msg *wire.Message) {
	var req wire.AudioFocusRequest
	if err := msg.Decode(&req); err != nil {
		s.fatal(err)
		return
	}

	var state wire.AudioFocusState
	switch req.Request {
	case wire.AudioFocusRequestRelease:
		state = wire.AudioFocusStateLoss
	case wire.AudioFocusRequestGainTransient, wire.AudioFocusRequestGainNavi:
		state = wire.AudioFocusStateGainTransient
	default:
		state = wire.AudioFocusStateGain
	}

	s.debugLog("audio focus", "request", req.Request, "granted", state)
	if err := s.send(ctx, wire.MsgAudioFocusNotification, wire.AudioFocusNotification{State: state}, true); err != nil {
		s.onSendError(err)
	}
}

func (s *Session) onNavigationFocusRequest(ctx context.Context, msg *wire.Message) {
	var req wire.NavigationFocusRequest
	if err := msg.Decode(&req); err != nil {
		s.fatal(err)
		return
	}

	// The head unit has no native navigation; the projection always wins.
	s.debugLog("navigation focus", "requested", req.FocusType)
	if err := s.send(ctx, wire.MsgNavigationFocusNotification, wire.NavigationFocusNotification{
		FocusType: wire.NavigationFocusProjected,
	}, true); err != nil {
		s.onSendError(err)
	}
}

func (s *Session) onPingRequest(ctx context.Context, msg *wire.Message) {
	var req wire.PingRequest
	if err := msg.Decode(&req); err != nil {
		s.fatal(err)
		return
	}
	if err := s.send(ctx, wire.MsgPingResponse, wire.PingResponse{Timestamp: req.Timestamp}, true); err != nil {
		s.onSendError(err)
	}
}

func (s *Session) onPingResponse(msg *wire.Message) {
	var resp wire.PingResponse
	if err := msg.Decode(&resp); err != nil {
		s.fatal(err)
		return
	}
	s.pinger.Pong(resp.Timestamp)
}

func (s *Session) onBatteryStatus(msg *wire.Message) {
	var status wire.BatteryStatusNotification
	if err := msg.Decode(&status); err != nil {
		s.fatal(err)
		return
	}
	s.debugLog("battery status", "level", status.Level, "charging", status.Charging)
}

func (s *Session) onVoiceSession(msg *wire.Message) {
	var notif wire.VoiceSessionNotification
	if err := msg.Decode(&notif); err != nil {
		s.fatal(err)
		return
	}
	s.debugLog("voice session", "status", notif.Status)
}

func (s *Session) onByeByeRequest(ctx context.Context, msg *wire.Message) {
	var req wire.ByeByeRequest
	if err := msg.Decode(&req); err != nil {
		s.fatal(err)
		return
	}

	if s.logger != nil {
		s.logger.Info("device requested shutdown", "session", s.id, "reason", req.Reason)
	}
	if err := s.send(ctx, wire.MsgByeByeResponse, wire.ByeByeResponse{}, true); err != nil {
		s.onSendError(err)
		return
	}
	s.triggerQuit()
}

func (s *Session) onByeByeResponse() {
	s.debugLog("device acknowledged shutdown")
	s.triggerQuit()
}

// onChannelError handles a control channel receive failure. The aborted
// kind accompanies an intentional stop and stays quiet; anything else
// ends the session.
func (s *Session) onChannelError(err error) {
	if messenger.IsAborted(err) || errors.Is(err, context.Canceled) {
		s.debugLog("control channel closed", "err", err)
		return
	}
	if s.stopping.Load() {
		s.debugLog("control channel error during stop", "err", err)
		return
	}

	s.logError(fmt.Errorf("control channel error: %w", err))
	s.triggerQuit()
}

// onSendError handles a control channel send failure.
func (s *Session) onSendError(err error) {
	if messenger.IsAborted(err) || errors.Is(err, context.Canceled) {
		s.debugLog("control send aborted", "err", err)
		return
	}
	s.fatal(err)
}

// fatal records an unrecoverable protocol error and quits the session.
func (s *Session) fatal(err error) {
	if s.stopping.Load() {
		s.debugLog("error during stop", "err", err)
		return
	}
	s.logError(err)
	s.triggerQuit()
}

// triggerQuit notifies the event handler that the session has ended. The
// handler reference is consumed on the first call; later calls, and any
// call after Stop has cleared the handler, do nothing.
func (s *Session) triggerQuit() {
	s.mu.Lock()
	handler := s.handler
	s.handler = nil
	s.mu.Unlock()

	if handler == nil {
		return
	}
	s.debugLog("session quit")
	handler.OnSessionQuit()
}

// sendPingRequest is the pinger's probe transmitter.
func (s *Session) sendPingRequest(timestamp int64) error {
	return s.send(context.Background(), wire.MsgPingRequest, wire.PingRequest{Timestamp: timestamp}, true)
}

// onPingFailure handles a liveness failure from the pinger.
func (s *Session) onPingFailure(err error) {
	if messenger.IsAborted(err) || errors.Is(err, context.Canceled) {
		s.debugLog("pinger stopped", "err", err)
		return
	}
	s.fatal(fmt.Errorf("session liveness lost: %w", err))
}

// send encodes a control channel message and hands it to the messenger.
func (s *Session) send(ctx context.Context, msgType wire.MessageType, body any, encrypted bool) error {
	msg, err := wire.NewMessage(wire.ChannelControl, msgType, body)
	if err != nil {
		return err
	}
	msg.Encrypted = encrypted
	msg.Control = true
	return s.config.Messenger.Send(ctx, msg)
}

func (s *Session) setState(to State, reason string) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	s.logStateChange(from, to, reason)
}

func (s *Session) logStateChange(from, to State, reason string) {
	s.debugLog("state change", "from", from, "to", to, "reason", reason)
	s.eventLog.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Layer:      log.LayerSession,
		Category:   log.CategoryState,
		Transport:  s.transportName,
		RemoteAddr: s.remoteAddr,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) logError(err error) {
	if s.logger != nil {
		s.logger.Error("session error", "session", s.id, "err", err)
	}
	s.eventLog.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Layer:      log.LayerSession,
		Category:   log.CategoryError,
		Transport:  s.transportName,
		RemoteAddr: s.remoteAddr,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: err.Error(),
			Aborted: messenger.IsAborted(err),
		},
	})
}

func (s *Session) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
