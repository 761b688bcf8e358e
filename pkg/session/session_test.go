package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprojection/headunit-go/pkg/cryptor"
	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/transport"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// deviceSim plays the phone side of a session over an in-memory pipe.
type deviceSim struct {
	t    *testing.T
	tr   transport.Transport
	cr   cryptor.Cryptor
	msgr *messenger.Messenger
}

func newDeviceSim(t *testing.T, tr transport.Transport) *deviceSim {
	t.Helper()

	cr, err := cryptor.NewTLS(cryptor.Config{Role: cryptor.RoleServer})
	require.NoError(t, err)

	msgr, err := messenger.New(messenger.Config{Transport: tr, Cryptor: cr})
	require.NoError(t, err)
	require.NoError(t, msgr.Start())

	return &deviceSim{t: t, tr: tr, cr: cr, msgr: msgr}
}

func (d *deviceSim) close() {
	d.msgr.Stop()
	d.tr.Close()
	d.cr.Deinit()
}

func (d *deviceSim) send(msgType wire.MessageType, body any, encrypted bool) {
	d.t.Helper()

	msg, err := wire.NewMessage(wire.ChannelControl, msgType, body)
	require.NoError(d.t, err)
	msg.Encrypted = encrypted
	msg.Control = true

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(d.t, d.msgr.Send(ctx, msg))
}

func (d *deviceSim) receive() *wire.Message {
	d.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	msg, err := d.msgr.Receive(ctx, wire.ChannelControl)
	require.NoError(d.t, err)
	return msg
}

// tryReceive returns nil when no message arrives in time.
func (d *deviceSim) tryReceive(wait time.Duration) *wire.Message {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	msg, err := d.msgr.Receive(ctx, wire.ChannelControl)
	if err != nil {
		return nil
	}
	return msg
}

// completeVersionExchange consumes the head unit's version request and
// answers it.
func (d *deviceSim) completeVersionExchange(status wire.Status) {
	d.t.Helper()

	msg := d.receive()
	require.Equal(d.t, wire.MsgVersionRequest, msg.Type)
	assert.False(d.t, msg.Encrypted, "version negotiation must be plaintext")
	assert.True(d.t, msg.Control)

	var req wire.VersionRequest
	require.NoError(d.t, msg.Decode(&req))
	assert.Equal(d.t, Current.Major, req.Major)

	d.send(wire.MsgVersionResponse, wire.VersionResponse{
		Major:  req.Major,
		Minor:  req.Minor,
		Status: status,
	}, false)
}

// completeHandshake relays handshake flights until the head unit confirms
// with AuthComplete.
func (d *deviceSim) completeHandshake() {
	d.t.Helper()

	for round := 0; ; round++ {
		require.Less(d.t, round, 8, "handshake did not converge")

		msg := d.receive()
		if msg.Type == wire.MsgAuthComplete {
			var done wire.AuthComplete
			require.NoError(d.t, msg.Decode(&done))
			assert.True(d.t, done.Status.IsOK())
			return
		}

		require.Equal(d.t, wire.MsgHandshake, msg.Type)
		assert.False(d.t, msg.Encrypted, "handshake must be plaintext")

		var hs wire.Handshake
		require.NoError(d.t, msg.Decode(&hs))
		out, _, err := d.cr.Handshake(context.Background(), hs.Payload)
		require.NoError(d.t, err)
		if len(out) > 0 {
			d.send(wire.MsgHandshake, wire.Handshake{Payload: out}, false)
		}
	}
}

// discover requests the service table and returns the response.
func (d *deviceSim) discover() wire.ServiceDiscoveryResponse {
	d.t.Helper()

	d.send(wire.MsgServiceDiscoveryRequest, wire.ServiceDiscoveryRequest{
		DeviceName:  "Pixel",
		DeviceBrand: "Google",
	}, true)

	msg := d.receive()
	require.Equal(d.t, wire.MsgServiceDiscoveryResponse, msg.Type)
	assert.True(d.t, msg.Encrypted, "service discovery response must be encrypted")

	var resp wire.ServiceDiscoveryResponse
	require.NoError(d.t, msg.Decode(&resp))
	return resp
}

// activate walks the full startup sequence and returns the discovery
// response.
func (d *deviceSim) activate() wire.ServiceDiscoveryResponse {
	d.t.Helper()
	d.completeVersionExchange(wire.StatusOK)
	d.completeHandshake()
	return d.discover()
}

// answerPings answers every ping request until the context ends,
// discarding everything else.
func (d *deviceSim) answerPings(ctx context.Context) {
	for {
		msg, err := d.msgr.Receive(ctx, wire.ChannelControl)
		if err != nil {
			return
		}
		if msg.Type != wire.MsgPingRequest {
			continue
		}
		var req wire.PingRequest
		if err := msg.Decode(&req); err != nil {
			return
		}
		out, err := wire.NewMessage(wire.ChannelControl, wire.MsgPingResponse, wire.PingResponse{Timestamp: req.Timestamp})
		if err != nil {
			return
		}
		out.Encrypted = true
		out.Control = true
		if err := d.msgr.Send(ctx, out); err != nil {
			return
		}
	}
}

// fakeService records lifecycle calls and advertises one descriptor.
type fakeService struct {
	channel wire.ChannelID

	mu      sync.Mutex
	started int
	stopped int
	paused  int
	resumed int
}

func (f *fakeService) Start() { f.count(&f.started) }
func (f *fakeService) Stop()  { f.count(&f.stopped) }

func (f *fakeService) Pause()  { f.count(&f.paused) }
func (f *fakeService) Resume() { f.count(&f.resumed) }

func (f *fakeService) Channel() wire.ChannelID { return f.channel }

func (f *fakeService) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel: f.channel,
		Sensor:  &wire.SensorSourceDescriptor{Sensors: []wire.SensorType{wire.SensorNightMode}},
	})
}

func (f *fakeService) OnChannelError(err error) {}

func (f *fakeService) count(field *int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*field++
}

func (f *fakeService) counts() (started, stopped, paused, resumed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped, f.paused, f.resumed
}

// quitRecorder counts quit notifications.
type quitRecorder struct {
	count atomic.Int32
	ch    chan struct{}
}

func newQuitRecorder() *quitRecorder {
	return &quitRecorder{ch: make(chan struct{}, 8)}
}

func (q *quitRecorder) OnSessionQuit() {
	q.count.Add(1)
	select {
	case q.ch <- struct{}{}:
	default:
	}
}

func (q *quitRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-q.ch:
	case <-time.After(3 * time.Second):
		t.Fatal("session never quit")
	}
}

// fixture wires a session against a device simulator over a pipe.
type fixture struct {
	session *Session
	msgr    *messenger.Messenger
	dev     *deviceSim
	quits   *quitRecorder
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()

	huEnd, devEnd := transport.Pipe()

	cr, err := cryptor.NewTLS(cryptor.Config{Role: cryptor.RoleClient})
	require.NoError(t, err)

	msgr, err := messenger.New(messenger.Config{Transport: huEnd, Cryptor: cr})
	require.NoError(t, err)

	config.Transport = huEnd
	config.Cryptor = cr
	config.Messenger = msgr
	if config.Ping.Interval == 0 {
		// Keep the watchdog quiet unless a test asks for it.
		config.Ping.Interval = time.Minute
	}

	s, err := New(config)
	require.NoError(t, err)

	f := &fixture{
		session: s,
		msgr:    msgr,
		dev:     newDeviceSim(t, devEnd),
		quits:   newQuitRecorder(),
	}
	t.Cleanup(func() {
		f.session.Stop()
		f.dev.close()
	})
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.session.Start(context.Background(), f.quits))
}

func TestNewSessionValidatesConfig(t *testing.T) {
	huEnd, devEnd := transport.Pipe()
	defer huEnd.Close()
	defer devEnd.Close()

	cr, err := cryptor.NewTLS(cryptor.Config{})
	require.NoError(t, err)
	msgr, err := messenger.New(messenger.Config{Transport: huEnd, Cryptor: cr})
	require.NoError(t, err)

	tests := []struct {
		name   string
		config Config
	}{
		{"missing transport", Config{Cryptor: cr, Messenger: msgr}},
		{"missing cryptor", Config{Transport: huEnd, Messenger: msgr}},
		{"missing messenger", Config{Transport: huEnd, Cryptor: cr}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			assert.Error(t, err)
		})
	}
}

func TestNewSessionDefaults(t *testing.T) {
	huEnd, devEnd := transport.Pipe()
	defer huEnd.Close()
	defer devEnd.Close()

	cr, err := cryptor.NewTLS(cryptor.Config{})
	require.NoError(t, err)
	msgr, err := messenger.New(messenger.Config{Transport: huEnd, Cryptor: cr})
	require.NoError(t, err)

	s, err := New(Config{Transport: huEnd, Cryptor: cr, Messenger: msgr})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, StateCreated, s.State())
	assert.Equal(t, DefaultIdentity(), s.config.Identity)
	assert.Equal(t, Current, s.config.Version)
}

func TestSessionLifecycleToActive(t *testing.T) {
	services := []*fakeService{
		{channel: wire.ChannelVideo},
		{channel: wire.ChannelSensor},
		{channel: wire.ChannelInput},
	}
	config := Config{}
	for _, svc := range services {
		config.Services = append(config.Services, svc)
	}

	f := newFixture(t, config)
	f.start(t)

	resp := f.dev.activate()

	// Identity comes from the default configuration.
	want := DefaultIdentity()
	assert.Equal(t, want.Make, resp.Make)
	assert.Equal(t, want.Model, resp.Model)
	assert.Equal(t, want.Year, resp.Year)
	assert.Equal(t, want.VehicleID, resp.VehicleID)
	assert.Equal(t, want.HeadunitName, resp.HeadunitName)
	assert.Equal(t, want.SwBuild, resp.SwBuild)
	assert.Equal(t, want.SwVersion, resp.SwVersion)

	// One descriptor per service, channel ids distinct and stable.
	require.Len(t, resp.Channels, len(services))
	seen := make(map[wire.ChannelID]bool)
	for i, desc := range resp.Channels {
		assert.Equal(t, services[i].Channel(), desc.Channel)
		assert.False(t, seen[desc.Channel], "duplicate channel id %s", desc.Channel)
		seen[desc.Channel] = true
	}

	require.Eventually(t, func() bool { return f.session.State() == StateActive },
		time.Second, 5*time.Millisecond)

	for _, svc := range services {
		started, stopped, _, _ := svc.counts()
		assert.Equal(t, 1, started)
		assert.Equal(t, 0, stopped)
	}
	assert.Equal(t, int32(0), f.quits.count.Load())
}

func TestSessionStartTwice(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	assert.ErrorIs(t, f.session.Start(context.Background(), f.quits), ErrSessionStarted)
}

func TestSessionVersionMismatchQuits(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	f.dev.completeVersionExchange(wire.StatusVersionMismatch)

	f.quits.wait(t)
	assert.Equal(t, int32(1), f.quits.count.Load())

	// The head unit must not begin the handshake with an incompatible
	// device.
	assert.Nil(t, f.dev.tryReceive(100*time.Millisecond))
}

func TestSessionStaleHandshakeIgnored(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	f.dev.completeVersionExchange(wire.StatusOK)
	f.dev.completeHandshake()

	// A handshake message after AuthComplete must not produce a second
	// AuthComplete; discovery still answers next.
	f.dev.send(wire.MsgHandshake, wire.Handshake{Payload: []byte{0x16, 0x03, 0x03}}, false)
	f.dev.discover()

	assert.Equal(t, int32(0), f.quits.count.Load())
}

func TestSessionStopIdempotent(t *testing.T) {
	svc := &fakeService{channel: wire.ChannelVideo}
	f := newFixture(t, Config{Services: []Service{svc}})
	f.start(t)

	f.dev.activate()
	require.Eventually(t, func() bool { return f.session.State() == StateActive },
		time.Second, 5*time.Millisecond)

	f.session.Stop()
	assert.Equal(t, StateStopped, f.session.State())

	f.session.Stop()
	assert.Equal(t, StateStopped, f.session.State())

	started, stopped, _, _ := svc.counts()
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)

	// Stop cleared the handler before anything else: no quit callback.
	assert.Equal(t, int32(0), f.quits.count.Load())

	// Messenger operations resolve with the aborted error afterwards.
	msg, err := wire.NewMessage(wire.ChannelControl, wire.MsgPingRequest, wire.PingRequest{Timestamp: 1})
	require.NoError(t, err)
	err = f.msgr.Send(context.Background(), msg)
	assert.True(t, messenger.IsAborted(err), "got %v", err)

	// The dispatch loop drains on the aborted error.
	select {
	case <-f.session.Done():
	case <-time.After(time.Second):
		t.Fatal("dispatch loop did not exit")
	}
}

func TestSessionTransportLossQuitsOnce(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	f.dev.activate()

	// Device side vanishes without a bye-bye.
	f.dev.close()

	f.quits.wait(t)
	f.session.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), f.quits.count.Load())
}

func TestSessionByeByeRequestRepliesAndQuits(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	f.dev.activate()
	f.dev.send(wire.MsgByeByeRequest, wire.ByeByeRequest{Reason: wire.ByeByeReasonUserExit}, true)

	msg := f.dev.receive()
	assert.Equal(t, wire.MsgByeByeResponse, msg.Type)

	f.quits.wait(t)
	assert.Equal(t, int32(1), f.quits.count.Load())
}

func TestSessionDisconnect(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	// Too early: nothing to disconnect yet.
	assert.Error(t, f.session.Disconnect(context.Background()))

	f.dev.activate()
	require.Eventually(t, func() bool { return f.session.State() == StateActive },
		time.Second, 5*time.Millisecond)

	require.NoError(t, f.session.Disconnect(context.Background()))

	msg := f.dev.receive()
	require.Equal(t, wire.MsgByeByeRequest, msg.Type)
	var req wire.ByeByeRequest
	require.NoError(t, msg.Decode(&req))
	assert.Equal(t, wire.ByeByeReasonUserExit, req.Reason)

	f.dev.send(wire.MsgByeByeResponse, wire.ByeByeResponse{}, true)
	f.quits.wait(t)
}

func TestSessionAudioFocusMapping(t *testing.T) {
	tests := []struct {
		name    string
		request wire.AudioFocusRequestType
		want    wire.AudioFocusState
	}{
		{"gain", wire.AudioFocusRequestGain, wire.AudioFocusStateGain},
		{"transient", wire.AudioFocusRequestGainTransient, wire.AudioFocusStateGainTransient},
		{"navi", wire.AudioFocusRequestGainNavi, wire.AudioFocusStateGainTransient},
		{"release", wire.AudioFocusRequestRelease, wire.AudioFocusStateLoss},
	}

	f := newFixture(t, Config{})
	f.start(t)
	f.dev.activate()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.dev.send(wire.MsgAudioFocusRequest, wire.AudioFocusRequest{Request: tt.request}, true)

			msg := f.dev.receive()
			require.Equal(t, wire.MsgAudioFocusNotification, msg.Type)
			var notif wire.AudioFocusNotification
			require.NoError(t, msg.Decode(&notif))
			assert.Equal(t, tt.want, notif.State)
		})
	}
}

func TestSessionNavigationFocusAlwaysProjected(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	f.dev.activate()

	f.dev.send(wire.MsgNavigationFocusRequest, wire.NavigationFocusRequest{
		FocusType: wire.NavigationFocusNative,
	}, true)

	msg := f.dev.receive()
	require.Equal(t, wire.MsgNavigationFocusNotification, msg.Type)
	var notif wire.NavigationFocusNotification
	require.NoError(t, msg.Decode(&notif))
	assert.Equal(t, wire.NavigationFocusProjected, notif.FocusType)
}

func TestSessionNotificationsNeedNoReply(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	f.dev.activate()

	f.dev.send(wire.MsgBatteryStatusNotification, wire.BatteryStatusNotification{Level: 80, Charging: true}, true)
	f.dev.send(wire.MsgVoiceSessionNotification, wire.VoiceSessionNotification{Status: 1}, true)
	f.dev.send(wire.MsgAudioFocusRequest, wire.AudioFocusRequest{Request: wire.AudioFocusRequestGain}, true)

	// The first message back is the focus reply: the notifications
	// produced none, and ordering held.
	msg := f.dev.receive()
	assert.Equal(t, wire.MsgAudioFocusNotification, msg.Type)
	assert.Equal(t, int32(0), f.quits.count.Load())
}

func TestSessionDeviceRespondsToPing(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	f.dev.activate()

	f.dev.send(wire.MsgPingRequest, wire.PingRequest{Timestamp: 424242}, true)

	msg := f.dev.receive()
	require.Equal(t, wire.MsgPingResponse, msg.Type)
	var resp wire.PingResponse
	require.NoError(t, msg.Decode(&resp))
	assert.Equal(t, int64(424242), resp.Timestamp)
}

func TestSessionPingKeepsAlive(t *testing.T) {
	f := newFixture(t, Config{Ping: PingerConfig{
		Interval: 20 * time.Millisecond,
		Timeout:  100 * time.Millisecond,
	}})
	f.start(t)
	f.dev.activate()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.dev.answerPings(ctx)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), f.quits.count.Load())

	stats := f.session.pinger.Stats()
	assert.False(t, stats.LastPong.IsZero())
}

func TestSessionPingTimeoutQuitsOnce(t *testing.T) {
	f := newFixture(t, Config{Ping: PingerConfig{
		Interval: 20 * time.Millisecond,
		Timeout:  60 * time.Millisecond,
	}})
	f.start(t)
	f.dev.activate()

	// Nobody answers the pings.
	f.quits.wait(t)

	// A pong arriving after the verdict must not quit again.
	f.dev.send(wire.MsgPingResponse, wire.PingResponse{Timestamp: 1}, true)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), f.quits.count.Load())
}

func TestSessionPauseResume(t *testing.T) {
	svc := &fakeService{channel: wire.ChannelVideo}
	f := newFixture(t, Config{Services: []Service{svc}})
	f.start(t)

	// Not active yet: ignored.
	f.session.Pause()
	_, _, paused, _ := svc.counts()
	assert.Equal(t, 0, paused)

	f.dev.activate()
	require.Eventually(t, func() bool { return f.session.State() == StateActive },
		time.Second, 5*time.Millisecond)

	f.session.Pause()
	assert.Equal(t, StatePaused, f.session.State())
	f.session.Pause() // second pause is a no-op
	_, _, paused, resumed := svc.counts()
	assert.Equal(t, 1, paused)
	assert.Equal(t, 0, resumed)

	// Steady-state handling continues while paused.
	f.dev.send(wire.MsgAudioFocusRequest, wire.AudioFocusRequest{Request: wire.AudioFocusRequestGain}, true)
	assert.Equal(t, wire.MsgAudioFocusNotification, f.dev.receive().Type)

	f.session.Resume()
	assert.Equal(t, StateActive, f.session.State())
	_, _, _, resumed = svc.counts()
	assert.Equal(t, 1, resumed)
}

func TestSessionPauseSuspendsPinger(t *testing.T) {
	f := newFixture(t, Config{Ping: PingerConfig{
		Interval:   20 * time.Millisecond,
		Timeout:    60 * time.Millisecond,
		PauseStops: true,
	}})
	f.start(t)
	f.dev.activate()
	require.Eventually(t, func() bool { return f.session.State() == StateActive },
		time.Second, 5*time.Millisecond)

	f.session.Pause()

	// Far past interval+timeout: a suspended watchdog must not declare
	// the session dead while paused.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(0), f.quits.count.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.dev.answerPings(ctx)

	f.session.Resume()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), f.quits.count.Load())
}

func TestVersionCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b Version
		want bool
	}{
		{"same", Version{1, 1}, Version{1, 1}, true},
		{"minor differs", Version{1, 1}, Version{1, 6}, true},
		{"major differs", Version{1, 1}, Version{2, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compatible(tt.b))
			assert.Equal(t, tt.want, tt.b.Compatible(tt.a))
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "1.1", Current.String())
	assert.Equal(t, "2.0", Version{Major: 2}.String())
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateCreated:          "CREATED",
		StateVersionPending:   "VERSION_PENDING",
		StateHandshaking:      "HANDSHAKING",
		StateServiceDiscovery: "SERVICE_DISCOVERY",
		StateActive:           "ACTIVE",
		StatePaused:           "PAUSED",
		StateStopping:         "STOPPING",
		StateStopped:          "STOPPED",
		State(99):             "UNKNOWN",
	}
	for state, want := range states {
		assert.Equal(t, want, state.String())
	}
}
