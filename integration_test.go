package headunit_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprojection/headunit-go/pkg/config"
	"github.com/openprojection/headunit-go/pkg/connection"
	"github.com/openprojection/headunit-go/pkg/cryptor"
	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/transport"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// phoneSim plays the device end of a projection session using only the
// public package APIs, the way a phone would over a real transport.
type phoneSim struct {
	t    *testing.T
	tr   transport.Transport
	cr   cryptor.Cryptor
	msgr *messenger.Messenger
}

func newPhoneSim(t *testing.T, tr transport.Transport) *phoneSim {
	t.Helper()

	cr, err := cryptor.NewTLS(cryptor.Config{Role: cryptor.RoleServer})
	require.NoError(t, err)

	msgr, err := messenger.New(messenger.Config{Transport: tr, Cryptor: cr})
	require.NoError(t, err)
	require.NoError(t, msgr.Start())

	p := &phoneSim{t: t, tr: tr, cr: cr, msgr: msgr}
	t.Cleanup(p.close)
	return p
}

func (p *phoneSim) close() {
	p.msgr.Stop()
	p.tr.Close()
	p.cr.Deinit()
}

func (p *phoneSim) send(msgType wire.MessageType, body any, encrypted bool) {
	p.t.Helper()

	msg, err := wire.NewMessage(wire.ChannelControl, msgType, body)
	require.NoError(p.t, err)
	msg.Encrypted = encrypted
	msg.Control = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(p.t, p.msgr.Send(ctx, msg))
}

func (p *phoneSim) receive() *wire.Message {
	p.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := p.msgr.Receive(ctx, wire.ChannelControl)
	require.NoError(p.t, err)
	return msg
}

// activate walks version negotiation, the handshake, and service
// discovery, returning the discovery response.
func (p *phoneSim) activate() wire.ServiceDiscoveryResponse {
	p.t.Helper()

	msg := p.receive()
	require.Equal(p.t, wire.MsgVersionRequest, msg.Type)
	var vreq wire.VersionRequest
	require.NoError(p.t, msg.Decode(&vreq))
	p.send(wire.MsgVersionResponse, wire.VersionResponse{
		Major:  vreq.Major,
		Minor:  vreq.Minor,
		Status: wire.StatusOK,
	}, false)

	for round := 0; ; round++ {
		require.Less(p.t, round, 8, "handshake did not converge")

		msg = p.receive()
		if msg.Type == wire.MsgAuthComplete {
			var done wire.AuthComplete
			require.NoError(p.t, msg.Decode(&done))
			require.True(p.t, done.Status.IsOK())
			break
		}

		require.Equal(p.t, wire.MsgHandshake, msg.Type)
		var hs wire.Handshake
		require.NoError(p.t, msg.Decode(&hs))
		out, _, err := p.cr.Handshake(context.Background(), hs.Payload)
		require.NoError(p.t, err)
		if len(out) > 0 {
			p.send(wire.MsgHandshake, wire.Handshake{Payload: out}, false)
		}
	}

	p.send(wire.MsgServiceDiscoveryRequest, wire.ServiceDiscoveryRequest{
		DeviceName:  "Pixel",
		DeviceBrand: "Google",
	}, true)

	msg = p.receive()
	require.Equal(p.t, wire.MsgServiceDiscoveryResponse, msg.Type)
	require.True(p.t, msg.Encrypted)

	var resp wire.ServiceDiscoveryResponse
	require.NoError(p.t, msg.Decode(&resp))
	return resp
}

// sayByeBye performs the device-initiated shutdown exchange.
func (p *phoneSim) sayByeBye() {
	p.t.Helper()

	p.send(wire.MsgByeByeRequest, wire.ByeByeRequest{Reason: wire.ByeByeReasonUserExit}, true)
	msg := p.receive()
	require.Equal(p.t, wire.MsgByeByeResponse, msg.Type)
}

// headUnit is a complete in-process head unit listening on an accessory
// waiter, with every protocol event captured to a log file.
type headUnit struct {
	manager   *connection.Manager
	accessory *transport.AccessoryWaiter
	logPath   string
	fileLog   *log.FileLogger

	connected    chan transport.Transport
	disconnected chan struct{}
}

func newHeadUnit(t *testing.T) *headUnit {
	t.Helper()

	cfg := config.DefaultConfig()
	// Keep the keepalive watchdog quiet; the simulator does not answer
	// pings.
	cfg.Ping.Interval = time.Minute
	cfg.Sensor.NightModeFile = filepath.Join(t.TempDir(), "night")

	logPath := filepath.Join(t.TempDir(), "session.plog")
	fileLog, err := log.NewFileLogger(logPath)
	require.NoError(t, err)

	builder := &connection.Builder{
		Config:   cfg,
		EventLog: fileLog,
	}

	accessory := transport.NewAccessoryWaiter(nil)

	manager, err := connection.NewManager(connection.Config{
		Waiters:  []transport.DeviceWaiter{accessory},
		Factory:  builder.Factory(),
		EventLog: fileLog,
	})
	require.NoError(t, err)

	hu := &headUnit{
		manager:      manager,
		accessory:    accessory,
		logPath:      logPath,
		fileLog:      fileLog,
		connected:    make(chan transport.Transport, 4),
		disconnected: make(chan struct{}, 4),
	}
	manager.OnDeviceConnected(func(tr transport.Transport) { hu.connected <- tr })
	manager.OnDeviceDisconnected(func() { hu.disconnected <- struct{}{} })

	require.NoError(t, manager.Start())
	t.Cleanup(func() {
		manager.Stop()
		fileLog.Close()
	})
	return hu
}

// attach hands one end of a fresh pipe to the accessory waiter and
// returns a simulator on the other end.
func (hu *headUnit) attach(t *testing.T, name string) *phoneSim {
	t.Helper()

	huEnd, phoneEnd := transport.Pipe()
	require.NoError(t, hu.accessory.Deliver(huEnd, name))
	return newPhoneSim(t, phoneEnd)
}

func waitConnected(t *testing.T, hu *headUnit) transport.Transport {
	t.Helper()
	select {
	case tr := <-hu.connected:
		return tr
	case <-time.After(5 * time.Second):
		t.Fatal("device never connected")
		return nil
	}
}

func waitDisconnected(t *testing.T, hu *headUnit) {
	t.Helper()
	select {
	case <-hu.disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("device never disconnected")
	}
}

func TestSessionEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	hu := newHeadUnit(t)
	phone := hu.attach(t, "usb:sim-1")

	tr := waitConnected(t, hu)
	assert.Equal(t, transport.KindAccessory, tr.Kind())
	assert.Equal(t, "usb:sim-1", tr.RemoteAddr())

	resp := phone.activate()

	// Identity comes straight from the configuration.
	assert.Equal(t, "CubeOne", resp.Make)
	assert.Equal(t, "Journey", resp.Model)
	assert.Equal(t, "JourneyOS", resp.HeadunitName)

	// The default service set advertises at least video, input, a media
	// audio sink, and the sensor source.
	channels := make(map[wire.ChannelID]wire.ChannelDescriptor, len(resp.Channels))
	for _, ch := range resp.Channels {
		channels[ch.Channel] = ch
	}
	assert.NotNil(t, channels[wire.ChannelVideo].VideoSink)
	assert.NotNil(t, channels[wire.ChannelInput].Input)
	assert.NotNil(t, channels[wire.ChannelMediaAudio].AudioSink)
	assert.NotNil(t, channels[wire.ChannelSensor].Sensor)

	require.Eventually(t, func() bool {
		return hu.manager.State() == connection.StateConnected && hu.manager.Session() != nil
	}, 5*time.Second, 10*time.Millisecond)

	sessionID := hu.manager.Session().ID()
	assert.NotEmpty(t, sessionID)

	// Device-initiated shutdown returns the head unit to waiting.
	phone.sayByeBye()
	waitDisconnected(t, hu)

	require.Eventually(t, func() bool {
		return hu.manager.State() == connection.StateWaiting
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNewDeviceSupersedesSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	hu := newHeadUnit(t)

	first := hu.attach(t, "usb:sim-1")
	waitConnected(t, hu)
	first.activate()

	require.Eventually(t, func() bool {
		return hu.manager.Session() != nil
	}, 5*time.Second, 10*time.Millisecond)
	firstID := hu.manager.Session().ID()

	// A second device replaces the running session.
	second := hu.attach(t, "usb:sim-2")
	waitConnected(t, hu)
	waitDisconnected(t, hu)
	second.activate()

	require.Eventually(t, func() bool {
		s := hu.manager.Session()
		return s != nil && s.ID() != firstID
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, connection.StateConnected, hu.manager.State())
}

func TestEventLogCapturesSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	hu := newHeadUnit(t)
	phone := hu.attach(t, "usb:sim-1")
	waitConnected(t, hu)
	phone.activate()
	phone.sayByeBye()
	waitDisconnected(t, hu)

	hu.manager.Stop()
	require.NoError(t, hu.fileLog.Close())

	reader, err := log.NewReader(hu.logPath)
	require.NoError(t, err)
	defer reader.Close()

	var total, messages, states int
	sessionIDs := make(map[string]bool)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		total++
		if event.Message != nil {
			messages++
		}
		if event.StateChange != nil {
			states++
		}
		if event.SessionID != "" {
			sessionIDs[event.SessionID] = true
		}
	}

	assert.Greater(t, total, 0, "expected logged events")
	assert.Greater(t, messages, 0, "expected control channel messages in the log")
	assert.Greater(t, states, 0, "expected state changes in the log")
	assert.Len(t, sessionIDs, 1, "expected one session in the log")
}
