package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprojection/headunit-go/pkg/cryptor"
	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/transport"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// establish relays the record layer handshake between the two cryptors
// directly, without a session in the middle.
func establish(t *testing.T, client, server cryptor.Cryptor) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	toServer, clientDone, err := client.Handshake(ctx, nil)
	require.NoError(t, err)

	serverDone := false
	for round := 0; !clientDone || !serverDone; round++ {
		require.Less(t, round, 8, "handshake did not converge")

		var toClient []byte
		if !serverDone {
			toClient, serverDone, err = server.Handshake(ctx, toServer)
			require.NoError(t, err)
			toServer = nil
		}
		if !clientDone {
			toServer, clientDone, err = client.Handshake(ctx, toClient)
			require.NoError(t, err)
		}
	}

	require.True(t, client.Active())
	require.True(t, server.Active())
}

// fixture wires a head unit messenger against a device-side messenger
// over a pipe, with the record layer already established. Services
// under test attach to the head unit side; tests drive the device
// side.
type fixture struct {
	t   *testing.T
	hu  *messenger.Messenger
	dev *messenger.Messenger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	huEnd, devEnd := transport.Pipe()

	huCr, err := cryptor.NewTLS(cryptor.Config{Role: cryptor.RoleClient})
	require.NoError(t, err)
	devCr, err := cryptor.NewTLS(cryptor.Config{Role: cryptor.RoleServer})
	require.NoError(t, err)
	establish(t, huCr, devCr)

	hu, err := messenger.New(messenger.Config{Transport: huEnd, Cryptor: huCr})
	require.NoError(t, err)
	require.NoError(t, hu.Start())

	dev, err := messenger.New(messenger.Config{Transport: devEnd, Cryptor: devCr})
	require.NoError(t, err)
	require.NoError(t, dev.Start())

	t.Cleanup(func() {
		hu.Stop()
		dev.Stop()
		huEnd.Close()
		devEnd.Close()
		huCr.Deinit()
		devCr.Deinit()
	})
	return &fixture{t: t, hu: hu, dev: dev}
}

// send transmits a message from the device side.
func (f *fixture) send(ch wire.ChannelID, msgType wire.MessageType, body any, control bool) {
	f.t.Helper()

	msg, err := wire.NewMessage(ch, msgType, body)
	require.NoError(f.t, err)
	msg.Encrypted = true
	msg.Control = control

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(f.t, f.dev.Send(ctx, msg))
}

// receive returns the next message the device sees on the channel.
func (f *fixture) receive(ch wire.ChannelID) *wire.Message {
	f.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	msg, err := f.dev.Receive(ctx, ch)
	require.NoError(f.t, err)
	return msg
}

// tryReceive returns nil when no message arrives in time.
func (f *fixture) tryReceive(ch wire.ChannelID, wait time.Duration) *wire.Message {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	msg, err := f.dev.Receive(ctx, ch)
	if err != nil {
		return nil
	}
	return msg
}

// openChannel runs the open handshake and asserts the reported status.
func (f *fixture) openChannel(ch wire.ChannelID, want wire.Status) {
	f.t.Helper()

	f.send(ch, wire.MsgChannelOpenRequest, wire.ChannelOpenRequest{Priority: 1, Channel: ch}, true)
	msg := f.receive(ch)
	require.Equal(f.t, wire.MsgChannelOpenResponse, msg.Type)
	assert.True(f.t, msg.Control)

	var resp wire.ChannelOpenResponse
	require.NoError(f.t, msg.Decode(&resp))
	require.Equal(f.t, want, resp.Status)
}
