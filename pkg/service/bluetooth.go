package service

import (
	"context"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Bluetooth serves the pairing channel. Without a local adapter the
// channel is not advertised.
type Bluetooth struct {
	ch      *channel
	adapter BluetoothAdapter
}

var _ session.Service = (*Bluetooth)(nil)

// NewBluetooth creates the bluetooth service.
func NewBluetooth(m *messenger.Messenger, adapter BluetoothAdapter, opts Options) *Bluetooth {
	return &Bluetooth{
		ch:      newChannel(wire.ChannelBluetooth, m, opts),
		adapter: adapter,
	}
}

// Start begins serving the channel.
func (b *Bluetooth) Start() { b.ch.start(b.handleMessage) }

// Stop halts the channel.
func (b *Bluetooth) Stop() { b.ch.stop() }

func (b *Bluetooth) Pause()  {}
func (b *Bluetooth) Resume() {}

// Channel returns the served channel id.
func (b *Bluetooth) Channel() wire.ChannelID { return b.ch.id }

// FillFeatures advertises the adapter when one exists.
func (b *Bluetooth) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	if !b.adapter.Available() {
		return
	}
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel: b.ch.id,
		Bluetooth: &wire.BluetoothDescriptor{
			AdapterAddress: b.adapter.Address(),
			PairingMethods: []wire.PairingMethod{wire.PairingMethodPIN, wire.PairingMethodNumericComparison},
		},
	})
}

// OnChannelError reports a channel failure.
func (b *Bluetooth) OnChannelError(err error) { b.ch.onError(err) }

func (b *Bluetooth) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		b.ch.answerOpen(ctx, msg, wire.StatusOK)
	case wire.MsgPairingRequest:
		b.onPairingRequest(ctx, msg)
	default:
		b.ch.debugLog("unexpected bluetooth message", "type", msg.Type)
	}
}

func (b *Bluetooth) onPairingRequest(ctx context.Context, msg *wire.Message) {
	var req wire.PairingRequest
	if err := msg.Decode(&req); err != nil {
		b.ch.logError(err)
		return
	}

	// Pairing itself runs out of band; the device only needs to hear
	// that the adapter already knows it.
	b.ch.debugLog("pairing request", "phone", req.PhoneAddress, "method", req.Method)
	if err := b.ch.send(ctx, wire.MsgPairingResponse, wire.PairingResponse{
		AlreadyPaired: true,
		Status:        wire.StatusOK,
	}); err != nil {
		b.ch.sendError(err)
	}
}
