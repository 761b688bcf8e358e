package service

import (
	"context"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Capability is a protocol-only service: it advertises one capability
// channel and answers its open handshake; nothing else flows. The
// media status, notification, and vendor extension channels ride on
// it.
type Capability struct {
	ch   *channel
	fill func(desc *wire.ChannelDescriptor)
}

var _ session.Service = (*Capability)(nil)

// NewCapability creates a capability service for the channel. fill
// overrides the descriptor payload; nil advertises a bare capability.
func NewCapability(m *messenger.Messenger, id wire.ChannelID, fill func(desc *wire.ChannelDescriptor), opts Options) *Capability {
	return &Capability{ch: newChannel(id, m, opts), fill: fill}
}

// Start begins serving the channel.
func (c *Capability) Start() { c.ch.start(c.handleMessage) }

// Stop halts the channel.
func (c *Capability) Stop() { c.ch.stop() }

func (c *Capability) Pause()  {}
func (c *Capability) Resume() {}

// Channel returns the served channel id.
func (c *Capability) Channel() wire.ChannelID { return c.ch.id }

// FillFeatures appends the capability descriptor.
func (c *Capability) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	desc := wire.ChannelDescriptor{Channel: c.ch.id}
	if c.fill != nil {
		c.fill(&desc)
	} else {
		desc.Capability = &wire.CapabilityDescriptor{}
	}
	resp.Channels = append(resp.Channels, desc)
}

// OnChannelError reports a channel failure.
func (c *Capability) OnChannelError(err error) { c.ch.onError(err) }

func (c *Capability) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		c.ch.answerOpen(ctx, msg, wire.StatusOK)
	default:
		c.ch.debugLog("unexpected capability message", "channel", c.ch.id, "type", msg.Type)
	}
}
