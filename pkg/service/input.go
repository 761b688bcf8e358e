package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Input serves the input channel: it validates the device's key
// bindings against the backend and forwards local button, rotary, and
// touch events.
type Input struct {
	ch      *channel
	backend InputBackend

	mu      sync.Mutex
	running bool
}

var _ session.Service = (*Input)(nil)

// NewInput creates the input service around a backend.
func NewInput(m *messenger.Messenger, backend InputBackend, opts Options) *Input {
	return &Input{
		ch:      newChannel(wire.ChannelInput, m, opts),
		backend: backend,
	}
}

// Start begins serving the channel.
func (i *Input) Start() { i.ch.start(i.handleMessage) }

// Stop halts the channel and the backend.
func (i *Input) Stop() {
	i.ch.stop()

	i.mu.Lock()
	running := i.running
	i.running = false
	i.mu.Unlock()

	if running {
		if err := i.backend.Stop(); err != nil {
			i.ch.debugLog("input backend stop failed", "err", err)
		}
	}
}

// Pause drops local events until Resume.
func (i *Input) Pause() { i.ch.setPaused(true) }

// Resume lets local events flow again.
func (i *Input) Resume() { i.ch.setPaused(false) }

// Channel returns the served channel id.
func (i *Input) Channel() wire.ChannelID { return i.ch.id }

// FillFeatures appends the input source descriptor.
func (i *Input) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel: i.ch.id,
		Input: &wire.InputSourceDescriptor{
			SupportedCodes: i.backend.SupportedCodes(),
			Touch:          i.backend.Touch(),
		},
	})
}

// OnChannelError reports a channel failure.
func (i *Input) OnChannelError(err error) { i.ch.onError(err) }

func (i *Input) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		i.onChannelOpen(ctx, msg)
	case wire.MsgBindingRequest:
		i.onBindingRequest(ctx, msg)
	default:
		i.ch.debugLog("unexpected input message", "type", msg.Type)
	}
}

func (i *Input) onChannelOpen(ctx context.Context, msg *wire.Message) {
	events, err := i.startBackend()
	if err != nil {
		i.ch.logError(fmt.Errorf("input backend start failed: %w", err))
		i.ch.answerOpen(ctx, msg, wire.StatusInternalError)
		return
	}
	i.ch.answerOpen(ctx, msg, wire.StatusOK)
	if events != nil {
		go i.pump(ctx, events)
	}
}

func (i *Input) startBackend() (<-chan InputEvent, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		return nil, nil
	}
	events, err := i.backend.Start()
	if err != nil {
		return nil, err
	}
	i.running = true
	return events, nil
}

// onBindingRequest accepts a binding only when the backend serves
// every requested code.
func (i *Input) onBindingRequest(ctx context.Context, msg *wire.Message) {
	var req wire.BindingRequest
	if err := msg.Decode(&req); err != nil {
		i.ch.logError(err)
		return
	}

	supported := make(map[uint32]bool)
	for _, code := range i.backend.SupportedCodes() {
		supported[code] = true
	}

	status := wire.StatusOK
	for _, code := range req.ScanCodes {
		if !supported[code] {
			status = wire.StatusUnsolicited
			break
		}
	}
	i.ch.debugLog("binding request", "codes", len(req.ScanCodes), "status", status)

	if err := i.ch.send(ctx, wire.MsgBindingResponse, wire.BindingResponse{Status: status}); err != nil {
		i.ch.sendError(err)
	}
}

// pump forwards backend events until the backend or the channel stops.
func (i *Input) pump(ctx context.Context, events <-chan InputEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if i.ch.isPaused() {
				continue
			}
			i.sendEvent(ctx, ev)
		}
	}
}

func (i *Input) sendEvent(ctx context.Context, ev InputEvent) {
	ind := wire.InputEventIndication{Timestamp: time.Now().UnixMicro()}
	switch {
	case ev.Button != nil:
		ind.ButtonEvents = []wire.ButtonEvent{{
			ScanCode:  ev.Button.Code,
			Down:      ev.Button.Pressed,
			LongPress: ev.Button.Long,
		}}
	case ev.Rotary != nil:
		ind.RelativeEvent = &wire.RelativeEvent{
			ScanCode: wire.KeycodeRotaryController,
			Delta:    ev.Rotary.Delta,
		}
	case ev.Touch != nil:
		ind.TouchEvent = &wire.TouchEvent{
			Action:    ev.Touch.Action,
			X:         ev.Touch.X,
			Y:         ev.Touch.Y,
			PointerID: ev.Touch.Pointer,
		}
	default:
		return
	}

	if err := i.ch.send(ctx, wire.MsgInputEventIndication, ind); err != nil {
		i.ch.sendError(err)
	}
}
