package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// VideoSink serves the video channel: the media flow of an audio sink
// plus the focus sub-protocol. The head unit grants projection focus
// whenever the channel is up and drops it when the stream stops.
type VideoSink struct {
	ch     *channel
	config wire.VideoConfig
	output VideoOutput

	mu        sync.Mutex
	opened    bool
	sessionID int32
}

var _ session.Service = (*VideoSink)(nil)

// NewVideoSink creates the video sink.
func NewVideoSink(m *messenger.Messenger, config wire.VideoConfig, output VideoOutput, opts Options) *VideoSink {
	return &VideoSink{
		ch:        newChannel(wire.ChannelVideo, m, opts),
		config:    config,
		output:    output,
		sessionID: noSession,
	}
}

// Start begins serving the channel.
func (s *VideoSink) Start() { s.ch.start(s.handleMessage) }

// Stop halts the channel and releases the output.
func (s *VideoSink) Stop() {
	s.ch.stop()

	s.mu.Lock()
	opened := s.opened
	s.opened = false
	s.sessionID = noSession
	s.mu.Unlock()

	if opened {
		if err := s.output.Stop(); err != nil {
			s.ch.debugLog("video output stop failed", "err", err)
		}
	}
}

// Pause marks the surface as backgrounded.
func (s *VideoSink) Pause() { s.ch.setPaused(true) }

// Resume marks the surface as foregrounded.
func (s *VideoSink) Resume() { s.ch.setPaused(false) }

// Channel returns the served channel id.
func (s *VideoSink) Channel() wire.ChannelID { return s.ch.id }

// FillFeatures appends the video sink descriptor.
func (s *VideoSink) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel: s.ch.id,
		VideoSink: &wire.VideoSinkDescriptor{
			AvailableWhileInCall: true,
			Configs:              []wire.VideoConfig{s.config},
		},
	})
}

// OnChannelError reports a channel failure.
func (s *VideoSink) OnChannelError(err error) { s.ch.onError(err) }

func (s *VideoSink) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		s.onChannelOpen(ctx, msg)
	case wire.MsgMediaSetupRequest:
		s.onSetup(ctx, msg)
	case wire.MsgVideoFocusRequest:
		s.onFocusRequest(ctx, msg)
	case wire.MsgMediaStartIndication:
		s.onStartIndication(msg)
	case wire.MsgMediaStopIndication:
		s.onStopIndication(ctx)
	case wire.MsgMediaDataWithTimestamp:
		s.onMedia(ctx, msg, true)
	case wire.MsgMediaData:
		s.onMedia(ctx, msg, false)
	default:
		s.ch.debugLog("unexpected video sink message", "type", msg.Type)
	}
}

func (s *VideoSink) onChannelOpen(ctx context.Context, msg *wire.Message) {
	status := wire.StatusOK
	if err := s.openOutput(); err != nil {
		s.ch.logError(fmt.Errorf("video output open failed: %w", err))
		status = wire.StatusInternalError
	}
	s.ch.answerOpen(ctx, msg, status)

	if status.IsOK() {
		s.sendFocus(ctx, wire.VideoFocusFocused, false)
	}
}

func (s *VideoSink) openOutput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}
	if err := s.output.Open(s.config); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *VideoSink) onSetup(ctx context.Context, msg *wire.Message) {
	var req wire.MediaSetupRequest
	if err := msg.Decode(&req); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("video setup", "configuration", req.ConfigurationIndex)

	if err := s.ch.send(ctx, wire.MsgMediaSetupResponse, wire.MediaSetupResponse{
		Status:               wire.MediaSetupReady,
		MaxUnacked:           1,
		ConfigurationIndices: []uint32{0},
	}); err != nil {
		s.ch.sendError(err)
	}
}

func (s *VideoSink) onFocusRequest(ctx context.Context, msg *wire.Message) {
	var req wire.VideoFocusRequest
	if err := msg.Decode(&req); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("video focus request", "display", req.DisplayIndex, "mode", req.FocusMode, "reason", req.FocusReason)

	// The projection owns the display while the channel is up.
	s.sendFocus(ctx, wire.VideoFocusFocused, false)
}

func (s *VideoSink) onStartIndication(msg *wire.Message) {
	var ind wire.MediaStartIndication
	if err := msg.Decode(&ind); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("video start", "session", ind.SessionID)

	s.mu.Lock()
	s.sessionID = ind.SessionID
	s.mu.Unlock()

	if err := s.output.Start(); err != nil {
		s.ch.logError(fmt.Errorf("video output start failed: %w", err))
	}
}

func (s *VideoSink) onStopIndication(ctx context.Context) {
	s.ch.debugLog("video stop")

	s.mu.Lock()
	s.sessionID = noSession
	s.mu.Unlock()

	if err := s.output.Stop(); err != nil {
		s.ch.debugLog("video output stop failed", "err", err)
	}
	s.sendFocus(ctx, wire.VideoFocusUnfocused, true)
}

func (s *VideoSink) onMedia(ctx context.Context, msg *wire.Message, timestamped bool) {
	timestamp, data, err := decodeMedia(msg, timestamped)
	if err != nil {
		s.ch.logError(err)
		return
	}

	s.mu.Lock()
	sid := s.sessionID
	s.mu.Unlock()
	if sid == noSession {
		s.ch.debugLog("video payload without session")
		return
	}

	if err := s.output.Write(timestamp, data); err != nil {
		s.ch.logError(fmt.Errorf("video output write failed: %w", err))
	}
	if err := s.ch.send(ctx, wire.MsgMediaAckIndication, wire.MediaAckIndication{
		SessionID: sid,
		Count:     1,
	}); err != nil {
		s.ch.sendError(err)
	}
}

func (s *VideoSink) sendFocus(ctx context.Context, mode wire.VideoFocusMode, unrequested bool) {
	if err := s.ch.send(ctx, wire.MsgVideoFocusIndication, wire.VideoFocusIndication{
		FocusMode:   mode,
		Unrequested: unrequested,
	}); err != nil {
		s.ch.sendError(err)
	}
}
