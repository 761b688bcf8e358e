package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// noSession marks an idle media channel.
const noSession int32 = -1

// AudioSink serves one audio sink channel: it advertises the stream
// format, accepts media sessions, and hands received PCM to the audio
// output backend. Every payload is acknowledged so the device keeps
// streaming.
type AudioSink struct {
	ch     *channel
	config wire.AudioConfig
	output AudioOutput

	mu        sync.Mutex
	opened    bool
	sessionID int32
}

var _ session.Service = (*AudioSink)(nil)

// NewAudioSink creates the sink for one audio channel.
func NewAudioSink(m *messenger.Messenger, id wire.ChannelID, config wire.AudioConfig, output AudioOutput, opts Options) *AudioSink {
	return &AudioSink{
		ch:        newChannel(id, m, opts),
		config:    config,
		output:    output,
		sessionID: noSession,
	}
}

// Start begins serving the channel.
func (s *AudioSink) Start() { s.ch.start(s.handleMessage) }

// Stop halts the channel and releases the output.
func (s *AudioSink) Stop() {
	s.ch.stop()

	s.mu.Lock()
	opened := s.opened
	s.opened = false
	s.sessionID = noSession
	s.mu.Unlock()

	if opened {
		if err := s.output.Stop(); err != nil {
			s.ch.debugLog("audio output stop failed", "channel", s.ch.id, "err", err)
		}
	}
}

// Pause suspends playback while the session has the focus elsewhere.
func (s *AudioSink) Pause() {
	s.ch.setPaused(true)

	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()
	if opened {
		if err := s.output.Suspend(); err != nil {
			s.ch.debugLog("audio output suspend failed", "channel", s.ch.id, "err", err)
		}
	}
}

// Resume restarts playback when a media session is live.
func (s *AudioSink) Resume() {
	s.ch.setPaused(false)

	s.mu.Lock()
	live := s.opened && s.sessionID != noSession
	s.mu.Unlock()
	if live {
		if err := s.output.Start(); err != nil {
			s.ch.debugLog("audio output start failed", "channel", s.ch.id, "err", err)
		}
	}
}

// Channel returns the served channel id.
func (s *AudioSink) Channel() wire.ChannelID { return s.ch.id }

// FillFeatures appends the audio sink descriptor.
func (s *AudioSink) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel: s.ch.id,
		AudioSink: &wire.AudioSinkDescriptor{
			AvailableWhileInCall: true,
			Configs:              []wire.AudioConfig{s.config},
		},
	})
}

// OnChannelError reports a channel failure.
func (s *AudioSink) OnChannelError(err error) { s.ch.onError(err) }

func (s *AudioSink) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		s.onChannelOpen(ctx, msg)
	case wire.MsgMediaSetupRequest:
		s.onSetup(ctx, msg)
	case wire.MsgMediaStartIndication:
		s.onStartIndication(msg)
	case wire.MsgMediaStopIndication:
		s.onStopIndication()
	case wire.MsgMediaDataWithTimestamp:
		s.onMedia(ctx, msg, true)
	case wire.MsgMediaData:
		s.onMedia(ctx, msg, false)
	default:
		s.ch.debugLog("unexpected audio sink message", "channel", s.ch.id, "type", msg.Type)
	}
}

func (s *AudioSink) onChannelOpen(ctx context.Context, msg *wire.Message) {
	status := wire.StatusOK
	if err := s.openOutput(); err != nil {
		s.ch.logError(fmt.Errorf("audio output open failed: %w", err))
		status = wire.StatusInternalError
	}
	s.ch.answerOpen(ctx, msg, status)
}

func (s *AudioSink) openOutput() error {
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

func (s *AudioSink) onSetup(ctx context.Context, msg *wire.Message) {
	var req wire.MediaSetupRequest
	if err := msg.Decode(&req); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("media setup", "channel", s.ch.id, "configuration", req.ConfigurationIndex)

	if err := s.ch.send(ctx, wire.MsgMediaSetupResponse, wire.MediaSetupResponse{
		Status:               wire.MediaSetupReady,
		MaxUnacked:           1,
		ConfigurationIndices: []uint32{0},
	}); err != nil {
		s.ch.sendError(err)
	}
}

func (s *AudioSink) onStartIndication(msg *wire.Message) {
	var ind wire.MediaStartIndication
	if err := msg.Decode(&ind); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("media start", "channel", s.ch.id, "session", ind.SessionID)

	s.mu.Lock()
	s.sessionID = ind.SessionID
	s.mu.Unlock()

	if err := s.output.Start(); err != nil {
		s.ch.logError(fmt.Errorf("audio output start failed: %w", err))
	}
}

func (s *AudioSink) onStopIndication() {
	s.ch.debugLog("media stop", "channel", s.ch.id)

	s.mu.Lock()
	s.sessionID = noSession
	s.mu.Unlock()

	if err := s.output.Suspend(); err != nil {
		s.ch.debugLog("audio output suspend failed", "channel", s.ch.id, "err", err)
	}
}

func (s *AudioSink) onMedia(ctx context.Context, msg *wire.Message, timestamped bool) {
	timestamp, data, err := decodeMedia(msg, timestamped)
	if err != nil {
		s.ch.logError(err)
		return
	}

	s.mu.Lock()
	sid := s.sessionID
	s.mu.Unlock()
	if sid == noSession {
		s.ch.debugLog("media payload without session", "channel", s.ch.id)
		return
	}

	if err := s.output.Write(timestamp, data); err != nil {
		s.ch.logError(fmt.Errorf("audio output write failed: %w", err))
	}
	if err := s.ch.send(ctx, wire.MsgMediaAckIndication, wire.MediaAckIndication{
		SessionID: sid,
		Count:     1,
	}); err != nil {
		s.ch.sendError(err)
	}
}
