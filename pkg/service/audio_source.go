package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// AudioSource serves the microphone channel. The device opens and
// closes the capture stream; while open, captured frames are pumped to
// it as timestamped media payloads.
type AudioSource struct {
	ch     *channel
	config wire.AudioConfig
	input  AudioInput

	mu        sync.Mutex
	open      bool
	sessionID int32
}

var _ session.Service = (*AudioSource)(nil)

// NewAudioSource creates the microphone source.
func NewAudioSource(m *messenger.Messenger, config wire.AudioConfig, input AudioInput, opts Options) *AudioSource {
	return &AudioSource{
		ch:     newChannel(wire.ChannelMicrophone, m, opts),
		config: config,
		input:  input,
	}
}

// Start begins serving the channel.
func (s *AudioSource) Start() { s.ch.start(s.handleMessage) }

// Stop halts the channel and releases the capture device.
func (s *AudioSource) Stop() {
	s.ch.stop()

	s.mu.Lock()
	open := s.open
	s.open = false
	s.mu.Unlock()

	if open {
		if err := s.input.Stop(); err != nil {
			s.ch.debugLog("microphone stop failed", "err", err)
		}
	}
}

// Pause drops captured frames until Resume.
func (s *AudioSource) Pause() { s.ch.setPaused(true) }

// Resume lets captured frames flow again.
func (s *AudioSource) Resume() { s.ch.setPaused(false) }

// Channel returns the served channel id.
func (s *AudioSource) Channel() wire.ChannelID { return s.ch.id }

// FillFeatures appends the audio source descriptor.
func (s *AudioSource) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel:     s.ch.id,
		AudioSource: &wire.AudioSourceDescriptor{Config: s.config},
	})
}

// OnChannelError reports a channel failure.
func (s *AudioSource) OnChannelError(err error) { s.ch.onError(err) }

func (s *AudioSource) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		s.ch.answerOpen(ctx, msg, wire.StatusOK)
	case wire.MsgMicrophoneOpenRequest:
		s.onMicrophoneOpen(ctx, msg)
	case wire.MsgMediaAckIndication:
		s.onMediaAck(msg)
	default:
		s.ch.debugLog("unexpected audio source message", "type", msg.Type)
	}
}

func (s *AudioSource) onMicrophoneOpen(ctx context.Context, msg *wire.Message) {
	var req wire.MicrophoneOpenRequest
	if err := msg.Decode(&req); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("microphone request", "open", req.Open, "maxUnacked", req.MaxUnacked)

	if req.Open {
		s.openMicrophone(ctx)
	} else {
		s.closeMicrophone(ctx)
	}
}

// openMicrophone starts capture and assigns the next capture session
// id. A busy or failing microphone is refused with the unsolicited
// status.
func (s *AudioSource) openMicrophone(ctx context.Context) {
	s.mu.Lock()
	if s.open {
		sid := s.sessionID
		s.mu.Unlock()
		s.respondOpen(ctx, wire.StatusUnsolicited, sid)
		return
	}
	s.mu.Unlock()

	frames, err := s.startCapture()
	if err != nil {
		s.ch.logError(fmt.Errorf("microphone open failed: %w", err))
		s.respondOpen(ctx, wire.StatusUnsolicited, 0)
		return
	}

	s.mu.Lock()
	s.open = true
	s.sessionID++
	sid := s.sessionID
	s.mu.Unlock()

	s.respondOpen(ctx, wire.StatusOK, sid)
	go s.pump(ctx, frames)
}

func (s *AudioSource) startCapture() (<-chan AudioFrame, error) {
	if err := s.input.Open(s.config); err != nil {
		return nil, err
	}
	frames, err := s.input.Start()
	if err != nil {
		_ = s.input.Stop()
		return nil, err
	}
	return frames, nil
}

func (s *AudioSource) closeMicrophone(ctx context.Context) {
	s.mu.Lock()
	open := s.open
	s.open = false
	sid := s.sessionID
	s.mu.Unlock()

	if open {
		if err := s.input.Stop(); err != nil {
			s.ch.debugLog("microphone stop failed", "err", err)
		}
	}
	s.respondOpen(ctx, wire.StatusOK, sid)
}

func (s *AudioSource) respondOpen(ctx context.Context, status wire.Status, sid int32) {
	if err := s.ch.send(ctx, wire.MsgMicrophoneOpenResponse, wire.MicrophoneOpenResponse{
		Status:    status,
		SessionID: sid,
	}); err != nil {
		s.ch.sendError(err)
	}
}

// pump forwards captured frames until capture stops or the channel
// winds down.
func (s *AudioSource) pump(ctx context.Context, frames <-chan AudioFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if s.ch.isPaused() {
				continue
			}
			if err := s.ch.send(ctx, wire.MsgMediaDataWithTimestamp, wire.MediaDataWithTimestamp{
				Timestamp: frame.Timestamp,
				Data:      frame.Data,
			}); err != nil {
				s.ch.sendError(err)
				return
			}
		}
	}
}

func (s *AudioSource) onMediaAck(msg *wire.Message) {
	var ack wire.MediaAckIndication
	if err := msg.Decode(&ack); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("capture ack", "session", ack.SessionID, "count", ack.Count)
}
