package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Options carries the cross-cutting collaborators shared by every
// service of a session.
type Options struct {
	// SessionID tags protocol log events.
	SessionID string

	// EventLog receives protocol events (optional).
	EventLog log.Logger

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// channel is the shared plumbing of a projection service: the messenger
// handle for one channel id and the receive loop between start and
// stop. Handlers run on the loop goroutine, one message at a time.
type channel struct {
	id        wire.ChannelID
	messenger *messenger.Messenger
	sessionID string
	eventLog  log.Logger
	logger    *slog.Logger

	paused atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func newChannel(id wire.ChannelID, m *messenger.Messenger, opts Options) *channel {
	eventLog := opts.EventLog
	if eventLog == nil {
		eventLog = log.NoopLogger{}
	}
	return &channel{
		id:        id,
		messenger: m,
		sessionID: opts.SessionID,
		eventLog:  eventLog,
		logger:    opts.Logger,
	}
}

// start spawns the receive loop. A channel that was stopped does not
// start again.
func (c *channel) start(handle func(ctx context.Context, msg *wire.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.receiveLoop(ctx, c.done, handle)
}

// stop cancels the receive loop and waits for it to drain, including
// any handler currently running on it. Idempotent.
func (c *channel) stop() {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *channel) receiveLoop(ctx context.Context, done chan struct{}, handle func(ctx context.Context, msg *wire.Message)) {
	defer close(done)
	for {
		msg, err := c.messenger.Receive(ctx, c.id)
		if err != nil {
			c.onError(err)
			return
		}
		handle(ctx, msg)
	}
}

// setPaused flips the pause flag checked by event producers.
func (c *channel) setPaused(paused bool) {
	c.paused.Store(paused)
}

func (c *channel) isPaused() bool {
	return c.paused.Load()
}

// answerOpen replies to a channel open request with the given status.
func (c *channel) answerOpen(ctx context.Context, msg *wire.Message, status wire.Status) {
	var req wire.ChannelOpenRequest
	if err := msg.Decode(&req); err != nil {
		c.logError(err)
		return
	}
	c.debugLog("channel open", "channel", c.id, "priority", req.Priority, "status", status)

	if err := c.sendControl(ctx, wire.MsgChannelOpenResponse, wire.ChannelOpenResponse{Status: status}); err != nil {
		c.sendError(err)
	}
}

// send transmits an encrypted service message on the channel.
func (c *channel) send(ctx context.Context, msgType wire.MessageType, body any) error {
	msg, err := wire.NewMessage(c.id, msgType, body)
	if err != nil {
		return err
	}
	msg.Encrypted = true
	return c.messenger.Send(ctx, msg)
}

// sendControl transmits an encrypted control-flagged message on the
// channel, used for the open handshake.
func (c *channel) sendControl(ctx context.Context, msgType wire.MessageType, body any) error {
	msg, err := wire.NewMessage(c.id, msgType, body)
	if err != nil {
		return err
	}
	msg.Encrypted = true
	msg.Control = true
	return c.messenger.Send(ctx, msg)
}

// sendError reports a failed send. An aborted messenger is a normal
// wind-down, everything else is a channel fault.
func (c *channel) sendError(err error) {
	if messenger.IsAborted(err) || errors.Is(err, context.Canceled) {
		c.debugLog("send aborted", "channel", c.id)
		return
	}
	c.logError(err)
}

// onError handles a receive loop failure.
func (c *channel) onError(err error) {
	if messenger.IsAborted(err) || errors.Is(err, context.Canceled) {
		c.debugLog("channel closed", "channel", c.id)
		return
	}
	c.logError(err)
}

func (c *channel) logError(err error) {
	if c.logger != nil {
		c.logger.Error("service channel error", "channel", c.id, "err", err)
	}
	id := c.id
	c.eventLog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		Layer:     log.LayerService,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerService,
			Message: err.Error(),
			Aborted: messenger.IsAborted(err),
			Channel: &id,
		},
	})
}

func (c *channel) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// decodeMedia unpacks a media payload in either framing.
func decodeMedia(msg *wire.Message, timestamped bool) (timestamp int64, data []byte, err error) {
	if timestamped {
		var pl wire.MediaDataWithTimestamp
		if err := msg.Decode(&pl); err != nil {
			return 0, nil, err
		}
		return pl.Timestamp, pl.Data, nil
	}
	var pl wire.MediaData
	if err := msg.Decode(&pl); err != nil {
		return 0, nil, err
	}
	return 0, pl.Data, nil
}
