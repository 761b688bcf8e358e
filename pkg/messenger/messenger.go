package messenger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openprojection/headunit-go/pkg/cryptor"
	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/transport"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Messenger errors.
var (
	// ErrOperationAborted is returned by Send and Receive calls cut off
	// by Stop. Handlers treat it as part of an intentional teardown, not
	// a failure.
	ErrOperationAborted = errors.New("operation aborted")

	// ErrNotStarted is returned by Send and Receive before Start.
	ErrNotStarted = errors.New("messenger not started")

	// ErrEncryptionUnavailable is returned when an encrypted message is
	// sent or received while the cryptor handshake is not complete.
	ErrEncryptionUnavailable = errors.New("encryption not available")
)

// IsAborted reports whether err originates from an intentional stop.
func IsAborted(err error) bool {
	return errors.Is(err, ErrOperationAborted)
}

// Config configures a Messenger.
type Config struct {
	// Transport carrying the session (required).
	Transport transport.Transport

	// Cryptor for encrypted payloads. May be nil for plaintext-only
	// exchanges; encrypted traffic then fails.
	Cryptor cryptor.Cryptor

	// SessionID tags protocol log events.
	SessionID string

	// EventLog receives protocol events (optional).
	EventLog log.Logger

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// Messenger multiplexes channel messages over one transport.
type Messenger struct {
	config Config

	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	readDone chan struct{}

	// writeMu keeps the frames of one message contiguous per channel.
	writeMu sync.Mutex

	inboxMu sync.Mutex
	inboxes map[wire.ChannelID]*inbox
	termErr error
}

// New creates a messenger over the given transport. Start must be
// called before messages flow.
func New(config Config) (*Messenger, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	return &Messenger{
		config:   config,
		stopCh:   make(chan struct{}),
		readDone: make(chan struct{}),
		inboxes:  make(map[wire.ChannelID]*inbox),
	}, nil
}

// Start launches the read loop. Calling Start twice is an error.
func (m *Messenger) Start() error {
	if m.stopped.Load() {
		return ErrOperationAborted
	}
	if !m.started.CompareAndSwap(false, true) {
		return fmt.Errorf("messenger already started")
	}
	go m.readLoop()
	return nil
}

// Stop aborts all outstanding and future Send and Receive calls with
// ErrOperationAborted. It does not close the transport; the owner does
// that next, which also releases the read loop. Stop is idempotent and
// never blocks.
func (m *Messenger) Stop() {
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		close(m.stopCh)
		m.debugLog("messenger stopped")
	})
}

// Send splits the message into frames and writes them to the transport.
// Cancellation is checked between frames; a blocked write is released
// by the transport closing during stop.
func (m *Messenger) Send(ctx context.Context, msg *wire.Message) error {
	if m.stopped.Load() {
		return ErrOperationAborted
	}
	if !m.started.Load() {
		return ErrNotStarted
	}

	payload := msg.Payload()
	if len(payload) > wire.MaxMessageSize {
		return fmt.Errorf("%w: message payload %d bytes", wire.ErrFrameTooLarge, len(payload))
	}
	if msg.Encrypted && !m.encryptionReady() {
		return ErrEncryptionUnavailable
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	total := len(payload)
	single := total <= wire.MaxFramePayloadSize
	for offset := 0; offset < total || offset == 0; {
		if m.stopped.Load() {
			return ErrOperationAborted
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n := total - offset
		if n > wire.MaxFramePayloadSize {
			n = wire.MaxFramePayloadSize
		}
		chunk := payload[offset : offset+n]

		var kind wire.FrameKind
		switch {
		case single:
			kind = wire.FrameBulk
		case offset == 0:
			kind = wire.FrameFirst
		case offset+n == total:
			kind = wire.FrameLast
		default:
			kind = wire.FrameMiddle
		}

		framePayload := chunk
		if msg.Encrypted {
			encrypted, err := m.config.Cryptor.Encrypt(chunk)
			if err != nil {
				return fmt.Errorf("encrypting frame: %w", err)
			}
			framePayload = encrypted
		}

		if err := m.writeFrame(wire.FrameHeader{
			Channel:     msg.Channel,
			Kind:        kind,
			Control:     msg.Control,
			Encrypted:   msg.Encrypted,
			PayloadSize: uint16(len(framePayload)),
		}, uint32(total), framePayload); err != nil {
			if m.stopped.Load() {
				return ErrOperationAborted
			}
			return err
		}

		offset += n
		if single {
			break
		}
	}

	m.logMessage(log.DirectionOut, msg)
	return nil
}

// writeFrame writes header, optional total-size field and payload as
// one transport write.
func (m *Messenger) writeFrame(h wire.FrameHeader, total uint32, payload []byte) error {
	header := wire.EncodeFrameHeader(h)
	buf := make([]byte, 0, len(header)+wire.FrameTotalSizeLen+len(payload))
	buf = append(buf, header[:]...)
	if h.Kind == wire.FrameFirst {
		var sizeField [wire.FrameTotalSizeLen]byte
		binary.BigEndian.PutUint32(sizeField[:], total)
		buf = append(buf, sizeField[:]...)
	}
	buf = append(buf, payload...)

	if _, err := m.config.Transport.Write(buf); err != nil {
		return fmt.Errorf("writing %s frame on %s: %w", h.Kind, h.Channel, err)
	}
	return nil
}

// Receive returns the next message for the channel. It blocks until a
// message arrives, ctx is cancelled, or the messenger stops. One
// Receive per channel may be outstanding at a time.
func (m *Messenger) Receive(ctx context.Context, channel wire.ChannelID) (*wire.Message, error) {
	if m.stopped.Load() {
		return nil, ErrOperationAborted
	}
	if !m.started.Load() {
		return nil, ErrNotStarted
	}

	ib := m.inboxFor(channel)
	for {
		msg, err, ok := ib.pop()
		if ok {
			return msg, err
		}
		select {
		case <-ib.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.stopCh:
			return nil, ErrOperationAborted
		}
	}
}

func (m *Messenger) inboxFor(channel wire.ChannelID) *inbox {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	ib, ok := m.inboxes[channel]
	if !ok {
		ib = newInbox()
		if m.termErr != nil {
			ib.fail(m.termErr)
		}
		m.inboxes[channel] = ib
	}
	return ib
}

func (m *Messenger) encryptionReady() bool {
	return m.config.Cryptor != nil && m.config.Cryptor.Active()
}

// readLoop reads frames, reassembles messages and feeds the inboxes.
// It exits on the first transport error; during an intentional stop
// that error is expected and swallowed.
func (m *Messenger) readLoop() {
	defer close(m.readDone)

	var hbuf [wire.FrameHeaderSize]byte
	var tbuf [wire.FrameTotalSizeLen]byte
	assemblers := make(map[wire.ChannelID]*assembler)

	for {
		if m.stopped.Load() {
			return
		}

		if _, err := io.ReadFull(m.config.Transport, hbuf[:]); err != nil {
			m.failAll(fmt.Errorf("reading frame header: %w", err))
			return
		}
		h, err := wire.DecodeFrameHeader(hbuf[:])
		if err != nil {
			m.failAll(err)
			return
		}

		var total uint32
		if h.Kind == wire.FrameFirst {
			if _, err := io.ReadFull(m.config.Transport, tbuf[:]); err != nil {
				m.failAll(fmt.Errorf("reading total size: %w", err))
				return
			}
			total = binary.BigEndian.Uint32(tbuf[:])
			if total > wire.MaxMessageSize {
				m.failAll(fmt.Errorf("%w: declared total %d bytes", wire.ErrFrameTooLarge, total))
				return
			}
		}

		payload := make([]byte, int(h.PayloadSize))
		if _, err := io.ReadFull(m.config.Transport, payload); err != nil {
			m.failAll(fmt.Errorf("reading frame payload: %w", err))
			return
		}

		if h.Encrypted {
			if !m.encryptionReady() {
				m.failAll(fmt.Errorf("%w: encrypted frame on %s", ErrEncryptionUnavailable, h.Channel))
				return
			}
			plain, err := m.config.Cryptor.Decrypt(payload)
			if err != nil {
				m.failAll(fmt.Errorf("decrypting frame on %s: %w", h.Channel, err))
				return
			}
			payload = plain
		}

		asm, ok := assemblers[h.Channel]
		if !ok {
			asm = &assembler{}
			assemblers[h.Channel] = asm
		}
		msg, err := asm.add(h, total, payload)
		if err != nil {
			asm.reset()
			m.failChannel(h, err)
			continue
		}
		if msg != nil {
			m.logMessage(log.DirectionIn, msg)
			m.inboxFor(msg.Channel).push(msg)
		}
	}
}

// failAll marks the messenger broken and wakes every receiver with the
// error. New inboxes inherit it.
func (m *Messenger) failAll(err error) {
	if m.stopped.Load() {
		return
	}
	m.debugLog("messenger failed", "error", err)
	m.logError(err, nil)

	m.inboxMu.Lock()
	if m.termErr == nil {
		m.termErr = err
	}
	boxes := make([]*inbox, 0, len(m.inboxes))
	for _, ib := range m.inboxes {
		boxes = append(boxes, ib)
	}
	m.inboxMu.Unlock()

	for _, ib := range boxes {
		ib.fail(err)
	}
}

// failChannel marks one channel broken after a reassembly violation.
// Other channels keep flowing.
func (m *Messenger) failChannel(h wire.FrameHeader, err error) {
	m.debugLog("channel failed", "channel", h.Channel.String(), "error", err)
	m.logError(err, &h)
	m.inboxFor(h.Channel).fail(err)
}

func (m *Messenger) logMessage(dir log.Direction, msg *wire.Message) {
	if m.config.EventLog == nil {
		return
	}
	m.config.EventLog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: m.config.SessionID,
		Direction: dir,
		Layer:     log.LayerMessenger,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			Channel:   msg.Channel,
			Type:      msg.Type,
			Size:      len(msg.Body),
			Encrypted: msg.Encrypted,
		},
	})
}

func (m *Messenger) logError(err error, h *wire.FrameHeader) {
	if m.config.EventLog == nil {
		return
	}
	event := log.Event{
		Timestamp:  time.Now(),
		SessionID:  m.config.SessionID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerMessenger,
		Category:   log.CategoryError,
		Transport:  m.config.Transport.Kind().String(),
		RemoteAddr: m.config.Transport.RemoteAddr(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerMessenger,
			Message: err.Error(),
			Aborted: IsAborted(err),
		},
	}
	if h != nil {
		channel := h.Channel
		event.Error.Channel = &channel
		event.Frame = &log.FrameEvent{
			Channel:   h.Channel,
			Kind:      h.Kind,
			Size:      int(h.PayloadSize),
			Encrypted: h.Encrypted,
		}
	}
	m.config.EventLog.Log(event)
}

func (m *Messenger) debugLog(msg string, args ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, args...)
	}
}
