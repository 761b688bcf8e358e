package service

import (
	"os"
	"sync"
	"time"

	"github.com/openprojection/headunit-go/pkg/wire"
)

// AudioOutput renders one PCM stream.
type AudioOutput interface {
	// Open prepares the output for the given stream format.
	Open(config wire.AudioConfig) error

	// Start begins playback.
	Start() error

	// Suspend pauses playback without releasing the device.
	Suspend() error

	// Stop releases the device.
	Stop() error

	// Write queues one PCM buffer. timestamp is microseconds, zero for
	// untimestamped payloads.
	Write(timestamp int64, data []byte) error
}

// VideoOutput renders the projected video stream. Stop ends the
// current stream; Start may begin a new one on the open surface.
type VideoOutput interface {
	Open(config wire.VideoConfig) error
	Start() error
	Stop() error
	Write(timestamp int64, data []byte) error
}

// AudioFrame is one captured PCM buffer. Timestamps are microseconds.
type AudioFrame struct {
	Timestamp int64
	Data      []byte
}

// AudioInput captures microphone PCM.
type AudioInput interface {
	// Open prepares the capture device.
	Open(config wire.AudioConfig) error

	// Start begins capture and returns the frame stream. The stream
	// closes on Stop.
	Start() (<-chan AudioFrame, error)

	// Stop ends capture and releases the device.
	Stop() error
}

// ButtonInput is one key press or release.
type ButtonInput struct {
	Code    uint32
	Pressed bool
	Long    bool
}

// RotaryInput is one rotary controller step, positive for clockwise.
type RotaryInput struct {
	Delta int32
}

// TouchInput is one touch action.
type TouchInput struct {
	Action  wire.TouchAction
	X       uint32
	Y       uint32
	Pointer uint32
}

// InputEvent is one local input event. Exactly one field is set.
type InputEvent struct {
	Button *ButtonInput
	Rotary *RotaryInput
	Touch  *TouchInput
}

// InputBackend delivers local input events and describes the input
// hardware.
type InputBackend interface {
	// Start begins event delivery and returns the event stream. The
	// stream closes on Stop.
	Start() (<-chan InputEvent, error)

	// Stop ends event delivery.
	Stop() error

	// SupportedCodes lists the key codes the hardware can produce.
	SupportedCodes() []uint32

	// Touch describes the touch surface, nil without a touchscreen.
	Touch() *wire.TouchConfig
}

// BluetoothAdapter describes the head unit's bluetooth radio.
type BluetoothAdapter interface {
	Available() bool
	Address() string
}

// Location is one GPS fix in natural units. Optional readings are nil
// when the fix does not carry them.
type Location struct {
	Timestamp time.Time
	Latitude  float64   // degrees
	Longitude float64   // degrees
	Accuracy  *float64  // meters
	Altitude  *float64  // meters
	Speed     *float64  // meters per second
	Bearing   *float64  // degrees
}

// LocationSource provides GPS fixes to the sensor service.
type LocationSource interface {
	// Current returns the latest fix, nil when none exists. Repeated
	// calls may return the same fix; consumers dedupe by timestamp.
	Current() *Location
}

// NightSource reports whether the UI should render in night colors.
type NightSource interface {
	Night() bool
}

// NullAudioOutput discards all audio.
type NullAudioOutput struct{}

func (NullAudioOutput) Open(wire.AudioConfig) error { return nil }
func (NullAudioOutput) Start() error                { return nil }
func (NullAudioOutput) Suspend() error              { return nil }
func (NullAudioOutput) Stop() error                 { return nil }
func (NullAudioOutput) Write(int64, []byte) error   { return nil }

// NullVideoOutput discards all video.
type NullVideoOutput struct{}

func (NullVideoOutput) Open(wire.VideoConfig) error { return nil }
func (NullVideoOutput) Start() error                { return nil }
func (NullVideoOutput) Stop() error                 { return nil }
func (NullVideoOutput) Write(int64, []byte) error   { return nil }

// NullAudioInput opens but never produces a frame.
type NullAudioInput struct {
	mu     sync.Mutex
	frames chan AudioFrame
}

func (n *NullAudioInput) Open(wire.AudioConfig) error { return nil }

func (n *NullAudioInput) Start() (<-chan AudioFrame, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames = make(chan AudioFrame)
	return n.frames, nil
}

func (n *NullAudioInput) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.frames != nil {
		close(n.frames)
		n.frames = nil
	}
	return nil
}

// LocalInputBackend is a software input backend fed through Inject.
// The daemon console forwards keyboard commands through it.
type LocalInputBackend struct {
	codes []uint32
	touch *wire.TouchConfig

	mu     sync.Mutex
	events chan InputEvent
}

// NewLocalInputBackend creates a backend advertising the given key
// codes and touch surface (nil for none).
func NewLocalInputBackend(codes []uint32, touch *wire.TouchConfig) *LocalInputBackend {
	return &LocalInputBackend{codes: codes, touch: touch}
}

func (b *LocalInputBackend) Start() (<-chan InputEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = make(chan InputEvent, 16)
	}
	return b.events, nil
}

func (b *LocalInputBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events != nil {
		close(b.events)
		b.events = nil
	}
	return nil
}

func (b *LocalInputBackend) SupportedCodes() []uint32 { return b.codes }

func (b *LocalInputBackend) Touch() *wire.TouchConfig { return b.touch }

// Inject queues one event. It reports false when the backend is not
// started or the queue is full.
func (b *LocalInputBackend) Inject(ev InputEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		return false
	}
	select {
	case b.events <- ev:
		return true
	default:
		return false
	}
}

// StaticBluetoothAdapter is a fixed-address adapter. An empty address
// means no adapter.
type StaticBluetoothAdapter struct {
	Addr string
}

func (a StaticBluetoothAdapter) Available() bool { return a.Addr != "" }
func (a StaticBluetoothAdapter) Address() string { return a.Addr }

// NullLocationSource has no fix.
type NullLocationSource struct{}

func (NullLocationSource) Current() *Location { return nil }

// ManualLocationSource is fed through Set. The daemon console uses it
// to simulate fixes.
type ManualLocationSource struct {
	mu  sync.Mutex
	fix *Location
}

// Set replaces the current fix. A zero timestamp is stamped with the
// current time.
func (s *ManualLocationSource) Set(fix Location) {
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.fix = &fix
	s.mu.Unlock()
}

// Current returns a copy of the latest fix.
func (s *ManualLocationSource) Current() *Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fix == nil {
		return nil
	}
	fix := *s.fix
	return &fix
}

// FileNightSource reports night while the marker file exists.
type FileNightSource struct {
	Path string
}

func (s FileNightSource) Night() bool {
	if s.Path == "" {
		return false
	}
	_, err := os.Stat(s.Path)
	return err == nil
}

var (
	_ AudioOutput      = NullAudioOutput{}
	_ VideoOutput      = NullVideoOutput{}
	_ AudioInput       = (*NullAudioInput)(nil)
	_ InputBackend     = (*LocalInputBackend)(nil)
	_ BluetoothAdapter = StaticBluetoothAdapter{}
	_ LocationSource   = NullLocationSource{}
	_ LocationSource   = (*ManualLocationSource)(nil)
	_ NightSource      = FileNightSource{}
)
