package log

import (
	"time"

	"github.com/openprojection/headunit-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the projection session (UUID).
	// Empty for events raised outside any session (discovery, listener).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Transport names the byte pipe the session runs on (tcp, accessory).
	Transport string `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address when known.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Messenger layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session/manager/service state
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the raw byte pipe (frames).
	LayerTransport Layer = 0
	// LayerMessenger is the mux/reassembly layer (complete messages).
	LayerMessenger Layer = 1
	// LayerSession is the control channel protocol engine.
	LayerSession Layer = 2
	// LayerService is a service channel.
	LayerService Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerMessenger:
		return "MESSENGER"
	case LayerSession:
		return "SESSION"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message or frame.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one frame at the transport layer.
type FrameEvent struct {
	// Channel is the frame's channel id.
	Channel wire.ChannelID `cbor:"1,keyasint"`

	// Kind is the frame kind (first/middle/last/bulk).
	Kind wire.FrameKind `cbor:"2,keyasint"`

	// Size is the payload size in bytes (excluding the header).
	Size int `cbor:"3,keyasint"`

	// Encrypted reports the encrypted frame flag.
	Encrypted bool `cbor:"4,keyasint,omitempty"`
}

// MessageEvent captures a complete channel message at the messenger layer.
// Media payload bodies are not copied; Size carries their length.
type MessageEvent struct {
	// Channel is the owning channel id.
	Channel wire.ChannelID `cbor:"1,keyasint"`

	// Type is the message type id within the channel.
	Type wire.MessageType `cbor:"2,keyasint"`

	// Size is the body size in bytes.
	Size int `cbor:"3,keyasint"`

	// Encrypted reports whether the message traveled encrypted.
	Encrypted bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures session and manager lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityManager indicates a connection manager state change.
	StateEntityManager StateEntity = 0
	// StateEntitySession indicates a session state change.
	StateEntitySession StateEntity = 1
	// StateEntityService indicates a service state change.
	StateEntityService StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityManager:
		return "MANAGER"
	case StateEntitySession:
		return "SESSION"
	case StateEntityService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Aborted marks the distinguished cancellation error observed during
	// an intentional stop.
	Aborted bool `cbor:"3,keyasint,omitempty"`

	// Channel is the channel the error belongs to, when attributable.
	Channel *wire.ChannelID `cbor:"4,keyasint,omitempty"`
}
