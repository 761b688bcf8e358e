package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Framing constants.
const (
	// FrameHeaderSize is the size of the fixed frame header in bytes:
	// channel id, flags, and the 16-bit payload size.
	FrameHeaderSize = 4

	// FrameTotalSizeLen is the size of the optional total-size field that
	// follows the header on the first frame of a split message.
	FrameTotalSizeLen = 4

	// MaxFramePayloadSize is the maximum payload carried by a single frame.
	// Messages larger than this are split across first/bulk/last frames.
	MaxFramePayloadSize = 16384

	// MaxMessageSize is the maximum size of a reassembled message (16 MB),
	// a hard bound against a corrupt or hostile total-size field.
	MaxMessageSize = 16 << 20

	// MessageTypeSize is the size of the message type id prefix in bytes.
	MessageTypeSize = 2
)

// Framing errors.
var (
	// ErrFrameTruncated indicates the frame was cut short mid-header or
	// mid-payload.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrFrameTooLarge indicates a frame or reassembled message exceeds the
	// allowed size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrMessageEmpty indicates an attempt to send a message with no payload.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameOrder indicates frames for a channel arrived in an impossible
	// order (bulk or last without first, or first while one is in flight).
	ErrFrameOrder = errors.New("unexpected frame order")
)

// FrameKind describes how a frame relates to its message.
type FrameKind uint8

const (
	// FrameFirst is the first frame of a split message. It is followed by
	// the 32-bit total message size.
	FrameFirst FrameKind = 1

	// FrameLast is the final frame of a split message.
	FrameLast FrameKind = 2

	// FrameBulk carries a complete message in a single frame.
	FrameBulk FrameKind = 3

	// FrameMiddle is an interior frame of a split message.
	FrameMiddle FrameKind = 0
)

// String returns the frame kind name.
func (k FrameKind) String() string {
	switch k {
	case FrameFirst:
		return "FIRST"
	case FrameMiddle:
		return "MIDDLE"
	case FrameLast:
		return "LAST"
	case FrameBulk:
		return "BULK"
	default:
		return "UNKNOWN"
	}
}

// Frame flag bits beyond the kind.
const (
	frameKindMask uint8 = 0x03

	// FlagControl marks control-channel traffic.
	FlagControl uint8 = 1 << 2

	// FlagEncrypted marks a payload encrypted by the session cryptor.
	FlagEncrypted uint8 = 1 << 3
)

// FrameHeader is the decoded fixed header of one frame.
type FrameHeader struct {
	Channel     ChannelID
	Kind        FrameKind
	Control     bool
	Encrypted   bool
	PayloadSize uint16
}

// EncodeFrameHeader encodes the header into a FrameHeaderSize buffer.
func EncodeFrameHeader(h FrameHeader) [FrameHeaderSize]byte {
	var buf [FrameHeaderSize]byte
	buf[0] = uint8(h.Channel)
	flags := uint8(h.Kind) & frameKindMask
	if h.Control {
		flags |= FlagControl
	}
	if h.Encrypted {
		flags |= FlagEncrypted
	}
	buf[1] = flags
	binary.BigEndian.PutUint16(buf[2:4], h.PayloadSize)
	return buf
}

// DecodeFrameHeader decodes a frame header from buf.
func DecodeFrameHeader(buf []byte) (FrameHeader, error) {
	if len(buf) < FrameHeaderSize {
		return FrameHeader{}, fmt.Errorf("%w: header %d bytes", ErrFrameTruncated, len(buf))
	}
	flags := buf[1]
	return FrameHeader{
		Channel:     ChannelID(buf[0]),
		Kind:        FrameKind(flags & frameKindMask),
		Control:     flags&FlagControl != 0,
		Encrypted:   flags&FlagEncrypted != 0,
		PayloadSize: binary.BigEndian.Uint16(buf[2:4]),
	}, nil
}

// MessageType identifies a message within its channel's sub-protocol.
type MessageType uint16

// String returns the type id in hex. Ids above 0x8000 are channel-specific;
// the owning channel gives them meaning.
func (t MessageType) String() string {
	return fmt.Sprintf("0x%04X", uint16(t))
}

// Put writes the type id into the first MessageTypeSize bytes of buf.
func (t MessageType) Put(buf []byte) {
	binary.BigEndian.PutUint16(buf[:MessageTypeSize], uint16(t))
}

// PeekMessageType reads the message type id from a complete payload.
func PeekMessageType(payload []byte) (MessageType, error) {
	if len(payload) < MessageTypeSize {
		return 0, fmt.Errorf("%w: payload %d bytes", ErrFrameTruncated, len(payload))
	}
	return MessageType(binary.BigEndian.Uint16(payload[:MessageTypeSize])), nil
}

// Message is one complete, reassembled protocol message.
type Message struct {
	Channel   ChannelID
	Type      MessageType
	Body      []byte
	Encrypted bool

	// Control marks messages of the channel management namespace. The
	// flag travels in the frame header; receivers rely on the type id
	// instead.
	Control bool
}

// NewMessage builds a message for the given channel from a typed body.
func NewMessage(channel ChannelID, msgType MessageType, body any) (*Message, error) {
	data, err := Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s body: %w", msgType, err)
	}
	return &Message{Channel: channel, Type: msgType, Body: data}, nil
}

// Decode decodes the message body into v.
func (m *Message) Decode(v any) error {
	return DecodeBody(m.Type, m.Body, v)
}

/// Payload returns the full message payload: type id prefix plus body.
func (m *Message) Payload() []byte {
	payload := make([]byte, MessageTypeSize+len(m.Body))
	m.Type.Put(payload)
	copy(payload[MessageTypeSize:], m.Body)
	return payload
}

// ParseMessage splits a reassembled payload into type id and body.
func ParseMessage(channel ChannelID, payload []byte, encrypted, control bool) (*Message, error) {
	msgType, err := PeekMessageType(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Channel:   channel,
		Type:      msgType,
		Body:      payload[MessageTypeSize:],
		Encrypted: encrypted,
		Control:   control,
	}, nil
}
