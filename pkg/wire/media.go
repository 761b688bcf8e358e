package wire

// Media channel message type ids, shared by the audio sinks, the video
// sink, and the microphone source. Media payloads use the low id range so
// the hot path is distinguishable without decoding.
const (
	MsgMediaDataWithTimestamp MessageType = 0x0000
	MsgMediaData              MessageType = 0x0001

	MsgMediaSetupRequest      MessageType = 0x8000
	MsgMediaStartIndication   MessageType = 0x8001
	MsgMediaStopIndication    MessageType = 0x8002
	MsgMediaSetupResponse     MessageType = 0x8003
	MsgMediaAckIndication     MessageType = 0x8004
	MsgMicrophoneOpenRequest  MessageType = 0x8005
	MsgMicrophoneOpenResponse MessageType = 0x8006
	MsgVideoFocusRequest      MessageType = 0x8007
	MsgVideoFocusIndication   MessageType = 0x8008
)

// MediaSetupStatus is the readiness verdict in a setup response.
type MediaSetupStatus uint8

const (
	MediaSetupFail  MediaSetupStatus = 1
	MediaSetupReady MediaSetupStatus = 2
)

// String returns the setup status name.
func (s MediaSetupStatus) String() string {
	switch s {
	case MediaSetupFail:
		return "FAIL"
	case MediaSetupReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// MediaSetupRequest selects a stream configuration.
type MediaSetupRequest struct {
	ConfigurationIndex uint32 `cbor:"1,keyasint"`
}

// MediaSetupResponse reports readiness and the accepted configurations.
type MediaSetupResponse struct {
	Status               MediaSetupStatus `cbor:"1,keyasint"`
	MaxUnacked           uint32           `cbor:"2,keyasint"`
	ConfigurationIndices []uint32         `cbor:"3,keyasint"`
}

// MediaStartIndication starts a media session on the channel.
type MediaStartIndication struct {
	SessionID          int32  `cbor:"1,keyasint"`
	ConfigurationIndex uint32 `cbor:"2,keyasint"`
}

// MediaStopIndication ends the current media session.
type MediaStopIndication struct{}

// MediaAckIndication acknowledges received media payloads.
type MediaAckIndication struct {
	SessionID int32  `cbor:"1,keyasint"`
	Count     uint32 `cbor:"2,keyasint"`
}

// MediaDataWithTimestamp is one timestamped media payload. The timestamp
// is microseconds.
type MediaDataWithTimestamp struct {
	Timestamp int64  `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint"`
}

// MediaData is one untimestamped media payload.
type MediaData struct {
	Data []byte `cbor:"1,keyasint"`
}

// MicrophoneOpenRequest opens or closes the microphone stream.
type MicrophoneOpenRequest struct {
	Open       bool  `cbor:"1,keyasint"`
	Anc        bool  `cbor:"2,keyasint"`
	Ec         bool  `cbor:"3,keyasint"`
	MaxUnacked int32 `cbor:"4,keyasint"`
}

// MicrophoneOpenResponse answers a microphone open request.
type MicrophoneOpenResponse struct {
	Status    Status `cbor:"1,keyasint"`
	SessionID int32  `cbor:"2,keyasint"`
}

// VideoFocusRequest asks the head unit to change video focus.
type VideoFocusRequest struct {
	DisplayIndex int32          `cbor:"1,keyasint"`
	FocusMode    VideoFocusMode `cbor:"2,keyasint"`
	FocusReason  int32          `cbor:"3,keyasint"`
}

// VideoFocusIndication reports the current video focus.
type VideoFocusIndication struct {
	FocusMode   VideoFocusMode `cbor:"1,keyasint"`
	Unrequested bool           `cbor:"2,keyasint"`
}
