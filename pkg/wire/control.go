package wire

// Control channel message type ids.
const (
	MsgVersionRequest              MessageType = 0x0001
	MsgVersionResponse             MessageType = 0x0002
	MsgHandshake                   MessageType = 0x0003
	MsgAuthComplete                MessageType = 0x0004
	MsgServiceDiscoveryRequest     MessageType = 0x0005
	MsgServiceDiscoveryResponse    MessageType = 0x0006
	MsgChannelOpenRequest          MessageType = 0x0007
	MsgChannelOpenResponse         MessageType = 0x0008
	MsgPingRequest                 MessageType = 0x000B
	MsgPingResponse                MessageType = 0x000C
	MsgNavigationFocusRequest      MessageType = 0x000D
	MsgNavigationFocusNotification MessageType = 0x000E
	MsgByeByeRequest               MessageType = 0x000F
	MsgByeByeResponse              MessageType = 0x0010
	MsgVoiceSessionNotification    MessageType = 0x0011
	MsgAudioFocusRequest           MessageType = 0x0012
	MsgAudioFocusNotification      MessageType = 0x0013
	MsgBatteryStatusNotification   MessageType = 0x0014
)

// VersionRequest opens a session by announcing the head unit's version.
type VersionRequest struct {
	Major uint16 `cbor:"1,keyasint"`
	Minor uint16 `cbor:"2,keyasint"`
}

// VersionResponse carries the phone's version and the match verdict.
type VersionResponse struct {
	Major  uint16 `cbor:"1,keyasint"`
	Minor  uint16 `cbor:"2,keyasint"`
	Status Status `cbor:"3,keyasint"`
}

// Handshake carries one step of the cryptor handshake in either direction.
type Handshake struct {
	Payload []byte `cbor:"1,keyasint"`
}

// AuthComplete tells the phone the handshake finished.
type AuthComplete struct {
	Status Status `cbor:"1,keyasint"`
}

// ServiceDiscoveryRequest asks the head unit for its service table.
type ServiceDiscoveryRequest struct {
	DeviceName  string `cbor:"1,keyasint,omitempty"`
	DeviceBrand string `cbor:"2,keyasint,omitempty"`
}

// ServiceDiscoveryResponse lists the head unit identity and one channel
// descriptor per configured service.
type ServiceDiscoveryResponse struct {
	Make               string              `cbor:"1,keyasint"`
	Model              string              `cbor:"2,keyasint"`
	Year               string              `cbor:"3,keyasint"`
	VehicleID          string              `cbor:"4,keyasint"`
	HeadunitName       string              `cbor:"5,keyasint"`
	SwBuild            string              `cbor:"6,keyasint"`
	SwVersion          string              `cbor:"7,keyasint"`
	CanPlayNativeMedia bool                `cbor:"8,keyasint"`
	HideProjectedClock bool                `cbor:"9,keyasint"`
	Channels           []ChannelDescriptor `cbor:"10,keyasint"`
}

// ChannelOpenRequest asks a service channel to open.
type ChannelOpenRequest struct {
	Priority int32     `cbor:"1,keyasint"`
	Channel  ChannelID `cbor:"2,keyasint"`
}

// ChannelOpenResponse answers a channel open request.
type ChannelOpenResponse struct {
	Status Status `cbor:"1,keyasint"`
}

// PingRequest is a keepalive probe. Timestamps are microseconds.
type PingRequest struct {
	Timestamp int64 `cbor:"1,keyasint"`
}

// PingResponse echoes the probe timestamp.
type PingResponse struct {
	Timestamp int64 `cbor:"1,keyasint"`
}

// NavigationFocusRequest asks which side renders navigation.
type NavigationFocusRequest struct {
	FocusType NavigationFocusType `cbor:"1,keyasint"`
}

// NavigationFocusNotification grants navigation focus.
type NavigationFocusNotification struct {
	FocusType NavigationFocusType `cbor:"1,keyasint"`
}

// ByeByeRequest initiates session shutdown.
type ByeByeRequest struct {
	Reason ByeByeReason `cbor:"1,keyasint"`
}

// ByeByeResponse acknowledges a shutdown request.
type ByeByeResponse struct{}

// VoiceSessionNotification reports the phone's voice session state.
type VoiceSessionNotification struct {
	Status uint8 `cbor:"1,keyasint"`
}

// AudioFocusRequest asks the head unit for audio focus.
type AudioFocusRequest struct {
	Request AudioFocusRequestType `cbor:"1,keyasint"`
}

// AudioFocusNotification answers an audio focus request.
type AudioFocusNotification struct {
	State AudioFocusState `cbor:"1,keyasint"`
}

// BatteryStatusNotification reports the phone battery level.
type BatteryStatusNotification struct {
	Level    uint8 `cbor:"1,keyasint"`
	Charging bool  `cbor:"2,keyasint"`
}

// ChannelDescriptor advertises one service channel in the discovery
// response. Exactly one of the sub-descriptors is set.
type ChannelDescriptor struct {
	Channel        ChannelID                 `cbor:"1,keyasint"`
	AudioSink      *AudioSinkDescriptor      `cbor:"2,keyasint,omitempty"`
	VideoSink      *VideoSinkDescriptor      `cbor:"3,keyasint,omitempty"`
	AudioSource    *AudioSourceDescriptor    `cbor:"4,keyasint,omitempty"`
	Sensor         *SensorSourceDescriptor   `cbor:"5,keyasint,omitempty"`
	Input          *InputSourceDescriptor    `cbor:"6,keyasint,omitempty"`
	Bluetooth      *BluetoothDescriptor      `cbor:"7,keyasint,omitempty"`
	WifiProjection *WifiProjectionDescriptor `cbor:"8,keyasint,omitempty"`
	Capability     *CapabilityDescriptor     `cbor:"9,keyasint,omitempty"`
}

// AudioConfig describes one PCM stream configuration.
type AudioConfig struct {
	SampleRate   uint32 `cbor:"1,keyasint"`
	BitDepth     uint8  `cbor:"2,keyasint"`
	ChannelCount uint8  `cbor:"3,keyasint"`
}

// AudioSinkDescriptor advertises an audio sink channel.
type AudioSinkDescriptor struct {
	AvailableWhileInCall bool          `cbor:"1,keyasint"`
	Configs              []AudioConfig `cbor:"2,keyasint"`
}

// VideoConfig describes one supported video configuration.
type VideoConfig struct {
	Width        uint16 `cbor:"1,keyasint"`
	Height       uint16 `cbor:"2,keyasint"`
	FrameRate    uint8  `cbor:"3,keyasint"`
	MarginWidth  uint16 `cbor:"4,keyasint"`
	MarginHeight uint16 `cbor:"5,keyasint"`
	DPI          uint16 `cbor:"6,keyasint"`
}

// VideoSinkDescriptor advertises the video sink channel.
type VideoSinkDescriptor struct {
	AvailableWhileInCall bool          `cbor:"1,keyasint"`
	Configs              []VideoConfig `cbor:"2,keyasint"`
}

// AudioSourceDescriptor advertises the microphone source channel.
type AudioSourceDescriptor struct {
	Config AudioConfig `cbor:"1,keyasint"`
}

// SensorSourceDescriptor advertises the available sensors.
type SensorSourceDescriptor struct {
	Sensors []SensorType `cbor:"1,keyasint"`
}

// TouchConfig describes the projected touch surface.
type TouchConfig struct {
	Width  uint16 `cbor:"1,keyasint"`
	Height uint16 `cbor:"2,keyasint"`
}

// InputSourceDescriptor advertises supported input codes and touch surface.
type InputSourceDescriptor struct {
	SupportedCodes []uint32     `cbor:"1,keyasint"`
	Touch          *TouchConfig `cbor:"2,keyasint,omitempty"`
}

// BluetoothDescriptor advertises the head unit bluetooth adapter.
type BluetoothDescriptor struct {
	AdapterAddress string          `cbor:"1,keyasint"`
	PairingMethods []PairingMethod `cbor:"2,keyasint"`
}

// WifiProjectionDescriptor advertises wireless projection availability.
type WifiProjectionDescriptor struct {
	SSID  string `cbor:"1,keyasint"`
	BSSID string `cbor:"2,keyasint,omitempty"`
}

// CapabilityDescriptor advertises a protocol-only capability channel.
type CapabilityDescriptor struct{}
