package wire

// Input channel message type ids.
const (
	MsgInputEventIndication MessageType = 0x8001
	MsgBindingRequest       MessageType = 0x8002
	MsgBindingResponse      MessageType = 0x8003
)

// Key codes for head unit buttons and the rotary controller.
const (
	KeycodeEnter            uint32 = 23
	KeycodeLeft             uint32 = 21
	KeycodeRight            uint32 = 22
	KeycodeUp               uint32 = 19
	KeycodeDown             uint32 = 20
	KeycodeBack             uint32 = 4
	KeycodeHome             uint32 = 3
	KeycodePhone            uint32 = 5
	KeycodeCallEnd          uint32 = 6
	KeycodeMicrophone       uint32 = 84
	KeycodePlay             uint32 = 126
	KeycodePause            uint32 = 127
	KeycodeTogglePlay       uint32 = 85
	KeycodeNext             uint32 = 87
	KeycodePrev             uint32 = 88
	KeycodeNavigation       uint32 = 87652
	KeycodeRotaryController uint32 = 65536
)

// BindingRequest asks the head unit to deliver the listed key codes.
type BindingRequest struct {
	ScanCodes []uint32 `cbor:"1,keyasint"`
}

// BindingResponse accepts or rejects a binding request.
type BindingResponse struct {
	Status Status `cbor:"1,keyasint"`
}

// InputEventIndication reports one local input event. Exactly one of the
// event payloads is set. Timestamps are microseconds.
type InputEventIndication struct {
	Timestamp     int64          `cbor:"1,keyasint"`
	ButtonEvents  []ButtonEvent  `cbor:"2,keyasint,omitempty"`
	TouchEvent    *TouchEvent    `cbor:"3,keyasint,omitempty"`
	RelativeEvent *RelativeEvent `cbor:"4,keyasint,omitempty"`
}

// ButtonEvent is one key press or release.
type ButtonEvent struct {
	ScanCode  uint32 `cbor:"1,keyasint"`
	Down      bool   `cbor:"2,keyasint"`
	Metastate uint32 `cbor:"3,keyasint"`
	LongPress bool   `cbor:"4,keyasint"`
}

// TouchEvent is one touch action with a single pointer.
type TouchEvent struct {
	Action    TouchAction `cbor:"1,keyasint"`
	X         uint32      `cbor:"2,keyasint"`
	Y         uint32      `cbor:"3,keyasint"`
	PointerID uint32      `cbor:"4,keyasint"`
}

// RelativeEvent is one rotary controller step.
type RelativeEvent struct {
	ScanCode uint32 `cbor:"1,keyasint"`
	Delta    int32  `cbor:"2,keyasint"`
}
