package wire

// Bluetooth channel message type ids.
const (
	MsgPairingRequest  MessageType = 0x8001
	MsgPairingResponse MessageType = 0x8002
)

// PairingRequest asks the head unit to pair with the phone.
type PairingRequest struct {
	PhoneAddress string        `cbor:"1,keyasint"`
	Method       PairingMethod `cbor:"2,keyasint"`
}

// PairingResponse reports pairing state.
type PairingResponse struct {
	AlreadyPaired bool   `cbor:"1,keyasint"`
	Status        Status `cbor:"2,keyasint"`
}
