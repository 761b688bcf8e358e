package wire

// Wifi projection channel message type ids.
const (
	MsgWifiCredentialsRequest  MessageType = 0x8001
	MsgWifiCredentialsResponse MessageType = 0x8002
)

// WifiCredentialsRequest asks for the head unit's access point credentials.
type WifiCredentialsRequest struct{}

// WifiCredentialsResponse hands the phone everything it needs to join the
// head unit's access point.
type WifiCredentialsResponse struct {
	SSID            string          `cbor:"1,keyasint"`
	Key             string          `cbor:"2,keyasint"`
	BSSID           string          `cbor:"3,keyasint,omitempty"`
	SecurityMode    SecurityMode    `cbor:"4,keyasint"`
	AccessPointType AccessPointType `cbor:"5,keyasint"`
}
