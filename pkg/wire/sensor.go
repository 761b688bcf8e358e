package wire

// Sensor channel message type ids.
const (
	MsgSensorStartRequest    MessageType = 0x8001
	MsgSensorStartResponse   MessageType = 0x8002
	MsgSensorEventIndication MessageType = 0x8003
)

// SensorStartRequest subscribes the phone to one sensor.
type SensorStartRequest struct {
	Sensor          SensorType `cbor:"1,keyasint"`
	RefreshInterval int64      `cbor:"2,keyasint"`
}

// SensorStartResponse acknowledges a sensor subscription.
type SensorStartResponse struct {
	Status Status `cbor:"1,keyasint"`
}

// SensorEventIndication batches current sensor readings. Only the slices
// for sensors with fresh data are populated.
type SensorEventIndication struct {
	Locations     []LocationData      `cbor:"1,keyasint,omitempty"`
	NightMode     []NightModeData     `cbor:"2,keyasint,omitempty"`
	DrivingStatus []DrivingStatusData `cbor:"3,keyasint,omitempty"`
}

// LocationData is one GPS fix in wire scaling: degrees ×1e7, accuracy
// meters ×1e3, altitude meters ×1e2, speed knots ×1e3, bearing degrees
// ×1e6. Timestamps are microseconds.
type LocationData struct {
	Timestamp   int64  `cbor:"1,keyasint"`
	LatitudeE7  int32  `cbor:"2,keyasint"`
	LongitudeE7 int32  `cbor:"3,keyasint"`
	AccuracyE3  *int32 `cbor:"4,keyasint,omitempty"`
	AltitudeE2  *int32 `cbor:"5,keyasint,omitempty"`
	SpeedE3     *int32 `cbor:"6,keyasint,omitempty"`
	BearingE6   *int32 `cbor:"7,keyasint,omitempty"`
}

// NightModeData reports whether the UI should render in night colors.
type NightModeData struct {
	Night bool `cbor:"1,keyasint"`
}

// DrivingStatusData reports active driving restrictions.
type DrivingStatusData struct {
	Status DrivingStatus `cbor:"1,keyasint"`
}
