package wire

// ChannelID identifies one logical channel multiplexed over the transport.
type ChannelID uint8

const (
	// ChannelControl carries session control traffic: version negotiation,
	// handshake, service discovery, focus, ping, and shutdown.
	ChannelControl ChannelID = 0

	// ChannelInput carries touch, button, and rotary events.
	ChannelInput ChannelID = 1

	// ChannelSensor carries sensor start requests and event batches.
	ChannelSensor ChannelID = 2

	// ChannelVideo carries the projected video stream.
	ChannelVideo ChannelID = 3

	// ChannelMediaAudio carries media playback audio (stereo, 48 kHz).
	ChannelMediaAudio ChannelID = 4

	// ChannelSpeechAudio carries guidance/speech audio (mono, 16 kHz).
	ChannelSpeechAudio ChannelID = 5

	// ChannelSystemAudio carries system sound effects (mono, 16 kHz).
	ChannelSystemAudio ChannelID = 6

	// ChannelTelephonyAudio carries in-call audio (mono, 16 kHz).
	ChannelTelephonyAudio ChannelID = 7

	// ChannelMicrophone carries captured microphone audio to the phone.
	ChannelMicrophone ChannelID = 8

	// ChannelBluetooth carries the pairing sub-protocol.
	ChannelBluetooth ChannelID = 9

	// ChannelWifiProjection carries the wireless credential exchange.
	ChannelWifiProjection ChannelID = 10

	// ChannelMediaStatus is the media playback status capability channel.
	ChannelMediaStatus ChannelID = 11

	// ChannelNotification is the generic notification capability channel.
	ChannelNotification ChannelID = 12

	// ChannelVendorExtension is the vendor extension capability channel.
	ChannelVendorExtension ChannelID = 13

	// ChannelNone is the reserved invalid channel id.
	ChannelNone ChannelID = 255
)

// String returns the channel name.
func (c ChannelID) String() string {
	switch c {
	case ChannelControl:
		return "CONTROL"
	case ChannelInput:
		return "INPUT"
	case ChannelSensor:
		return "SENSOR"
	case ChannelVideo:
		return "VIDEO"
	case ChannelMediaAudio:
		return "MEDIA_AUDIO"
	case ChannelSpeechAudio:
		return "SPEECH_AUDIO"
	case ChannelSystemAudio:
		return "SYSTEM_AUDIO"
	case ChannelTelephonyAudio:
		return "TELEPHONY_AUDIO"
	case ChannelMicrophone:
		return "MICROPHONE"
	case ChannelBluetooth:
		return "BLUETOOTH"
	case ChannelWifiProjection:
		return "WIFI_PROJECTION"
	case ChannelMediaStatus:
		return "MEDIA_STATUS"
	case ChannelNotification:
		return "NOTIFICATION"
	case ChannelVendorExtension:
		return "VENDOR_EXTENSION"
	case ChannelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// AudioFocusRequestType is what the phone asks for on the control channel.
type AudioFocusRequestType uint8

const (
	AudioFocusRequestGain          AudioFocusRequestType = 1
	AudioFocusRequestGainTransient AudioFocusRequestType = 2
	AudioFocusRequestGainNavi      AudioFocusRequestType = 3
	AudioFocusRequestRelease       AudioFocusRequestType = 4
)

// String returns the focus request name.
func (t AudioFocusRequestType) String() string {
	switch t {
	case AudioFocusRequestGain:
		return "GAIN"
	case AudioFocusRequestGainTransient:
		return "GAIN_TRANSIENT"
	case AudioFocusRequestGainNavi:
		return "GAIN_NAVI"
	case AudioFocusRequestRelease:
		return "RELEASE"
	default:
		return "UNKNOWN"
	}
}

// AudioFocusState is the head unit's answer to a focus request.
type AudioFocusState uint8

const (
	AudioFocusStateGain              AudioFocusState = 1
	AudioFocusStateGainTransient     AudioFocusState = 2
	AudioFocusStateLoss              AudioFocusState = 3
	AudioFocusStateLossTransientDuck AudioFocusState = 4
	AudioFocusStateLossTransient     AudioFocusState = 5
	AudioFocusStateGainMediaOnly     AudioFocusState = 6
	AudioFocusStateGainTransientNavi AudioFocusState = 7
)

// String returns the focus state name.
func (s AudioFocusState) String() string {
	switch s {
	case AudioFocusStateGain:
		return "GAIN"
	case AudioFocusStateGainTransient:
		return "GAIN_TRANSIENT"
	case AudioFocusStateLoss:
		return "LOSS"
	case AudioFocusStateLossTransientDuck:
		return "LOSS_TRANSIENT_CAN_DUCK"
	case AudioFocusStateLossTransient:
		return "LOSS_TRANSIENT"
	case AudioFocusStateGainMediaOnly:
		return "GAIN_MEDIA_ONLY"
	case AudioFocusStateGainTransientNavi:
		return "GAIN_TRANSIENT_GUIDANCE_ONLY"
	default:
		return "UNKNOWN"
	}
}

// NavigationFocusType distinguishes native from projected navigation.
type NavigationFocusType uint8

const (
	NavigationFocusNative    NavigationFocusType = 1
	NavigationFocusProjected NavigationFocusType = 2
)

// String returns the navigation focus name.
func (t NavigationFocusType) String() string {
	switch t {
	case NavigationFocusNative:
		return "NATIVE"
	case NavigationFocusProjected:
		return "PROJECTED"
	default:
		return "UNKNOWN"
	}
}

// ByeByeReason explains a device-initiated shutdown.
type ByeByeReason uint8

const (
	ByeByeReasonUserExit ByeByeReason = 1
)

// String returns the reason name.
func (r ByeByeReason) String() string {
	switch r {
	case ByeByeReasonUserExit:
		return "USER_EXIT"
	default:
		return "UNKNOWN"
	}
}

// SensorType identifies one sensor the head unit can report.
type SensorType uint8

const (
	SensorDrivingStatus SensorType = 1
	SensorLocation      SensorType = 10
	SensorNightMode     SensorType = 11
)

// String returns the sensor name.
func (t SensorType) String() string {
	switch t {
	case SensorDrivingStatus:
		return "DRIVING_STATUS"
	case SensorLocation:
		return "LOCATION"
	case SensorNightMode:
		return "NIGHT_MODE"
	default:
		return "UNKNOWN"
	}
}

// DrivingStatus reports current driving restrictions.
type DrivingStatus uint8

const (
	// DrivingStatusUnrestricted imposes no UI restrictions.
	DrivingStatusUnrestricted DrivingStatus = 0
)

// TouchAction describes one touch event.
type TouchAction uint8

const (
	TouchActionPress   TouchAction = 0
	TouchActionRelease TouchAction = 1
	TouchActionDrag    TouchAction = 2
)

// String returns the touch action name.
func (a TouchAction) String() string {
	switch a {
	case TouchActionPress:
		return "PRESS"
	case TouchActionRelease:
		return "RELEASE"
	case TouchActionDrag:
		return "DRAG"
	default:
		return "UNKNOWN"
	}
}

// PairingMethod identifies a bluetooth pairing method the head unit offers.
type PairingMethod uint8

const (
	PairingMethodPIN               PairingMethod = 2
	PairingMethodNumericComparison PairingMethod = 4
)

// String returns the pairing method name.
func (m PairingMethod) String() string {
	switch m {
	case PairingMethodPIN:
		return "PIN"
	case PairingMethodNumericComparison:
		return "NUMERIC_COMPARISON"
	default:
		return "UNKNOWN"
	}
}

// VideoFocusMode is the projected video focus state.
type VideoFocusMode uint8

const (
	VideoFocusFocused   VideoFocusMode = 1
	VideoFocusUnfocused VideoFocusMode = 2
)

// String returns the focus mode name.
func (m VideoFocusMode) String() string {
	switch m {
	case VideoFocusFocused:
		return "FOCUSED"
	case VideoFocusUnfocused:
		return "UNFOCUSED"
	default:
		return "UNKNOWN"
	}
}

// AccessPointType describes how the head unit's wifi AP is provisioned.
type AccessPointType uint8

const (
	AccessPointStatic  AccessPointType = 0
	AccessPointDynamic AccessPointType = 1
)

// String returns the access point type name.
func (t AccessPointType) String() string {
	switch t {
	case AccessPointStatic:
		return "STATIC"
	case AccessPointDynamic:
		return "DYNAMIC"
	default:
		return "UNKNOWN"
	}
}

// SecurityMode is the wifi security mode offered for wireless projection.
type SecurityMode uint8

const (
	SecurityModeOpen         SecurityMode = 0
	SecurityModeWPA2Personal SecurityMode = 8
)

// String returns the security mode name.
func (m SecurityMode) String() string {
	switch m {
	case SecurityModeOpen:
		return "OPEN"
	case SecurityModeWPA2Personal:
		return "WPA2_PERSONAL"
	default:
		return "UNKNOWN"
	}
}
