package service

import (
	"log/slog"

	"github.com/openprojection/headunit-go/pkg/config"
	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// Stream formats of the fixed audio channels.
var (
	stereo48k = wire.AudioConfig{SampleRate: 48000, BitDepth: 16, ChannelCount: 2}
	mono16k   = wire.AudioConfig{SampleRate: 16000, BitDepth: 16, ChannelCount: 1}
)

// Backends bundles the hardware collaborators for the factory. Nil
// fields fall back to null implementations, or for input, night mode,
// and bluetooth to backends derived from the configuration.
type Backends struct {
	MediaAudio     AudioOutput
	SpeechAudio    AudioOutput
	TelephonyAudio AudioOutput
	SystemAudio    AudioOutput
	Video          VideoOutput
	Microphone     AudioInput
	Input          InputBackend
	Bluetooth      BluetoothAdapter
	Location       LocationSource
	Night          NightSource
}

// Factory builds the configured service set, one list per session.
type Factory struct {
	config   *config.Config
	backends Backends
	eventLog log.Logger
	logger   *slog.Logger
}

// NewFactory creates a factory for the given configuration.
func NewFactory(cfg *config.Config, backends Backends, eventLog log.Logger, logger *slog.Logger) *Factory {
	if backends.MediaAudio == nil {
		backends.MediaAudio = NullAudioOutput{}
	}
	if backends.SpeechAudio == nil {
		backends.SpeechAudio = NullAudioOutput{}
	}
	if backends.TelephonyAudio == nil {
		backends.TelephonyAudio = NullAudioOutput{}
	}
	if backends.SystemAudio == nil {
		backends.SystemAudio = NullAudioOutput{}
	}
	if backends.Video == nil {
		backends.Video = NullVideoOutput{}
	}
	if backends.Microphone == nil {
		backends.Microphone = &NullAudioInput{}
	}
	if backends.Input == nil {
		backends.Input = InputBackendFromConfig(cfg)
	}
	if backends.Bluetooth == nil {
		backends.Bluetooth = StaticBluetoothAdapter{Addr: cfg.Bluetooth.AdapterAddress}
	}
	if backends.Location == nil {
		backends.Location = NullLocationSource{}
	}
	if backends.Night == nil {
		backends.Night = FileNightSource{Path: cfg.Sensor.NightModeFile}
	}
	return &Factory{config: cfg, backends: backends, eventLog: eventLog, logger: logger}
}

// InputBackendFromConfig builds a software input backend from the input
// and video configuration. Callers that need to inject events, such as
// an interactive console, construct the backend themselves and pass it
// through Backends so they keep the handle.
func InputBackendFromConfig(cfg *config.Config) *LocalInputBackend {
	codes := cfg.Input.SupportedCodes
	if len(codes) == 0 {
		codes = config.DefaultSupportedCodes()
	}
	var touch *wire.TouchConfig
	if cfg.Input.Touchscreen {
		width, height := cfg.Video.Geometry()
		touch = &wire.TouchConfig{Width: uint16(width), Height: uint16(height)}
	}
	return NewLocalInputBackend(codes, touch)
}

// Build composes the service list for one session in advertisement
// order: the enabled audio sinks, the always-on system sink, video,
// microphone, sensors, bluetooth, input, wifi projection, and the
// capability channels.
func (f *Factory) Build(m *messenger.Messenger, sessionID string) []session.Service {
	opts := Options{SessionID: sessionID, EventLog: f.eventLog, Logger: f.logger}

	var services []session.Service
	if f.config.Audio.MusicEnabled {
		services = append(services, NewAudioSink(m, wire.ChannelMediaAudio, stereo48k, f.backends.MediaAudio, opts))
	}
	if f.config.Audio.SpeechEnabled {
		services = append(services, NewAudioSink(m, wire.ChannelSpeechAudio, mono16k, f.backends.SpeechAudio, opts))
	}
	if f.config.Audio.TelephonyEnabled {
		services = append(services, NewAudioSink(m, wire.ChannelTelephonyAudio, mono16k, f.backends.TelephonyAudio, opts))
	}
	services = append(services,
		NewAudioSink(m, wire.ChannelSystemAudio, mono16k, f.backends.SystemAudio, opts),
		NewVideoSink(m, videoSinkConfig(f.config.Video), f.backends.Video, opts),
		NewAudioSource(m, mono16k, f.backends.Microphone, opts),
		NewSensor(m, f.config.Sensor.PollInterval, f.backends.Location, f.backends.Night, opts),
		NewBluetooth(m, f.backends.Bluetooth, opts),
		NewInput(m, f.backends.Input, opts),
		NewWifiProjection(m, AccessPointFromConfig(f.config.Wifi), opts),
		NewCapability(m, wire.ChannelMediaStatus, nil, opts),
		NewCapability(m, wire.ChannelNotification, nil, opts),
		NewCapability(m, wire.ChannelVendorExtension, nil, opts),
	)
	return services
}

// AccessPointFromConfig maps the wifi configuration to an access point
// description.
func AccessPointFromConfig(cfg config.WifiConfig) AccessPoint {
	return AccessPoint{
		SSID:       cfg.SSID,
		Passphrase: cfg.Passphrase,
		BSSID:      cfg.BSSID,
		Dynamic:    cfg.Dynamic,
	}
}

// videoSinkConfig maps the configured surface to the advertised video
// configuration.
func videoSinkConfig(v config.VideoConfig) wire.VideoConfig {
	width, height := v.Geometry()
	return wire.VideoConfig{
		Width:        uint16(width),
		Height:       uint16(height),
		FrameRate:    uint8(v.FPS),
		MarginWidth:  uint16(v.MarginWidth),
		MarginHeight: uint16(v.MarginHeight),
		DPI:          uint16(v.DPI),
	}
}
