package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprojection/headunit-go/pkg/config"
	"github.com/openprojection/headunit-go/pkg/wire"
)

func buildChannels(t *testing.T, cfg *config.Config) []wire.ChannelID {
	t.Helper()

	factory := NewFactory(cfg, Backends{}, nil, nil)
	services := factory.Build(nil, "session-1")

	channels := make([]wire.ChannelID, 0, len(services))
	for _, svc := range services {
		channels = append(channels, svc.Channel())
	}
	return channels
}

func TestFactoryComposition(t *testing.T) {
	channels := buildChannels(t, config.DefaultConfig())

	assert.Equal(t, []wire.ChannelID{
		wire.ChannelMediaAudio,
		wire.ChannelSpeechAudio,
		wire.ChannelSystemAudio,
		wire.ChannelVideo,
		wire.ChannelMicrophone,
		wire.ChannelSensor,
		wire.ChannelBluetooth,
		wire.ChannelInput,
		wire.ChannelWifiProjection,
		wire.ChannelMediaStatus,
		wire.ChannelNotification,
		wire.ChannelVendorExtension,
	}, channels)
}

func TestFactoryAudioToggles(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audio.MusicEnabled = false
	cfg.Audio.SpeechEnabled = false
	cfg.Audio.TelephonyEnabled = true

	channels := buildChannels(t, cfg)
	assert.NotContains(t, channels, wire.ChannelMediaAudio)
	assert.NotContains(t, channels, wire.ChannelSpeechAudio)
	assert.Contains(t, channels, wire.ChannelTelephonyAudio)
	assert.Contains(t, channels, wire.ChannelSystemAudio)
}

func TestFactoryDiscoveryDescriptors(t *testing.T) {
	factory := NewFactory(config.DefaultConfig(), Backends{}, nil, nil)
	services := factory.Build(nil, "session-1")

	var resp wire.ServiceDiscoveryResponse
	for _, svc := range services {
		svc.FillFeatures(&resp)
	}

	// No bluetooth adapter configured: that channel is not advertised.
	require.Len(t, resp.Channels, len(services)-1)

	byChannel := make(map[wire.ChannelID]wire.ChannelDescriptor)
	for _, desc := range resp.Channels {
		byChannel[desc.Channel] = desc
	}

	media := byChannel[wire.ChannelMediaAudio]
	require.NotNil(t, media.AudioSink)
	assert.Equal(t, uint32(48000), media.AudioSink.Configs[0].SampleRate)
	assert.Equal(t, uint8(2), media.AudioSink.Configs[0].ChannelCount)

	speech := byChannel[wire.ChannelSpeechAudio]
	require.NotNil(t, speech.AudioSink)
	assert.Equal(t, uint32(16000), speech.AudioSink.Configs[0].SampleRate)
	assert.Equal(t, uint8(1), speech.AudioSink.Configs[0].ChannelCount)

	video := byChannel[wire.ChannelVideo]
	require.NotNil(t, video.VideoSink)
	assert.Equal(t, uint16(800), video.VideoSink.Configs[0].Width)
	assert.Equal(t, uint16(480), video.VideoSink.Configs[0].Height)
	assert.Equal(t, uint8(30), video.VideoSink.Configs[0].FrameRate)
	assert.Equal(t, uint16(140), video.VideoSink.Configs[0].DPI)

	mic := byChannel[wire.ChannelMicrophone]
	require.NotNil(t, mic.AudioSource)
	assert.Equal(t, uint32(16000), mic.AudioSource.Config.SampleRate)

	input := byChannel[wire.ChannelInput]
	require.NotNil(t, input.Input)
	assert.Equal(t, config.DefaultSupportedCodes(), input.Input.SupportedCodes)
	require.NotNil(t, input.Input.Touch)
	assert.Equal(t, uint16(800), input.Input.Touch.Width)
	assert.Equal(t, uint16(480), input.Input.Touch.Height)

	sensors := byChannel[wire.ChannelSensor]
	require.NotNil(t, sensors.Sensor)
	assert.Len(t, sensors.Sensor.Sensors, 3)

	wifi := byChannel[wire.ChannelWifiProjection]
	require.NotNil(t, wifi.WifiProjection)
	assert.Equal(t, "JourneyOS", wifi.WifiProjection.SSID)

	for _, ch := range []wire.ChannelID{wire.ChannelMediaStatus, wire.ChannelNotification, wire.ChannelVendorExtension} {
		desc, ok := byChannel[ch]
		require.True(t, ok)
		assert.NotNil(t, desc.Capability)
	}
}

func TestFactoryBluetoothFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bluetooth.AdapterAddress = "AA:BB:CC:DD:EE:FF"
	factory := NewFactory(cfg, Backends{}, nil, nil)
	services := factory.Build(nil, "session-1")

	var resp wire.ServiceDiscoveryResponse
	for _, svc := range services {
		svc.FillFeatures(&resp)
	}
	require.Len(t, resp.Channels, len(services))

	var bt *wire.BluetoothDescriptor
	for _, desc := range resp.Channels {
		if desc.Channel == wire.ChannelBluetooth {
			bt = desc.Bluetooth
		}
	}
	require.NotNil(t, bt)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", bt.AdapterAddress)
}

func TestFactoryNoTouchscreen(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.Touchscreen = false
	factory := NewFactory(cfg, Backends{}, nil, nil)
	services := factory.Build(nil, "session-1")

	var resp wire.ServiceDiscoveryResponse
	for _, svc := range services {
		svc.FillFeatures(&resp)
	}
	for _, desc := range resp.Channels {
		if desc.Channel == wire.ChannelInput {
			require.NotNil(t, desc.Input)
			assert.Nil(t, desc.Input.Touch)
		}
	}
}
