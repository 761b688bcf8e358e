// Package config defines the head unit's static configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openprojection/headunit-go/pkg/wire"
)

// Video resolution presets.
const (
	Resolution480p  = "480p"
	Resolution720p  = "720p"
	Resolution1080p = "1080p"
)

// Config is the complete head unit configuration.
type Config struct {
	HeadUnit  HeadUnitConfig  `yaml:"head_unit"`
	Transport TransportConfig `yaml:"transport"`
	Audio     AudioConfig     `yaml:"audio"`
	Video     VideoConfig     `yaml:"video"`
	Input     InputConfig     `yaml:"input"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Wifi      WifiConfig      `yaml:"wifi"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Ping      PingConfig      `yaml:"ping"`
	Log       LogConfig       `yaml:"log"`
}

// HeadUnitConfig is the identity advertised in service discovery.
type HeadUnitConfig struct {
	// Make is the vehicle make.
	Make string `yaml:"make"`

	// Model is the vehicle model.
	Model string `yaml:"model"`

	// Year is the model year.
	Year string `yaml:"year"`

	// VehicleID identifies this vehicle to the phone.
	VehicleID string `yaml:"vehicle_id"`

	// Name is the head unit display name.
	Name string `yaml:"name"`

	// SwBuild is the head unit software build.
	SwBuild string `yaml:"sw_build"`

	// SwVersion is the head unit software version.
	SwVersion string `yaml:"sw_version"`

	// CanPlayNativeMedia reports whether native media stays available
	// during projection.
	CanPlayNativeMedia bool `yaml:"can_play_native_media"`

	// HideProjectedClock asks the phone to hide its clock.
	HideProjectedClock bool `yaml:"hide_projected_clock"`
}

// TransportConfig controls how devices reach the head unit.
type TransportConfig struct {
	// TCPPort is the wireless projection listen port.
	TCPPort int `yaml:"tcp_port"`

	// Advertise enables mDNS advertising of the wireless listener.
	Advertise bool `yaml:"advertise"`

	// Interface restricts advertising to one network interface
	// (empty = all interfaces).
	Interface string `yaml:"interface,omitempty"`
}

// AudioConfig selects the optional audio sink channels. The system audio
// sink is always present and has no flag.
type AudioConfig struct {
	// MusicEnabled enables the stereo media audio channel.
	MusicEnabled bool `yaml:"music_enabled"`

	// SpeechEnabled enables the guidance/speech audio channel.
	SpeechEnabled bool `yaml:"speech_enabled"`

	// TelephonyEnabled enables the in-call audio channel.
	TelephonyEnabled bool `yaml:"telephony_enabled"`
}

// VideoConfig describes the projected video surface.
type VideoConfig struct {
	// Resolution is one of 480p, 720p, 1080p.
	Resolution string `yaml:"resolution"`

	// FPS is the target frame rate (30 or 60).
	FPS int `yaml:"fps"`

	// DPI is the reported screen density.
	DPI int `yaml:"dpi"`

	// MarginWidth and MarginHeight shrink the projected area.
	MarginWidth  int `yaml:"margin_width"`
	MarginHeight int `yaml:"margin_height"`
}

// Geometry returns the pixel dimensions for the configured resolution.
func (v VideoConfig) Geometry() (width, height int) {
	switch v.Resolution {
	case Resolution720p:
		return 1280, 720
	case Resolution1080p:
		return 1920, 1080
	default:
		return 800, 480
	}
}

// InputConfig describes the local input hardware.
type InputConfig struct {
	// Touchscreen enables touch event forwarding; the touch surface
	// matches the video geometry.
	Touchscreen bool `yaml:"touchscreen"`

	// SupportedCodes lists the key codes the head unit can deliver.
	// Empty means the default button set.
	SupportedCodes []uint32 `yaml:"supported_codes,omitempty"`
}

// BluetoothConfig describes the head unit bluetooth adapter.
type BluetoothConfig struct {
	// AdapterAddress is the local adapter MAC. Empty means no adapter;
	// the bluetooth channel is then not advertised.
	AdapterAddress string `yaml:"adapter_address"`
}

// WifiConfig describes the head unit's access point for wireless
// projection.
type WifiConfig struct {
	// SSID is the access point name.
	SSID string `yaml:"ssid"`

	// Passphrase is the WPA2 passphrase handed to the phone.
	Passphrase string `yaml:"passphrase"`

	// BSSID is the access point MAC, when fixed.
	BSSID string `yaml:"bssid,omitempty"`

	// Dynamic marks an access point brought up on demand.
	Dynamic bool `yaml:"dynamic"`
}

// SensorConfig controls the sensor service.
type SensorConfig struct {
	// PollInterval is the sensor poll period.
	PollInterval time.Duration `yaml:"poll_interval"`

	// NightModeFile is polled for night mode; the mode is on while the
	// file exists.
	NightModeFile string `yaml:"night_mode_file"`
}

// PingConfig controls the keepalive watchdog.
type PingConfig struct {
	// Interval between pings.
	Interval time.Duration `yaml:"interval"`

	// Timeout after an unanswered ping before the session is declared
	// dead.
	Timeout time.Duration `yaml:"timeout"`

	// PauseStops suspends the watchdog while the session is paused.
	PauseStops bool `yaml:"pause_stops"`
}

// LogConfig controls operational and protocol logging.
type LogConfig struct {
	// Level is the slog level: debug, info, warn, error.
	Level string `yaml:"level"`

	// ProtocolLogPath enables the CBOR protocol event log when set.
	ProtocolLogPath string `yaml:"protocol_log_path,omitempty"`
}

// DefaultConfig returns the configuration the reference head unit ships
// with.
func DefaultConfig() *Config {
	return &Config{
		HeadUnit: HeadUnitConfig{
			Make:               "CubeOne",
			Model:              "Journey",
			Year:               "2024",
			VehicleID:          "2009",
			Name:               "JourneyOS",
			SwBuild:            "2024.10.15",
			SwVersion:          "1",
			CanPlayNativeMedia: true,
		},
		Transport: TransportConfig{
			TCPPort:   5000,
			Advertise: true,
		},
		Audio: AudioConfig{
			MusicEnabled:  true,
			SpeechEnabled: true,
		},
		Video: VideoConfig{
			Resolution: Resolution480p,
			FPS:        30,
			DPI:        140,
		},
		Input: InputConfig{
			Touchscreen: true,
		},
		Wifi: WifiConfig{
			SSID:       "JourneyOS",
			Passphrase: "1234567890",
			Dynamic:    true,
		},
		Sensor: SensorConfig{
			PollInterval:  250 * time.Millisecond,
			NightModeFile: "/tmp/night_mode_enabled",
		},
		Ping: PingConfig{
			Interval:   time.Second,
			Timeout:    5 * time.Second,
			PauseStops: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultSupportedCodes is the button set advertised when the input
// configuration does not name one.
func DefaultSupportedCodes() []uint32 {
	return []uint32{
		wire.KeycodeEnter,
		wire.KeycodeLeft,
		wire.KeycodeRight,
		wire.KeycodeUp,
		wire.KeycodeDown,
		wire.KeycodeBack,
		wire.KeycodeHome,
		wire.KeycodePhone,
		wire.KeycodeCallEnd,
		wire.KeycodeMicrophone,
		wire.KeycodeTogglePlay,
		wire.KeycodeNext,
		wire.KeycodePrev,
		wire.KeycodeRotaryController,
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Transport.TCPPort < 1 || c.Transport.TCPPort > 65535 {
		return fmt.Errorf("invalid tcp_port %d", c.Transport.TCPPort)
	}
	switch c.Video.Resolution {
	case Resolution480p, Resolution720p, Resolution1080p:
	default:
		return fmt.Errorf("invalid resolution %q", c.Video.Resolution)
	}
	if c.Video.FPS != 30 && c.Video.FPS != 60 {
		return fmt.Errorf("invalid fps %d: must be 30 or 60", c.Video.FPS)
	}
	if c.Wifi.SSID != "" {
		if n := len(c.Wifi.Passphrase); n < 8 || n > 63 {
			return fmt.Errorf("wifi passphrase must be 8-63 characters, got %d", n)
		}
	}
	if c.Sensor.PollInterval <= 0 {
		return fmt.Errorf("invalid sensor poll_interval %v", c.Sensor.PollInterval)
	}
	if c.Ping.Interval <= 0 || c.Ping.Timeout <= 0 {
		return fmt.Errorf("ping interval and timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// Load reads a YAML configuration file. Missing fields keep their zero
// values; call Validate afterwards.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
