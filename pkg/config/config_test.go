package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Transport.TCPPort = 0 },
			want:   "tcp_port",
		},
		{
			name:   "bad resolution",
			mutate: func(c *Config) { c.Video.Resolution = "4k" },
			want:   "resolution",
		},
		{
			name:   "bad fps",
			mutate: func(c *Config) { c.Video.FPS = 24 },
			want:   "fps",
		},
		{
			name:   "short passphrase",
			mutate: func(c *Config) { c.Wifi.Passphrase = "1234" },
			want:   "passphrase",
		},
		{
			name:   "zero poll interval",
			mutate: func(c *Config) { c.Sensor.PollInterval = 0 },
			want:   "poll_interval",
		},
		{
			name:   "zero ping interval",
			mutate: func(c *Config) { c.Ping.Interval = 0 },
			want:   "ping",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Log.Level = "verbose" },
			want:   "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestGeometry(t *testing.T) {
	tests := []struct {
		resolution string
		width      int
		height     int
	}{
		{Resolution480p, 800, 480},
		{Resolution720p, 1280, 720},
		{Resolution1080p, 1920, 1080},
	}

	for _, tt := range tests {
		v := VideoConfig{Resolution: tt.resolution}
		w, h := v.Geometry()
		if w != tt.width || h != tt.height {
			t.Errorf("%s: geometry = %dx%d, want %dx%d", tt.resolution, w, h, tt.width, tt.height)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headunit.yaml")

	cfg := DefaultConfig()
	cfg.HeadUnit.Name = "TestBench"
	cfg.Transport.TCPPort = 5277
	cfg.Audio.TelephonyEnabled = true
	cfg.Ping.Interval = 2 * time.Second

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.HeadUnit.Name != "TestBench" {
		t.Errorf("name = %q, want TestBench", loaded.HeadUnit.Name)
	}
	if loaded.Transport.TCPPort != 5277 {
		t.Errorf("port = %d, want 5277", loaded.Transport.TCPPort)
	}
	if !loaded.Audio.TelephonyEnabled {
		t.Error("telephony flag lost in round trip")
	}
	if loaded.Ping.Interval != 2*time.Second {
		t.Errorf("ping interval = %v, want 2s", loaded.Ping.Interval)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	partial := "head_unit:\n  make: Other\nvideo:\n  resolution: 720p\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("write partial config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.HeadUnit.Make != "Other" {
		t.Errorf("make = %q, want Other", loaded.HeadUnit.Make)
	}
	if loaded.Video.Resolution != Resolution720p {
		t.Errorf("resolution = %q, want 720p", loaded.Video.Resolution)
	}
	// Fields absent from the file keep package defaults
	if loaded.Transport.TCPPort != 5000 {
		t.Errorf("port = %d, want default 5000", loaded.Transport.TCPPort)
	}
	if loaded.Sensor.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want default 250ms", loaded.Sensor.PollInterval)
	}
}
