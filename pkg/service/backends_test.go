package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprojection/headunit-go/pkg/wire"
)

func TestFileNightSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "night_mode")

	src := FileNightSource{Path: path}
	assert.False(t, src.Night())

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.True(t, src.Night())

	require.NoError(t, os.Remove(path))
	assert.False(t, src.Night())

	assert.False(t, FileNightSource{}.Night(), "empty path means always day")
}

func TestLocalInputBackendInject(t *testing.T) {
	b := NewLocalInputBackend([]uint32{wire.KeycodeEnter}, nil)

	assert.False(t, b.Inject(InputEvent{Button: &ButtonInput{Code: wire.KeycodeEnter}}), "inject before start")

	events, err := b.Start()
	require.NoError(t, err)
	require.True(t, b.Inject(InputEvent{Button: &ButtonInput{Code: wire.KeycodeEnter, Pressed: true}}))

	ev := <-events
	require.NotNil(t, ev.Button)
	assert.True(t, ev.Button.Pressed)

	require.NoError(t, b.Stop())
	assert.False(t, b.Inject(InputEvent{Button: &ButtonInput{Code: wire.KeycodeEnter}}), "inject after stop")

	_, ok := <-events
	assert.False(t, ok, "stream closes on stop")
}

func TestManualLocationSource(t *testing.T) {
	src := &ManualLocationSource{}
	assert.Nil(t, src.Current())

	src.Set(Location{Latitude: 1.5, Longitude: 2.5})
	fix := src.Current()
	require.NotNil(t, fix)
	assert.False(t, fix.Timestamp.IsZero(), "zero timestamp gets stamped")
	assert.Equal(t, 1.5, fix.Latitude)
	assert.Equal(t, 2.5, fix.Longitude)

	// Callers get a copy.
	fix.Latitude = 99
	assert.Equal(t, 1.5, src.Current().Latitude)
}

func TestNullAudioInputStream(t *testing.T) {
	in := &NullAudioInput{}
	require.NoError(t, in.Open(mono16k))

	frames, err := in.Start()
	require.NoError(t, err)

	select {
	case <-frames:
		t.Fatal("null input produced a frame")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, in.Stop())
	_, ok := <-frames
	assert.False(t, ok, "stream closes on stop")
}

func TestStaticBluetoothAdapter(t *testing.T) {
	assert.False(t, StaticBluetoothAdapter{}.Available())

	a := StaticBluetoothAdapter{Addr: "AA:BB:CC:DD:EE:FF"}
	assert.True(t, a.Available())
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", a.Address())
}
