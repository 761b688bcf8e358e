package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPingerConfig(t *testing.T) {
	config := DefaultPingerConfig()
	assert.Equal(t, DefaultPingInterval, config.Interval)
	assert.Equal(t, DefaultPongTimeout, config.Timeout)
	assert.True(t, config.PauseStops)
}

func TestPingerSendsProbes(t *testing.T) {
	var sends atomic.Int32
	p := NewPinger(PingerConfig{Interval: 10 * time.Millisecond, Timeout: time.Second},
		func(timestamp int64) error {
			sends.Add(1)
			// Timestamps are microseconds and must be current.
			assert.InDelta(t, time.Now().UnixMicro(), timestamp, float64(time.Minute.Microseconds()))
			return nil
		},
		func(err error) { t.Errorf("unexpected failure: %v", err) })
	defer p.Stop()

	p.Start(context.Background())

	require.Eventually(t, func() bool { return sends.Load() >= 1 },
		time.Second, 5*time.Millisecond)

	stats := p.Stats()
	assert.False(t, stats.LastPing.IsZero())
}

func TestPingerPongKeepsSessionAlive(t *testing.T) {
	var p *Pinger
	failures := make(chan error, 1)
	p = NewPinger(PingerConfig{Interval: 10 * time.Millisecond, Timeout: 40 * time.Millisecond},
		func(timestamp int64) error {
			// Answer every probe immediately.
			p.Pong(timestamp)
			return nil
		},
		func(err error) { failures <- err })
	defer p.Stop()

	p.Start(context.Background())

	select {
	case err := <-failures:
		t.Fatalf("liveness failure despite prompt pongs: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	stats := p.Stats()
	assert.False(t, stats.LastPong.IsZero())
}

func TestPingerTimeoutReportsFailure(t *testing.T) {
	failures := make(chan error, 1)
	p := NewPinger(PingerConfig{Interval: 10 * time.Millisecond, Timeout: 30 * time.Millisecond},
		func(timestamp int64) error { return nil },
		func(err error) { failures <- err })
	defer p.Stop()

	p.Start(context.Background())

	select {
	case err := <-failures:
		require.ErrorIs(t, err, ErrPingTimeout)
	case <-time.After(time.Second):
		t.Fatal("timeout never reported")
	}
}

func TestPingerLatePongAfterTimeout(t *testing.T) {
	failures := make(chan error, 4)
	var lastSent atomic.Int64
	p := NewPinger(PingerConfig{Interval: 10 * time.Millisecond, Timeout: 30 * time.Millisecond},
		func(timestamp int64) error {
			lastSent.Store(timestamp)
			return nil
		},
		func(err error) { failures <- err })
	defer p.Stop()

	p.Start(context.Background())

	select {
	case <-failures:
	case <-time.After(time.Second):
		t.Fatal("timeout never reported")
	}

	// A pong arriving after the failure must not produce another one.
	p.Pong(lastSent.Load())
	select {
	case err := <-failures:
		t.Fatalf("duplicate failure after late pong: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPingerSendFailureReportsFailure(t *testing.T) {
	sendErr := errors.New("transport gone")
	failures := make(chan error, 1)
	p := NewPinger(PingerConfig{Interval: 10 * time.Millisecond, Timeout: time.Second},
		func(timestamp int64) error { return sendErr },
		func(err error) { failures <- err })
	defer p.Stop()

	p.Start(context.Background())

	select {
	case err := <-failures:
		require.ErrorIs(t, err, sendErr)
	case <-time.After(time.Second):
		t.Fatal("send failure never reported")
	}
}

func TestPingerStopIsSilent(t *testing.T) {
	var sends atomic.Int32
	failed := make(chan error, 1)
	p := NewPinger(PingerConfig{Interval: 10 * time.Millisecond, Timeout: 20 * time.Millisecond},
		func(timestamp int64) error {
			sends.Add(1)
			return nil
		},
		func(err error) { failed <- err })

	p.Start(context.Background())
	require.Eventually(t, func() bool { return sends.Load() >= 1 },
		time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()

	// No failure may surface after Stop, not even for the probe that was
	// outstanding when it was called.
	select {
	case err := <-failed:
		t.Fatalf("failure after stop: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	// Late pongs against a stopped watchdog are dropped.
	p.Pong(time.Now().UnixMicro())
}

func TestPingerPauseParksProbing(t *testing.T) {
	var sends atomic.Int32
	failed := make(chan error, 1)
	p := NewPinger(PingerConfig{Interval: 10 * time.Millisecond, Timeout: 20 * time.Millisecond},
		func(timestamp int64) error {
			sends.Add(1)
			return nil
		},
		func(err error) { failed <- err })
	defer p.Stop()

	p.Start(context.Background())
	p.Pause()
	base := sends.Load()

	// Longer than interval plus timeout: a parked watchdog must neither
	// probe nor declare the session dead.
	time.Sleep(80 * time.Millisecond)
	select {
	case err := <-failed:
		t.Fatalf("failure while paused: %v", err)
	default:
	}
	assert.LessOrEqual(t, sends.Load(), base+1)

	p.Resume()
	require.Eventually(t, func() bool { return sends.Load() > base+1 },
		time.Second, 5*time.Millisecond)
}

func TestPingerPauseBeforeStart(t *testing.T) {
	p := NewPinger(PingerConfig{}, func(int64) error { return nil }, nil)

	// Must not block without a loop to talk to.
	p.Pause()
	p.Resume()
	p.Stop()
}

func TestPingerConfigDefaultsApplied(t *testing.T) {
	p := NewPinger(PingerConfig{}, func(int64) error { return nil }, nil)
	assert.Equal(t, DefaultPingInterval, p.config.Interval)
	assert.Equal(t, DefaultPongTimeout, p.config.Timeout)
}
