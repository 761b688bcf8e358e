package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffSequence(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        500 * time.Millisecond,
		Multiplier: 2.0,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}
	for i, exp := range want {
		assert.Equal(t, exp, b.Next(), "attempt %d", i)
	}
	assert.Equal(t, len(want), b.Attempts())
}

func TestBackoffJitterRange(t *testing.T) {
	b := NewBackoff()

	low := InitialRetryDelay
	high := time.Duration(float64(InitialRetryDelay) * (1 + RetryJitter))
	varied := false
	first := b.Peek()
	for i := 0; i < 32; i++ {
		d := b.Peek()
		assert.GreaterOrEqual(t, d, low)
		assert.LessOrEqual(t, d, high)
		if d != first {
			varied = true
		}
	}
	assert.True(t, varied, "jitter should vary between samples")
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff()
	for i := 0; i < 4; i++ {
		b.Next()
	}
	assert.Greater(t, b.Current(), InitialRetryDelay)

	b.Reset()
	assert.Equal(t, InitialRetryDelay, b.Current())
	assert.Equal(t, 0, b.Attempts())
}

func TestBackoffDefaultsFillZeroConfig(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{})
	assert.Equal(t, InitialRetryDelay, b.Current())
	// Zero jitter stays zero: delays are deterministic.
	assert.Equal(t, InitialRetryDelay, b.Peek())
}
