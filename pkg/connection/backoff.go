package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Discovery retry pacing.
const (
	// InitialRetryDelay is the first delay after a failed device wait.
	InitialRetryDelay = time.Second

	// MaxRetryDelay caps the delay between device wait attempts.
	MaxRetryDelay = 30 * time.Second

	// RetryMultiplier is the factor the delay grows by per failure.
	RetryMultiplier = 2.0

	// RetryJitter is the maximum random extension as a fraction of the
	// base delay.
	RetryJitter = 0.25
)

// Backoff paces discovery retries: the delay doubles on every failed
// wait and snaps back to the initial value once a device is accepted.
type Backoff struct {
	mu       sync.Mutex
	current  time.Duration
	attempts int
	rng      *rand.Rand

	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
}

// NewBackoff returns a backoff with the standard pacing.
func NewBackoff() *Backoff {
	return &Backoff{
		current:    InitialRetryDelay,
		initial:    InitialRetryDelay,
		max:        MaxRetryDelay,
		multiplier: RetryMultiplier,
		jitter:     RetryJitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BackoffConfig overrides the standard pacing. Zero Initial, Max, and
// Multiplier fall back to the defaults; zero Jitter stays zero.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NewBackoffWithConfig returns a backoff with custom pacing.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialRetryDelay
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxRetryDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = RetryMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &Backoff{
		current:    cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the jittered delay for the current attempt and advances
// the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.addJitter(b.current)

	b.attempts++
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

// Peek returns the jittered delay for the current attempt without
// advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addJitter(b.current)
}

// Reset snaps the backoff to its initial pacing. Called when a device
// is accepted.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last
// reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the base delay for the current attempt, without
// jitter.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*b.jitter*b.rng.Float64())
}
