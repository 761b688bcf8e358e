package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Ping defaults.
const (
	// DefaultPingInterval is the default interval between pings.
	DefaultPingInterval = time.Second

	// DefaultPongTimeout is the default wait for a pong before the
	// session is declared dead.
	DefaultPongTimeout = 5 * time.Second
)

// ErrPingTimeout reports a missed pong deadline.
var ErrPingTimeout = errors.New("ping timeout")

// PingerConfig configures the keepalive watchdog.
type PingerConfig struct {
	// Interval between pings.
	Interval time.Duration

	// Timeout is how long a ping may stay unanswered.
	Timeout time.Duration

	// PauseStops suspends the watchdog while the session is paused.
	PauseStops bool

	// Logger receives debug output. May be nil.
	Logger *slog.Logger
}

// DefaultPingerConfig returns the default watchdog configuration.
func DefaultPingerConfig() PingerConfig {
	return PingerConfig{
		Interval:   DefaultPingInterval,
		Timeout:    DefaultPongTimeout,
		PauseStops: true,
	}
}

// Pinger drives the session keepalive probes. It sends a ping every
// interval, arms a timeout for the matching pong, and reports a liveness
// failure when the timeout wins. Stopping the watchdog never reports a
// failure.
type Pinger struct {
	config PingerConfig

	sendPing  func(timestamp int64) error
	onFailure func(err error)

	mu       sync.Mutex
	running  bool
	lastPing time.Time
	lastPong time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	pongCh   chan int64
	pauseCh  chan bool
}

// PingerStats is a snapshot of watchdog activity.
type PingerStats struct {
	LastPing time.Time
	LastPong time.Time
}

// NewPinger creates a keepalive watchdog. sendPing transmits one probe
// carrying the given microsecond timestamp; onFailure receives the
// liveness failure when a pong deadline passes or a probe cannot be sent.
func NewPinger(config PingerConfig, sendPing func(timestamp int64) error, onFailure func(err error)) *Pinger {
	if config.Interval <= 0 {
		config.Interval = DefaultPingInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultPongTimeout
	}

	return &Pinger{
		config:    config,
		sendPing:  sendPing,
		onFailure: onFailure,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		pongCh:    make(chan int64, 1),
		pauseCh:   make(chan bool),
	}
}

// Start begins probing. The first ping goes out one interval from now.
func (p *Pinger) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop halts probing without reporting a failure. Safe to call more than
// once.
func (p *Pinger) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// Pong hands a received pong timestamp to the watchdog.
func (p *Pinger) Pong(timestamp int64) {
	select {
	case p.pongCh <- timestamp:
	default:
	}
}

// Pause parks the watchdog: no probes are sent and no timeout can fire
// until Resume.
func (p *Pinger) Pause() {
	p.setPaused(true)
}

// Resume restarts probing after a Pause.
func (p *Pinger) Resume() {
	p.setPaused(false)
}

// Stats returns the most recent probe times.
func (p *Pinger) Stats() PingerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PingerStats{LastPing: p.lastPing, LastPong: p.lastPong}
}

func (p *Pinger) setPaused(paused bool) {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return
	}

	select {
	case p.pauseCh <- paused:
	case <-p.stopCh:
	case <-p.done:
	}
}

// loop alternates between the ping interval and the pong deadline on a
// single timer.
func (p *Pinger) loop(ctx context.Context) {
	defer close(p.done)

	timer := time.NewTimer(p.config.Interval)
	defer timer.Stop()

	outstanding := false
	paused := false
	var sentAt time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-p.stopCh:
			return

		case next := <-p.pauseCh:
			if next == paused {
				continue
			}
			paused = next
			outstanding = false
			stopTimer(timer)
			if !paused {
				timer.Reset(p.config.Interval)
			}

		case ts := <-p.pongCh:
			if !outstanding {
				continue
			}
			outstanding = false
			p.mu.Lock()
			p.lastPong = time.Now()
			p.mu.Unlock()
			p.debugLog("pong received", "timestamp", ts, "latency", time.Since(sentAt))
			stopTimer(timer)
			timer.Reset(p.config.Interval)

		case <-timer.C:
			if paused {
				continue
			}
			if outstanding {
				p.fail(fmt.Errorf("%w: no pong within %v", ErrPingTimeout, p.config.Timeout))
				return
			}
			sentAt = time.Now()
			p.mu.Lock()
			p.lastPing = sentAt
			p.mu.Unlock()
			if err := p.sendPing(sentAt.UnixMicro()); err != nil {
				p.fail(fmt.Errorf("ping send failed: %w", err))
				return
			}
			outstanding = true
			timer.Reset(p.config.Timeout)
		}
	}
}

// fail reports a liveness failure unless the watchdog was stopped first.
func (p *Pinger) fail(err error) {
	select {
	case <-p.stopCh:
		return
	default:
	}

	p.debugLog("liveness failure", "err", err)
	if p.onFailure != nil {
		p.onFailure(err)
	}
}

func (p *Pinger) debugLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}

// stopTimer stops a timer and drains a pending fire.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
