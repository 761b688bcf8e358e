package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTCPPort is the wireless projection listen port.
const DefaultTCPPort = 5000

// TCPWaiterConfig configures the wireless projection listener.
type TCPWaiterConfig struct {
	// Port to listen on. Defaults to DefaultTCPPort.
	Port int

	// Address restricts the listener to one local address
	// (empty = all interfaces).
	Address string

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// TCPWaiter listens for wireless projection devices. The phone opens a
// plain TCP connection to the head unit; each accepted connection is
// surfaced as one Transport.
type TCPWaiter struct {
	config   TCPWaiterConfig
	listener *net.TCPListener
	running  atomic.Bool

	// acceptMu serializes WaitForDevice calls so a cancelled wait
	// cannot steal the connection of the next one.
	acceptMu sync.Mutex
}

var _ DeviceWaiter = (*TCPWaiter)(nil)

// NewTCPWaiter opens the listen socket and returns a waiter ready for
// WaitForDevice calls.
func NewTCPWaiter(config TCPWaiterConfig) (*TCPWaiter, error) {
	if config.Port == 0 {
		config.Port = DefaultTCPPort
	}
	if config.Port < 1 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid listen port %d", config.Port)
	}

	addr := net.JoinHostPort(config.Address, fmt.Sprintf("%d", config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	w := &TCPWaiter{
		config:   config,
		listener: listener.(*net.TCPListener),
	}
	w.running.Store(true)
	w.debugLog("tcp waiter listening", "address", listener.Addr().String())
	return w, nil
}

// Addr returns the bound listen address.
func (w *TCPWaiter) Addr() net.Addr {
	return w.listener.Addr()
}

// WaitForDevice accepts the next device connection. Cancelling ctx
// abandons the wait without disturbing the listener; Stop resolves the
// wait with ErrWaiterStopped.
func (w *TCPWaiter) WaitForDevice(ctx context.Context) (Transport, error) {
	w.acceptMu.Lock()
	defer w.acceptMu.Unlock()

	if !w.running.Load() {
		return nil, ErrWaiterStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Clear any deadline a previously cancelled wait left behind.
	_ = w.listener.SetDeadline(time.Time{})

	// Cancelling the context expires the pending accept via a deadline
	// instead of closing the listener, so later waits keep working.
	stop := context.AfterFunc(ctx, func() {
		_ = w.listener.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := w.listener.AcceptTCP()
	if err != nil {
		if !w.running.Load() {
			return nil, ErrWaiterStopped
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("accepting device connection: %w", err)
	}

	_ = conn.SetNoDelay(true)

	w.debugLog("device connected", "remote", conn.RemoteAddr().String())
	return &tcpTransport{conn: conn}, nil
}

// Stop closes the listener. Pending and future waits resolve with
// ErrWaiterStopped. Transports already handed out are unaffected.
func (w *TCPWaiter) Stop() error {
	if !w.running.CompareAndSwap(true, false) {
		return nil
	}
	w.debugLog("tcp waiter stopping")
	return w.listener.Close()
}

func (w *TCPWaiter) debugLog(msg string, args ...any) {
	if w.config.Logger != nil {
		w.config.Logger.Debug(msg, args...)
	}
}

// tcpTransport adapts an accepted TCP connection to the Transport
// interface.
type tcpTransport struct {
	conn   *net.TCPConn
	closed atomic.Bool
}

var _ Transport = (*tcpTransport)(nil)

func (t *tcpTransport) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	if err != nil && t.closed.Load() {
		return n, ErrTransportClosed
	}
	return n, err
}

func (t *tcpTransport) Write(p []byte) (int, error) {
	n, err := t.conn.Write(p)
	if err != nil && t.closed.Load() {
		return n, ErrTransportClosed
	}
	return n, err
}

func (t *tcpTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.conn.Close()
}

func (t *tcpTransport) Kind() Kind {
	return KindTCP
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
