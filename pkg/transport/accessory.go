package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// AccessoryWaiter surfaces USB accessory devices. The platform layer
// detects accessory-mode attachment and hands the open device handle to
// Deliver; the next WaitForDevice call collects it as a Transport.
//
// At most one handle can be pending. Accessory attachment is a physical
// event, so a second delivery before the first is collected indicates a
// platform bug and is rejected.
type AccessoryWaiter struct {
	logger  *slog.Logger
	pending chan Transport
	stopped chan struct{}
	once    sync.Once
}

var _ DeviceWaiter = (*AccessoryWaiter)(nil)

// NewAccessoryWaiter creates a waiter with no pending device.
func NewAccessoryWaiter(logger *slog.Logger) *AccessoryWaiter {
	return &AccessoryWaiter{
		logger:  logger,
		pending: make(chan Transport, 1),
		stopped: make(chan struct{}),
	}
}

// Deliver hands an attached accessory handle to the waiter. The name
// describes the device node, for example "usb:1-1.4". Returns
// ErrWaiterStopped after Stop and ErrAlreadyDelivered when a previous
// handle has not been collected.
func (w *AccessoryWaiter) Deliver(handle io.ReadWriteCloser, name string) error {
	select {
	case <-w.stopped:
		return ErrWaiterStopped
	default:
	}

	t := newAccessoryTransport(handle, name)
	select {
	case w.pending <- t:
		w.debugLog("accessory delivered", "device", name)
		return nil
	default:
		return ErrAlreadyDelivered
	}
}

// WaitForDevice blocks until a delivered handle is available, ctx is
// cancelled, or the waiter is stopped.
func (w *AccessoryWaiter) WaitForDevice(ctx context.Context) (Transport, error) {
	select {
	case <-w.stopped:
		return nil, ErrWaiterStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	case t := <-w.pending:
		return t, nil
	}
}

// Stop rejects future deliveries and resolves pending waits with
// ErrWaiterStopped. An uncollected handle is closed.
func (w *AccessoryWaiter) Stop() error {
	w.once.Do(func() {
		close(w.stopped)
		select {
		case t := <-w.pending:
			_ = t.Close()
		default:
		}
		w.debugLog("accessory waiter stopped")
	})
	return nil
}

func (w *AccessoryWaiter) debugLog(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}

// accessoryTransport wraps a platform-provided device handle.
type accessoryTransport struct {
	handle io.ReadWriteCloser
	name   string
	closed atomic.Bool
}

var _ Transport = (*accessoryTransport)(nil)

func newAccessoryTransport(handle io.ReadWriteCloser, name string) *accessoryTransport {
	if name == "" {
		name = "usb:accessory"
	}
	return &accessoryTransport{handle: handle, name: name}
}

func (t *accessoryTransport) Read(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrTransportClosed
	}
	return t.handle.Read(p)
}

func (t *accessoryTransport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrTransportClosed
	}
	return t.handle.Write(p)
}

func (t *accessoryTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.handle.Close()
}

func (t *accessoryTransport) Kind() Kind {
	return KindAccessory
}

func (t *accessoryTransport) RemoteAddr() string {
	return t.name
}
