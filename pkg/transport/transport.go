package transport

import (
	"context"
	"errors"
	"io"
)

// Transport errors.
var (
	// ErrWaiterStopped is returned by WaitForDevice when the waiter was
	// stopped. Callers treat it as a deliberate abort, not a device
	// failure.
	ErrWaiterStopped = errors.New("device waiter stopped")

	// ErrTransportClosed is returned by reads and writes on a transport
	// that has been closed.
	ErrTransportClosed = errors.New("transport closed")

	// ErrAlreadyDelivered is returned by AccessoryWaiter.Deliver when a
	// previous handle has not been collected yet.
	ErrAlreadyDelivered = errors.New("accessory handle already pending")
)

// Kind identifies the transport family a device arrived on.
type Kind int

const (
	KindTCP Kind = iota
	KindAccessory
	KindPipe
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindAccessory:
		return "accessory"
	case KindPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// Transport is a bidirectional byte stream carrying one projection
// session. Read and Write follow io semantics; Close releases the
// underlying handle and unblocks pending reads and writes.
//
// Implementations must allow one concurrent reader and one concurrent
// writer, and Close must be safe to call at any time and more than
// once.
type Transport interface {
	io.ReadWriteCloser

	// Kind reports the transport family.
	Kind() Kind

	// RemoteAddr describes the device end of the transport, for example
	// "192.168.1.7:40812" or "usb:accessory". It is informational only.
	RemoteAddr() string
}

// DeviceWaiter produces transports for devices as they appear.
//
// WaitForDevice blocks until a device transport is available, the
// context is cancelled, or the waiter is stopped. After Stop, all
// current and future waits resolve with ErrWaiterStopped.
type DeviceWaiter interface {
	WaitForDevice(ctx context.Context) (Transport, error)
	Stop() error
}

// IsAbort reports whether err is a deliberate wait termination rather
// than a device or I/O failure. Connection management uses this to
// decide whether device discovery should resume.
func IsAbort(err error) bool {
	return errors.Is(err, ErrWaiterStopped) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
