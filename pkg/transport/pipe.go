package transport

import (
	"io"
	"sync/atomic"
)

// Pipe returns a connected in-memory transport pair. Writes on one end
// become reads on the other. Used by tests and the loopback demo; no
// real device is involved.
func Pipe() (Transport, Transport) {
	aRead, bWrite := io.Pipe()
	bRead, aWrite := io.Pipe()

	a := &pipeTransport{name: "pipe:a", read: aRead, write: aWrite}
	b := &pipeTransport{name: "pipe:b", read: bRead, write: bWrite}
	return a, b
}

type pipeTransport struct {
	name   string
	read   *io.PipeReader
	write  *io.PipeWriter
	closed atomic.Bool
}

var _ Transport = (*pipeTransport)(nil)

func (t *pipeTransport) Read(p []byte) (int, error) {
	n, err := t.read.Read(p)
	if err != nil && t.closed.Load() {
		return n, ErrTransportClosed
	}
	return n, err
}

func (t *pipeTransport) Write(p []byte) (int, error) {
	n, err := t.write.Write(p)
	if err != nil && t.closed.Load() {
		return n, ErrTransportClosed
	}
	return n, err
}

// Close tears down both directions. The peer's pending reads return
// io.EOF and its writes io.ErrClosedPipe.
func (t *pipeTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.read.Close()
	t.write.Close()
	return nil
}

func (t *pipeTransport) Kind() Kind {
	return KindPipe
}

func (t *pipeTransport) RemoteAddr() string {
	return t.name
}
