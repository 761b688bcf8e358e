package cryptor

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// errBridgeDrained is returned by Read in drain mode when no input is
// queued. Surfaced by Decrypt as ErrTruncatedRecord.
var errBridgeDrained = errors.New("record bridge drained")

// recordBridge is the in-memory net.Conn the TLS engine runs over.
// Bytes the engine writes accumulate in out until the session collects
// them; bytes received from the device are queued in in.
//
// During the handshake the engine goroutine blocks in Read while the
// session relays flights. Once the handshake completes the bridge
// switches to drain mode, where an empty Read fails instead of
// blocking: Decrypt queues all record bytes up front, so a blocking
// read would mean a truncated record. Session tickets are disabled on
// both roles so no post-handshake message can legitimately leave Read
// waiting.
type recordBridge struct {
	mu          sync.Mutex
	in          bytes.Buffer
	out         bytes.Buffer
	closed      bool
	drainMode   bool
	readBlocked bool

	inNotify  chan struct{}
	outNotify chan struct{}
}

var _ net.Conn = (*recordBridge)(nil)

func newRecordBridge() *recordBridge {
	return &recordBridge{
		inNotify:  make(chan struct{}, 1),
		outNotify: make(chan struct{}, 1),
	}
}

// signal posts a wakeup without blocking; a pending token is enough.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (b *recordBridge) Read(p []byte) (int, error) {
	b.mu.Lock()
	for b.in.Len() == 0 {
		if b.closed {
			b.mu.Unlock()
			return 0, io.EOF
		}
		if b.drainMode {
			b.mu.Unlock()
			return 0, errBridgeDrained
		}
		b.readBlocked = true
		signal(b.outNotify)
		b.mu.Unlock()
		<-b.inNotify
		b.mu.Lock()
	}
	b.readBlocked = false
	n, _ := b.in.Read(p)
	b.mu.Unlock()
	return n, nil
}

func (b *recordBridge) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := b.out.Write(p)
	signal(b.outNotify)
	return n, nil
}

// feed queues device bytes for the engine.
func (b *recordBridge) feed(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return io.ErrClosedPipe
	}
	b.in.Write(p)
	signal(b.inNotify)
	return nil
}

// takeOutput removes and returns everything the engine has written.
func (b *recordBridge) takeOutput() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.out.Len() == 0 {
		return nil
	}
	out := make([]byte, b.out.Len())
	b.out.Read(out)
	return out
}

// pendingInput returns the number of queued device bytes the engine has
// not consumed yet.
func (b *recordBridge) pendingInput() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.in.Len()
}

// flightReady reports that the engine flushed a complete flight: it is
// blocked waiting for device bytes, everything fed so far is consumed,
// and output is waiting.
func (b *recordBridge) flightReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readBlocked && b.in.Len() == 0 && b.out.Len() > 0
}

// setDrainMode switches empty reads from blocking to failing.
func (b *recordBridge) setDrainMode() {
	b.mu.Lock()
	b.drainMode = true
	b.mu.Unlock()
	signal(b.inNotify)
}

func (b *recordBridge) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	signal(b.inNotify)
	signal(b.outNotify)
	return nil
}

type bridgeAddr struct{}

func (bridgeAddr) Network() string { return "cryptor" }
func (bridgeAddr) String() string  { return "cryptor" }

func (b *recordBridge) LocalAddr() net.Addr                { return bridgeAddr{} }
func (b *recordBridge) RemoteAddr() net.Addr               { return bridgeAddr{} }
func (b *recordBridge) SetDeadline(t time.Time) error      { return nil }
func (b *recordBridge) SetReadDeadline(t time.Time) error  { return nil }
func (b *recordBridge) SetWriteDeadline(t time.Time) error { return nil }
