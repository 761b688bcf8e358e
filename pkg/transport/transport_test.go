package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindTCP, "tcp"},
		{KindAccessory, "accessory"},
		{KindPipe, "pipe"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsAbort(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"waiter stopped", ErrWaiterStopped, true},
		{"context canceled", context.Canceled, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped stop", errors.Join(errors.New("wait"), ErrWaiterStopped), true},
		{"io failure", io.ErrUnexpectedEOF, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAbort(tt.err); got != tt.want {
				t.Errorf("IsAbort(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTCPWaiterAcceptsDevice(t *testing.T) {
	w, err := NewTCPWaiter(TCPWaiterConfig{Address: "127.0.0.1", Port: 0})
	if err != nil {
		t.Fatalf("NewTCPWaiter failed: %v", err)
	}
	defer w.Stop()

	type result struct {
		tr  Transport
		err error
	}
	done := make(chan result, 1)
	go func() {
		tr, err := w.WaitForDevice(context.Background())
		done <- result{tr, err}
	}()

	conn, err := net.Dial("tcp", w.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	res := <-done
	if res.err != nil {
		t.Fatalf("WaitForDevice failed: %v", res.err)
	}
	defer res.tr.Close()

	if res.tr.Kind() != KindTCP {
		t.Errorf("Kind() = %v, want %v", res.tr.Kind(), KindTCP)
	}
	if res.tr.RemoteAddr() == "" {
		t.Error("RemoteAddr() is empty")
	}

	// Device-to-headunit direction.
	payload := []byte{0x00, 0x03, 0x00, 0x02, 0xAB, 0xCD}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(res.tr, buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if !bytes.Equal(buf, payload) {
		t.Errorf("read %v, want %v", buf, payload)
	}
}

func TestTCPWaiterContextCancel(t *testing.T) {
	w, err := NewTCPWaiter(TCPWaiterConfig{Address: "127.0.0.1", Port: 0})
	if err != nil {
		t.Fatalf("NewTCPWaiter failed: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForDevice(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WaitForDevice returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForDevice did not return after cancel")
	}

	// The listener must still accept devices for later waits.
	accepted := make(chan error, 1)
	go func() {
		tr, err := w.WaitForDevice(context.Background())
		if tr != nil {
			tr.Close()
		}
		accepted <- err
	}()
	conn, err := net.Dial("tcp", w.Addr().String())
	if err != nil {
		t.Fatalf("Dial after cancel failed: %v", err)
	}
	defer conn.Close()
	if err := <-accepted; err != nil {
		t.Errorf("WaitForDevice after cancel failed: %v", err)
	}
}

func TestTCPWaiterStop(t *testing.T) {
	w, err := NewTCPWaiter(TCPWaiterConfig{Address: "127.0.0.1", Port: 0})
	if err != nil {
		t.Fatalf("NewTCPWaiter failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForDevice(context.Background())
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrWaiterStopped) {
			t.Errorf("WaitForDevice returned %v, want ErrWaiterStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForDevice did not return after Stop")
	}

	// Stop is idempotent and later waits fail immediately.
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
	if _, err := w.WaitForDevice(context.Background()); !errors.Is(err, ErrWaiterStopped) {
		t.Errorf("WaitForDevice after Stop returned %v, want ErrWaiterStopped", err)
	}
}

func TestTCPWaiterRejectsInvalidPort(t *testing.T) {
	if _, err := NewTCPWaiter(TCPWaiterConfig{Port: -1}); err == nil {
		t.Error("NewTCPWaiter accepted negative port")
	}
	if _, err := NewTCPWaiter(TCPWaiterConfig{Port: 70000}); err == nil {
		t.Error("NewTCPWaiter accepted out-of-range port")
	}
}

type closableBuffer struct {
	read  *io.PipeReader
	write *io.PipeWriter
}

func (b *closableBuffer) Read(p []byte) (int, error)  { return b.read.Read(p) }
func (b *closableBuffer) Write(p []byte) (int, error) { return b.write.Write(p) }
func (b *closableBuffer) Close() error {
	b.read.Close()
	b.write.Close()
	return nil
}

func newLoopHandle() *closableBuffer {
	r, w := io.Pipe()
	return &closableBuffer{read: r, write: w}
}

func TestAccessoryWaiterDeliver(t *testing.T) {
	w := NewAccessoryWaiter(nil)
	defer w.Stop()

	handle := newLoopHandle()
	if err := w.Deliver(handle, "usb:1-1.4"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	tr, err := w.WaitForDevice(context.Background())
	if err != nil {
		t.Fatalf("WaitForDevice failed: %v", err)
	}
	defer tr.Close()

	if tr.Kind() != KindAccessory {
		t.Errorf("Kind() = %v, want %v", tr.Kind(), KindAccessory)
	}
	if got := tr.RemoteAddr(); got != "usb:1-1.4" {
		t.Errorf("RemoteAddr() = %q, want %q", got, "usb:1-1.4")
	}
}

func TestAccessoryWaiterRejectsSecondDelivery(t *testing.T) {
	w := NewAccessoryWaiter(nil)
	defer w.Stop()

	if err := w.Deliver(newLoopHandle(), "usb:a"); err != nil {
		t.Fatalf("first Deliver failed: %v", err)
	}
	if err := w.Deliver(newLoopHandle(), "usb:b"); !errors.Is(err, ErrAlreadyDelivered) {
		t.Errorf("second Deliver returned %v, want ErrAlreadyDelivered", err)
	}
}

func TestAccessoryWaiterStop(t *testing.T) {
	w := NewAccessoryWaiter(nil)

	done := make(chan error, 1)
	go func() {
		_, err := w.WaitForDevice(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrWaiterStopped) {
			t.Errorf("WaitForDevice returned %v, want ErrWaiterStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForDevice did not return after Stop")
	}

	if err := w.Deliver(newLoopHandle(), "usb:late"); !errors.Is(err, ErrWaiterStopped) {
		t.Errorf("Deliver after Stop returned %v, want ErrWaiterStopped", err)
	}
}

func TestPipeTransportRoundtrip(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	if a.Kind() != KindPipe || b.Kind() != KindPipe {
		t.Fatalf("Kind() = %v/%v, want pipe", a.Kind(), b.Kind())
	}

	payload := []byte("projection bytes")
	go func() {
		a.Write(payload)
	}()

	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if !bytes.Equal(buf, payload) {
		t.Errorf("read %q, want %q", buf, payload)
	}
}

func TestPipeTransportCloseUnblocksPeer(t *testing.T) {
	a, b := Pipe()
	defer b.Close()

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := b.Read(buf)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("peer Read returned %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer Read did not unblock after Close")
	}

	// Close is idempotent.
	if err := a.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
