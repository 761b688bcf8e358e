package cryptor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// maxRecordPlaintext is the plaintext capacity of one TLS record.
const maxRecordPlaintext = 16 * 1024

// Config configures a TLS-backed cryptor.
type Config struct {
	// Role selects the handshake side. The zero value is RoleClient.
	Role Role

	// Certificate presented to the peer. Generated if nil.
	Certificate *tls.Certificate

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// TLSCryptor runs a TLS 1.3 engine over an in-memory record bridge.
type TLSCryptor struct {
	config Config
	bridge *recordBridge
	conn   *tls.Conn

	active atomic.Bool

	startOnce sync.Once
	closeOnce sync.Once
	closed    chan struct{}

	// handshake result, written once by the engine goroutine
	hsMu   sync.Mutex
	hsDone bool
	hsErr  error

	encMu sync.Mutex
	decMu sync.Mutex
}

var _ Cryptor = (*TLSCryptor)(nil)

// NewTLS creates a cryptor ready for Handshake calls.
func NewTLS(config Config) (*TLSCryptor, error) {
	cert := config.Certificate
	if cert == nil {
		generated, err := GenerateCertificate(config.Role)
		if err != nil {
			return nil, fmt.Errorf("generating certificate: %w", err)
		}
		cert = &generated
	}

	bridge := newRecordBridge()
	var conn *tls.Conn
	switch config.Role {
	case RoleClient:
		conn = tls.Client(bridge, newClientTLSConfig(*cert))
	case RoleServer:
		conn = tls.Server(bridge, newServerTLSConfig(*cert))
	default:
		return nil, fmt.Errorf("unknown role %d", config.Role)
	}

	return &TLSCryptor{
		config: config,
		bridge: bridge,
		conn:   conn,
		closed: make(chan struct{}),
	}, nil
}

// Handshake advances the handshake by one exchange.
func (c *TLSCryptor) Handshake(ctx context.Context, in []byte) ([]byte, bool, error) {
	select {
	case <-c.closed:
		return nil, false, ErrClosed
	default:
	}
	if c.active.Load() {
		return nil, false, ErrHandshakeComplete
	}

	if len(in) > 0 {
		if err := c.bridge.feed(in); err != nil {
			return nil, false, ErrClosed
		}
	}

	c.startOnce.Do(func() {
		go c.runHandshake()
	})

	for {
		done, err := c.handshakeResult()
		if err != nil {
			return nil, false, fmt.Errorf("tls handshake: %w", err)
		}
		if done {
			c.bridge.setDrainMode()
			c.active.Store(true)
			c.logHandshake()
			return c.bridge.takeOutput(), true, nil
		}
		if c.bridge.flightReady() {
			return c.bridge.takeOutput(), false, nil
		}

		select {
		case <-c.bridge.outNotify:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-c.closed:
			return nil, false, ErrClosed
		}
	}
}

// runHandshake drives the TLS state machine. It blocks in bridge reads
// whenever the engine needs bytes the session has not relayed yet.
func (c *TLSCryptor) runHandshake() {
	err := c.conn.Handshake()
	c.hsMu.Lock()
	c.hsDone = true
	c.hsErr = err
	c.hsMu.Unlock()
	signal(c.bridge.outNotify)
}

func (c *TLSCryptor) handshakeResult() (bool, error) {
	c.hsMu.Lock()
	defer c.hsMu.Unlock()
	if !c.hsDone {
		return false, nil
	}
	return true, c.hsErr
}

func (c *TLSCryptor) logHandshake() {
	if c.config.Logger == nil {
		return
	}
	state := c.conn.ConnectionState()
	c.config.Logger.Debug("handshake complete",
		"role", c.config.Role.String(),
		"cipher", tls.CipherSuiteName(state.CipherSuite),
		"alpn", state.NegotiatedProtocol)
}

// Active reports whether Encrypt and Decrypt are usable.
func (c *TLSCryptor) Active() bool {
	return c.active.Load()
}

// Encrypt turns one plaintext payload into record bytes.
func (c *TLSCryptor) Encrypt(plain []byte) ([]byte, error) {
	if !c.active.Load() {
		return nil, ErrNotActive
	}
	c.encMu.Lock()
	defer c.encMu.Unlock()

	if _, err := c.conn.Write(plain); err != nil {
		return nil, fmt.Errorf("encrypting payload: %w", err)
	}
	return c.bridge.takeOutput(), nil
}

// Decrypt turns the record bytes of one payload back into plaintext.
func (c *TLSCryptor) Decrypt(records []byte) ([]byte, error) {
	if !c.active.Load() {
		return nil, ErrNotActive
	}
	c.decMu.Lock()
	defer c.decMu.Unlock()

	if err := c.bridge.feed(records); err != nil {
		return nil, ErrClosed
	}

	plain := make([]byte, 0, len(records))
	buf := make([]byte, maxRecordPlaintext)
	for c.bridge.pendingInput() > 0 {
		n, err := c.conn.Read(buf)
		if n > 0 {
			plain = append(plain, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, errBridgeDrained) {
				return nil, ErrTruncatedRecord
			}
			return nil, fmt.Errorf("decrypting payload: %w", err)
		}
	}
	return plain, nil
}

// Deinit shuts the engine down. Safe to call more than once and from
// any goroutine.
func (c *TLSCryptor) Deinit() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.active.Store(false)
		c.bridge.Close()
	})
	return nil
}
