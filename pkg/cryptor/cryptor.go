package cryptor

import (
	"context"
	"errors"
)

// Cryptor errors.
var (
	// ErrClosed is returned by all operations after Deinit.
	ErrClosed = errors.New("cryptor closed")

	// ErrHandshakeComplete is returned by Handshake after the handshake
	// already finished.
	ErrHandshakeComplete = errors.New("handshake already complete")

	// ErrNotActive is returned by Encrypt and Decrypt before the
	// handshake has completed.
	ErrNotActive = errors.New("handshake not complete")

	// ErrTruncatedRecord is returned by Decrypt when the payload ends in
	// the middle of a TLS record. The session is unrecoverable after
	// this.
	ErrTruncatedRecord = errors.New("truncated record")
)

// Role selects which side of the handshake this endpoint plays.
type Role int

const (
	// RoleClient initiates the handshake. The head unit always runs as
	// client.
	RoleClient Role = iota

	// RoleServer answers the handshake. Used by device simulators.
	RoleServer
)

// String returns a human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// Cryptor drives the session handshake and encrypts and decrypts frame
// payloads once the handshake is done.
type Cryptor interface {
	// Handshake advances the handshake by one exchange. in carries the
	// payload of a received handshake message (nil for the client's
	// first call). out is the payload to send to the peer (may be nil
	// on the final server exchange). done reports completion; after
	// done the cryptor is active.
	Handshake(ctx context.Context, in []byte) (out []byte, done bool, err error)

	// Active reports whether the handshake has completed and payloads
	// can be encrypted and decrypted.
	Active() bool

	// Encrypt turns one plaintext payload into record bytes for the
	// wire. Calls are serialized internally; payload boundaries are
	// preserved end to end.
	Encrypt(plain []byte) ([]byte, error)

	// Decrypt turns the record bytes of one received payload back into
	// plaintext. The input must contain whole records.
	Decrypt(records []byte) ([]byte, error)

	// Deinit releases the engine. Pending handshake calls fail with
	// ErrClosed. Deinit is idempotent.
	Deinit() error
}
