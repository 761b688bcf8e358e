// Package cryptor provides the encryption engine for projection
// sessions.
//
// The projection handshake does not run TLS over the transport
// directly. Instead the session relays opaque handshake payloads inside
// plaintext control messages, and once the handshake completes,
// individual frame payloads are encrypted and decrypted one at a time.
// The TLS engine therefore runs over an in-memory record bridge rather
// than a socket: record bytes the engine emits are collected and handed
// to the session, and record bytes received from the device are fed
// back in.
//
// The head unit acts as the TLS client and initiates the handshake.
// The server role exists for device simulators and tests.
package cryptor
