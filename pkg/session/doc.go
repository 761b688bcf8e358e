// Package session implements the projection protocol engine: one session
// per connected device, driving version negotiation, the encryption
// handshake, service discovery, and the steady-state control channel until
// the device disconnects or the head unit shuts the session down.
package session
