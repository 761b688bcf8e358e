// Package wire defines the framing and message types for the projection
// protocol spoken between a head unit and a phone.
//
// Messages are multiplexed over one transport as frames. Each frame carries
// a channel id, flags, and a length-prefixed payload; large messages are
// split across first/bulk/last frames and reassembled by the messenger.
// Message bodies are CBOR (RFC 8949) with integer keys, preceded by a
// two-byte big-endian message type id.
//
// # Channels
//
// Channel ids are stable for the lifetime of a session and identify the
// service that owns the sub-protocol: control, input, sensor, video, the
// audio sinks, microphone, bluetooth, wifi projection, and the capability
// stub channels.
//
// # Encryption boundary
//
// Version negotiation and the handshake itself travel in plaintext; every
// later message is encrypted by the session cryptor and carries the
// encrypted frame flag.
package wire
