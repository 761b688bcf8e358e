// Package messenger multiplexes channel messages over one transport.
//
// Outgoing messages are split into frames of at most
// wire.MaxFramePayloadSize payload bytes and written atomically per
// message. Incoming frames are reassembled per channel and queued in
// per-channel inboxes that Receive drains. Frame payloads of encrypted
// messages are encrypted and decrypted one frame at a time through the
// session cryptor; the total-size field of a split message counts
// plaintext bytes.
//
// Stop aborts every outstanding Send and Receive with
// ErrOperationAborted. The session relies on that to unwind its service
// loops during teardown, so the error is deliberately distinguishable
// from transport failures.
package messenger
