// Package transport provides the byte transports a projection session
// runs over and the waiters that produce them.
//
// A Transport is a plain bidirectional byte stream. Framing, message
// assembly and encryption live above it in pkg/messenger and
// pkg/cryptor; the transport itself never interprets the bytes it
// carries.
//
// Two transport families exist: TCP (wireless projection, the phone
// connects to the head unit's listener) and accessory (USB, the
// platform hands the process an already-open device handle). Both are
// produced through the DeviceWaiter interface so the connection
// manager can race them and take whichever device shows up first.
package transport
