package wire

// Status represents a protocol status code carried in responses.
type Status int8

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = 0

	// StatusVersionMismatch indicates the peers share no protocol version.
	StatusVersionMismatch Status = 1

	// StatusInternalError indicates the head unit failed to act on a valid
	// request (for example a backend refused to open).
	StatusInternalError Status = -1

	// StatusUnsolicited rejects a request the current channel state does not
	// allow, such as binding unsupported key codes or reopening a busy
	// microphone.
	StatusUnsolicited Status = -4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusVersionMismatch:
		return "VERSION_MISMATCH"
	case StatusInternalError:
		return "INTERNAL_ERROR"
	case StatusUnsolicited:
		return "UNSOLICITED_MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// IsOK returns true for a success status.
func (s Status) IsOK() bool {
	return s == StatusOK
}
