package session

// State is the lifecycle state of a session.
type State int32

const (
	// StateCreated is the initial state before Start.
	StateCreated State = iota

	// StateVersionPending waits for the device's version response.
	StateVersionPending

	// StateHandshaking runs the cryptor handshake exchange.
	StateHandshaking

	// StateServiceDiscovery waits for the device's discovery request.
	StateServiceDiscovery

	// StateActive is the steady projection state.
	StateActive

	// StatePaused is the steady state with media flow suspended.
	StatePaused

	// StateStopping marks a teardown in progress.
	StateStopping

	// StateStopped is the terminal state.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateVersionPending:
		return "VERSION_PENDING"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateServiceDiscovery:
		return "SERVICE_DISCOVERY"
	case StateActive:
		return "ACTIVE"
	case StatePaused:
		return "PAUSED"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
