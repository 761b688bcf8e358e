package discovery

import "errors"

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type for projection head units.
	ServiceType = "_openprojection._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default wireless projection port.
	DefaultPort = 5000
)

// TXT record key constants.
const (
	TXTKeyName    = "name"  // Head unit display name
	TXTKeyMake    = "make"  // Vehicle make
	TXTKeyModel   = "model" // Vehicle model
	TXTKeyYear    = "year"  // Model year (optional)
	TXTKeyVersion = "ver"   // Protocol version "major.minor"
	TXTKeyStatus  = "st"    // Availability (optional)
)

// Status values for the "st" TXT record.
const (
	// StatusWaiting means the head unit is free and accepting devices.
	StatusWaiting = "waiting"

	// StatusConnected means a projection session is active. Browsers may
	// still connect; a new device supersedes the active session.
	StatusConnected = "connected"
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotAdvertising      = errors.New("not advertising")
)

// HeadUnitInfo describes the head unit service a phone sees while
// browsing. Port travels in the SRV record, everything else in TXT.
type HeadUnitInfo struct {
	// Name is the head unit display name. It doubles as the mDNS
	// instance name.
	Name string

	// Make is the vehicle make.
	Make string

	// Model is the vehicle model.
	Model string

	// Year is the optional model year.
	Year string

	// Version is the protocol version as "major.minor".
	Version string

	// Status is the optional availability: StatusWaiting or
	// StatusConnected.
	Status string

	// Port is the wireless projection port. Zero means DefaultPort.
	Port uint16
}

// Validate checks if the HeadUnitInfo can be advertised.
func (h *HeadUnitInfo) Validate() error {
	if err := ValidateInstanceName(h.Name); err != nil {
		return err
	}
	if h.Make == "" || h.Model == "" {
		return ErrMissingRequired
	}
	if h.Version == "" {
		return ErrMissingRequired
	}
	if !isVersionString(h.Version) {
		return ErrInvalidTXTRecord
	}
	switch h.Status {
	case "", StatusWaiting, StatusConnected:
	default:
		return ErrInvalidTXTRecord
	}
	return nil
}
