package discovery

import (
	"context"
	"log/slog"
	"time"
)

// Advertiser announces the head unit's projection listener on the local
// network.
type Advertiser interface {
	// Advertise starts advertising the head unit service. Calling it
	// again replaces the previous advertisement.
	Advertise(ctx context.Context, info *HeadUnitInfo) error

	// Update refreshes the TXT records of the running advertisement.
	// The instance name and port are fixed at Advertise; changing them
	// requires Stop and a fresh Advertise.
	Update(info *HeadUnitInfo) error

	// Advertising reports whether an advertisement is running.
	Advertising() bool

	// Stop withdraws the advertisement.
	Stop()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Logger is the optional debug logger.
	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       120 * time.Second,
	}
}
