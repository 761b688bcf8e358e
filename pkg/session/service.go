package session

import "github.com/openprojection/headunit-go/pkg/wire"

// Service is one projection service owned by a session. Implementations
// serve a single channel: they answer its open request, advertise it in
// the discovery response, and run the channel's receive loop between
// Start and Stop.
type Service interface {
	// Start arms the service and begins serving its channel.
	Start()

	// Stop halts the service and releases its backend. Safe to call more
	// than once.
	Stop()

	// Pause suspends media and event flow while the session is paused.
	Pause()

	// Resume lifts a pause.
	Resume()

	// Channel returns the channel id the service serves.
	Channel() wire.ChannelID

	// FillFeatures appends this service's channel descriptor to the
	// discovery response.
	FillFeatures(resp *wire.ServiceDiscoveryResponse)

	// OnChannelError reports a failure of the service's channel. Errors
	// of the aborted kind accompany an intentional stop.
	OnChannelError(err error)
}
