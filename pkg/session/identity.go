package session

import "github.com/openprojection/headunit-go/pkg/wire"

// Identity describes the head unit in the service discovery response.
type Identity struct {
	Make               string
	Model              string
	Year               string
	VehicleID          string
	HeadunitName       string
	SwBuild            string
	SwVersion          string
	CanPlayNativeMedia bool
	HideProjectedClock bool
}

// DefaultIdentity returns the identity the reference head unit ships with.
func DefaultIdentity() Identity {
	return Identity{
		Make:               "CubeOne",
		Model:              "Journey",
		Year:               "2024",
		VehicleID:          "2009",
		HeadunitName:       "JourneyOS",
		SwBuild:            "2024.10.15",
		SwVersion:          "1",
		CanPlayNativeMedia: true,
	}
}

// discoveryResponse builds the response skeleton carrying this identity.
// Services append their channel descriptors afterwards.
func (i Identity) discoveryResponse() wire.ServiceDiscoveryResponse {
	return wire.ServiceDiscoveryResponse{
		Make:               i.Make,
		Model:              i.Model,
		Year:               i.Year,
		VehicleID:          i.VehicleID,
		HeadunitName:       i.HeadunitName,
		SwBuild:            i.SwBuild,
		SwVersion:          i.SwVersion,
		CanPlayNativeMedia: i.CanPlayNativeMedia,
		HideProjectedClock: i.HideProjectedClock,
	}
}
