package connection

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/openprojection/headunit-go/pkg/config"
	"github.com/openprojection/headunit-go/pkg/cryptor"
	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/service"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/transport"
)

// Builder assembles the full session stack for an accepted transport:
// TLS cryptor, messenger, the configured service set, and the session
// itself.
type Builder struct {
	// Config selects services and identity. Nil means the default
	// configuration.
	Config *config.Config

	// Backends supply the platform integrations for the services. Zero
	// fields fall back to the built-in stand-ins.
	Backends service.Backends

	// EventLog receives protocol events (optional).
	EventLog log.Logger

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// Factory adapts the builder to the manager's factory contract.
func (b *Builder) Factory() SessionFactory {
	return func(t transport.Transport) (Session, error) {
		s, err := b.Build(t)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Build wires one session over the transport. The session owns the
// transport, cryptor, and messenger once Build returns without error.
func (b *Builder) Build(t transport.Transport) (*session.Session, error) {
	cfg := b.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	id := uuid.NewString()

	cr, err := cryptor.NewTLS(cryptor.Config{Logger: b.Logger})
	if err != nil {
		return nil, err
	}

	m, err := messenger.New(messenger.Config{
		Transport: t,
		Cryptor:   cr,
		SessionID: id,
		EventLog:  b.EventLog,
		Logger:    b.Logger,
	})
	if err != nil {
		return nil, err
	}

	services := service.NewFactory(cfg, b.Backends, b.EventLog, b.Logger).Build(m, id)

	return session.New(session.Config{
		Transport: t,
		Cryptor:   cr,
		Messenger: m,
		Services:  services,
		Identity:  identityFromConfig(cfg.HeadUnit),
		Ping: session.PingerConfig{
			Interval:   cfg.Ping.Interval,
			Timeout:    cfg.Ping.Timeout,
			PauseStops: cfg.Ping.PauseStops,
			Logger:     b.Logger,
		},
		SessionID: id,
		EventLog:  b.EventLog,
		Logger:    b.Logger,
	})
}

// identityFromConfig maps the head unit configuration onto the
// discovery identity.
func identityFromConfig(hu config.HeadUnitConfig) session.Identity {
	return session.Identity{
		Make:               hu.Make,
		Model:              hu.Model,
		Year:               hu.Year,
		VehicleID:          hu.VehicleID,
		HeadunitName:       hu.Name,
		SwBuild:            hu.SwBuild,
		SwVersion:          hu.SwVersion,
		CanPlayNativeMedia: hu.CanPlayNativeMedia,
		HideProjectedClock: hu.HideProjectedClock,
	}
}
