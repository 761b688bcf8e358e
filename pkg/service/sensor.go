package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// DefaultPollInterval is the sensor poll period when none is
// configured.
const DefaultPollInterval = 250 * time.Millisecond

// Sensor serves the sensor channel. Each subscription is answered with
// an immediate reading; location and night mode subscriptions also arm
// a recurring poll that streams fresh fixes and day/night flips.
type Sensor struct {
	ch    *channel
	poll  time.Duration
	loc   LocationSource
	night NightSource

	mu          sync.Mutex
	stopPolling bool
	timer       *time.Timer
	pollCtx     context.Context
	subscribed  map[wire.SensorType]bool
	lastFix     time.Time
	lastNight   bool
	nightKnown  bool
}

var _ session.Service = (*Sensor)(nil)

// NewSensor creates the sensor service.
func NewSensor(m *messenger.Messenger, poll time.Duration, loc LocationSource, night NightSource, opts Options) *Sensor {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Sensor{
		ch:         newChannel(wire.ChannelSensor, m, opts),
		poll:       poll,
		loc:        loc,
		night:      night,
		subscribed: make(map[wire.SensorType]bool),
	}
}

// Start begins serving the channel.
func (s *Sensor) Start() { s.ch.start(s.handleMessage) }

// Stop halts the poll loop and the channel. The timer is cancelled and
// the stop flag set first: a tick that already fired past the cancel
// bails out on the flag instead of rearming.
func (s *Sensor) Stop() {
	s.mu.Lock()
	s.stopPolling = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.ch.stop()
}

// Pause silences the poll without losing subscriptions.
func (s *Sensor) Pause() { s.ch.setPaused(true) }

// Resume lets sensor events flow again.
func (s *Sensor) Resume() { s.ch.setPaused(false) }

// Channel returns the served channel id.
func (s *Sensor) Channel() wire.ChannelID { return s.ch.id }

// FillFeatures appends the sensor source descriptor.
func (s *Sensor) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel: s.ch.id,
		Sensor: &wire.SensorSourceDescriptor{
			Sensors: []wire.SensorType{wire.SensorDrivingStatus, wire.SensorLocation, wire.SensorNightMode},
		},
	})
}

// OnChannelError reports a channel failure.
func (s *Sensor) OnChannelError(err error) { s.ch.onError(err) }

func (s *Sensor) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		s.ch.answerOpen(ctx, msg, wire.StatusOK)
	case wire.MsgSensorStartRequest:
		s.onSensorStart(ctx, msg)
	default:
		s.ch.debugLog("unexpected sensor message", "type", msg.Type)
	}
}

func (s *Sensor) onSensorStart(ctx context.Context, msg *wire.Message) {
	var req wire.SensorStartRequest
	if err := msg.Decode(&req); err != nil {
		s.ch.logError(err)
		return
	}
	s.ch.debugLog("sensor start", "sensor", req.Sensor, "refresh", req.RefreshInterval)

	switch req.Sensor {
	case wire.SensorDrivingStatus, wire.SensorLocation, wire.SensorNightMode:
	default:
		s.respond(ctx, wire.StatusUnsolicited)
		return
	}

	s.mu.Lock()
	s.subscribed[req.Sensor] = true
	s.mu.Unlock()

	s.respond(ctx, wire.StatusOK)
	s.sendInitial(ctx, req.Sensor)

	if req.Sensor == wire.SensorLocation || req.Sensor == wire.SensorNightMode {
		s.startPolling(ctx)
	}
}

func (s *Sensor) respond(ctx context.Context, status wire.Status) {
	if err := s.ch.send(ctx, wire.MsgSensorStartResponse, wire.SensorStartResponse{Status: status}); err != nil {
		s.ch.sendError(err)
	}
}

// sendInitial delivers the first reading for a fresh subscription.
func (s *Sensor) sendInitial(ctx context.Context, sensor wire.SensorType) {
	var event wire.SensorEventIndication
	switch sensor {
	case wire.SensorDrivingStatus:
		event.DrivingStatus = []wire.DrivingStatusData{{Status: wire.DrivingStatusUnrestricted}}
	case wire.SensorNightMode:
		night := s.night.Night()
		s.mu.Lock()
		s.lastNight = night
		s.nightKnown = true
		s.mu.Unlock()
		event.NightMode = []wire.NightModeData{{Night: night}}
	case wire.SensorLocation:
		fix := s.loc.Current()
		if fix == nil {
			return
		}
		s.mu.Lock()
		s.lastFix = fix.Timestamp
		s.mu.Unlock()
		event.Locations = []wire.LocationData{locationData(fix)}
	}
	s.sendEvent(ctx, event)
}

// startPolling arms the poll timer once.
func (s *Sensor) startPolling(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopPolling || s.timer != nil {
		return
	}
	s.pollCtx = ctx
	s.timer = time.AfterFunc(s.poll, s.pollTick)
}

// pollTick runs one poll pass and rearms the timer. The stop flag is
// checked again on entry: the tick may already be queued when Stop
// flips the flag, too late for the timer cancel to catch it.
func (s *Sensor) pollTick() {
	s.mu.Lock()
	if s.stopPolling {
		s.mu.Unlock()
		return
	}
	s.timer = time.AfterFunc(s.poll, s.pollTick)
	ctx := s.pollCtx
	wantLocation := s.subscribed[wire.SensorLocation]
	wantNight := s.subscribed[wire.SensorNightMode]
	s.mu.Unlock()

	if s.ch.isPaused() {
		return
	}

	var event wire.SensorEventIndication
	if wantLocation {
		if fix := s.loc.Current(); fix != nil {
			s.mu.Lock()
			fresh := !fix.Timestamp.Equal(s.lastFix)
			if fresh {
				s.lastFix = fix.Timestamp
			}
			s.mu.Unlock()
			if fresh {
				event.Locations = append(event.Locations, locationData(fix))
			}
		}
	}
	if wantNight {
		night := s.night.Night()
		s.mu.Lock()
		changed := !s.nightKnown || night != s.lastNight
		s.lastNight = night
		s.nightKnown = true
		s.mu.Unlock()
		if changed {
			event.NightMode = append(event.NightMode, wire.NightModeData{Night: night})
		}
	}

	if len(event.Locations) == 0 && len(event.NightMode) == 0 {
		return
	}
	s.sendEvent(ctx, event)
}

func (s *Sensor) sendEvent(ctx context.Context, event wire.SensorEventIndication) {
	if err := s.ch.send(ctx, wire.MsgSensorEventIndication, event); err != nil {
		s.ch.sendError(err)
	}
}

// knotsPerMPS converts meters per second to knots.
const knotsPerMPS = 3600.0 / 1852.0

// locationData converts a fix to wire scaling: degrees as 1e-7 units,
// accuracy in millimeters, altitude in centimeters, speed in
// milliknots, bearing in microdegrees.
func locationData(fix *Location) wire.LocationData {
	data := wire.LocationData{
		Timestamp:   fix.Timestamp.UnixMicro(),
		LatitudeE7:  int32(math.Round(fix.Latitude * 1e7)),
		LongitudeE7: int32(math.Round(fix.Longitude * 1e7)),
	}
	if fix.Accuracy != nil {
		data.AccuracyE3 = scaled(*fix.Accuracy, 1e3)
	}
	if fix.Altitude != nil {
		data.AltitudeE2 = scaled(*fix.Altitude, 1e2)
	}
	if fix.Speed != nil {
		data.SpeedE3 = scaled(*fix.Speed*knotsPerMPS, 1e3)
	}
	if fix.Bearing != nil {
		data.BearingE6 = scaled(*fix.Bearing, 1e6)
	}
	return data
}

func scaled(v, factor float64) *int32 {
	s := int32(math.Round(v * factor))
	return &s
}
