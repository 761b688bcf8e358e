package service

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/openprojection/headunit-go/pkg/messenger"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/wire"
)

// AccessPoint describes the head unit's access point for wireless
// projection.
type AccessPoint struct {
	SSID       string
	Passphrase string
	BSSID      string
	Dynamic    bool
}

// PSK derives the WPA2 pre-shared key: PBKDF2-SHA1 over the passphrase
// with the SSID as salt, 4096 rounds, 32 bytes. This is the wpa_psk
// value hostapd expects.
func (ap AccessPoint) PSK() []byte {
	return pbkdf2.Key([]byte(ap.Passphrase), []byte(ap.SSID), 4096, 32, sha1.New)
}

// HostapdConf renders a hostapd configuration for the access point on
// the given interface.
func (ap AccessPoint) HostapdConf(iface string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", iface)
	fmt.Fprintf(&b, "ssid=%s\n", ap.SSID)
	b.WriteString("hw_mode=g\n")
	b.WriteString("channel=6\n")
	b.WriteString("wpa=2\n")
	b.WriteString("wpa_key_mgmt=WPA-PSK\n")
	b.WriteString("rsn_pairwise=CCMP\n")
	fmt.Fprintf(&b, "wpa_psk=%x\n", ap.PSK())
	if ap.BSSID != "" {
		fmt.Fprintf(&b, "bssid=%s\n", ap.BSSID)
	}
	return b.String()
}

// WifiProjection serves the wireless credential handoff channel.
type WifiProjection struct {
	ch *channel
	ap AccessPoint
}

var _ session.Service = (*WifiProjection)(nil)

// NewWifiProjection creates the credential handoff service.
func NewWifiProjection(m *messenger.Messenger, ap AccessPoint, opts Options) *WifiProjection {
	return &WifiProjection{
		ch: newChannel(wire.ChannelWifiProjection, m, opts),
		ap: ap,
	}
}

// Start begins serving the channel.
func (w *WifiProjection) Start() { w.ch.start(w.handleMessage) }

// Stop halts the channel.
func (w *WifiProjection) Stop() { w.ch.stop() }

func (w *WifiProjection) Pause()  {}
func (w *WifiProjection) Resume() {}

// Channel returns the served channel id.
func (w *WifiProjection) Channel() wire.ChannelID { return w.ch.id }

// FillFeatures appends the wifi projection descriptor.
func (w *WifiProjection) FillFeatures(resp *wire.ServiceDiscoveryResponse) {
	resp.Channels = append(resp.Channels, wire.ChannelDescriptor{
		Channel: w.ch.id,
		WifiProjection: &wire.WifiProjectionDescriptor{
			SSID:  w.ap.SSID,
			BSSID: w.ap.BSSID,
		},
	})
}

// OnChannelError reports a channel failure.
func (w *WifiProjection) OnChannelError(err error) { w.ch.onError(err) }

func (w *WifiProjection) handleMessage(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.MsgChannelOpenRequest:
		w.ch.answerOpen(ctx, msg, wire.StatusOK)
	case wire.MsgWifiCredentialsRequest:
		w.onCredentialsRequest(ctx, msg)
	default:
		w.ch.debugLog("unexpected wifi message", "type", msg.Type)
	}
}

func (w *WifiProjection) onCredentialsRequest(ctx context.Context, msg *wire.Message) {
	var req wire.WifiCredentialsRequest
	if err := msg.Decode(&req); err != nil {
		w.ch.logError(err)
		return
	}
	w.ch.debugLog("credentials request", "ssid", w.ap.SSID)

	security := wire.SecurityModeWPA2Personal
	if w.ap.Passphrase == "" {
		security = wire.SecurityModeOpen
	}
	apType := wire.AccessPointStatic
	if w.ap.Dynamic {
		apType = wire.AccessPointDynamic
	}

	if err := w.ch.send(ctx, wire.MsgWifiCredentialsResponse, wire.WifiCredentialsResponse{
		SSID:            w.ap.SSID,
		Key:             w.ap.Passphrase,
		BSSID:           w.ap.BSSID,
		SecurityMode:    security,
		AccessPointType: apType,
	}); err != nil {
		w.ch.sendError(err)
	}
}
