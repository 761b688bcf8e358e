package service

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprojection/headunit-go/pkg/wire"
)

func TestWifiCredentials(t *testing.T) {
	f := newFixture(t)
	w := NewWifiProjection(f.hu, AccessPoint{
		SSID:       "JourneyOS",
		Passphrase: "1234567890",
		BSSID:      "02:00:00:00:00:01",
		Dynamic:    true,
	}, Options{})
	w.Start()
	defer w.Stop()

	f.openChannel(wire.ChannelWifiProjection, wire.StatusOK)

	f.send(wire.ChannelWifiProjection, wire.MsgWifiCredentialsRequest, wire.WifiCredentialsRequest{}, false)

	msg := f.receive(wire.ChannelWifiProjection)
	require.Equal(t, wire.MsgWifiCredentialsResponse, msg.Type)
	var resp wire.WifiCredentialsResponse
	require.NoError(t, msg.Decode(&resp))
	assert.Equal(t, "JourneyOS", resp.SSID)
	assert.Equal(t, "1234567890", resp.Key)
	assert.Equal(t, "02:00:00:00:00:01", resp.BSSID)
	assert.Equal(t, wire.SecurityModeWPA2Personal, resp.SecurityMode)
	assert.Equal(t, wire.AccessPointDynamic, resp.AccessPointType)
}

func TestWifiCredentialsOpenNetwork(t *testing.T) {
	f := newFixture(t)
	w := NewWifiProjection(f.hu, AccessPoint{SSID: "OpenNet"}, Options{})
	w.Start()
	defer w.Stop()

	f.openChannel(wire.ChannelWifiProjection, wire.StatusOK)
	f.send(wire.ChannelWifiProjection, wire.MsgWifiCredentialsRequest, wire.WifiCredentialsRequest{}, false)

	msg := f.receive(wire.ChannelWifiProjection)
	var resp wire.WifiCredentialsResponse
	require.NoError(t, msg.Decode(&resp))
	assert.Equal(t, wire.SecurityModeOpen, resp.SecurityMode)
	assert.Equal(t, wire.AccessPointStatic, resp.AccessPointType)
	assert.Empty(t, resp.Key)
}

func TestAccessPointPSK(t *testing.T) {
	// Reference vector from IEEE Std 802.11i, also used by wpa_passphrase.
	ap := AccessPoint{SSID: "IEEE", Passphrase: "password"}
	assert.Equal(t,
		"f42c6fc52df0ebef9ebb4b90b38a5f902e83fe1b135a70e23aed762e9710a12e",
		hex.EncodeToString(ap.PSK()))
}

func TestAccessPointHostapdConf(t *testing.T) {
	ap := AccessPoint{SSID: "JourneyOS", Passphrase: "1234567890", BSSID: "02:00:00:00:00:01"}
	conf := ap.HostapdConf("wlan0")

	assert.Contains(t, conf, "interface=wlan0\n")
	assert.Contains(t, conf, "ssid=JourneyOS\n")
	assert.Contains(t, conf, "wpa=2\n")
	assert.Contains(t, conf, "wpa_key_mgmt=WPA-PSK\n")
	assert.Contains(t, conf, "wpa_psk="+hex.EncodeToString(ap.PSK())+"\n")
	assert.Contains(t, conf, "bssid=02:00:00:00:00:01\n")

	noBSSID := AccessPoint{SSID: "JourneyOS", Passphrase: "1234567890"}
	assert.NotContains(t, noBSSID.HostapdConf("wlan0"), "bssid=")
}

func TestWifiDescriptor(t *testing.T) {
	w := NewWifiProjection(nil, AccessPoint{SSID: "JourneyOS", BSSID: "02:00:00:00:00:01"}, Options{})

	var resp wire.ServiceDiscoveryResponse
	w.FillFeatures(&resp)

	require.Len(t, resp.Channels, 1)
	desc := resp.Channels[0]
	assert.Equal(t, wire.ChannelWifiProjection, desc.Channel)
	require.NotNil(t, desc.WifiProjection)
	assert.Equal(t, "JourneyOS", desc.WifiProjection.SSID)
	assert.Equal(t, "02:00:00:00:00:01", desc.WifiProjection.BSSID)
}
