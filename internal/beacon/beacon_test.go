package beacon

import (
	"context"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifiwatch/internal/engine"
	"wifiwatch/internal/models"
	"wifiwatch/internal/registry"
)

type frame struct {
	subtype    byte // frame control byte 0
	bssid      []byte
	capability uint16
	signal     int8
	ies        [][]byte
}

func ie(id byte, info ...byte) []byte {
	return append([]byte{id, byte(len(info))}, info...)
}

func ssidIE(s string) []byte {
	return ie(0, []byte(s)...)
}

// bytes builds a RadioTap header carrying only the antenna signal, followed
// by the 802.11 management frame.
func (f frame) bytes() []byte {
	data := []byte{0x00, 0x00, 0x09, 0x00, 0x20, 0x00, 0x00, 0x00, byte(f.signal)}

	data = append(data, f.subtype, 0x00, 0x00, 0x00)
	data = append(data, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	data = append(data, f.bssid...)
	data = append(data, f.bssid...)
	data = append(data, 0x00, 0x00)

	if f.subtype == 0x80 || f.subtype == 0x50 {
		data = append(data, make([]byte, 8)...)
		data = append(data, 0x64, 0x00, byte(f.capability), byte(f.capability>>8))
	}
	for _, e := range f.ies {
		data = append(data, e...)
	}
	return data
}

func (f frame) packet() gopacket.Packet {
	return gopacket.NewPacket(f.bytes(), layers.LayerTypeRadioTap, gopacket.Default)
}

var bssidA = []byte{0x00, 0x1A, 0x2B, 0x3C, 0x4D, 0x5E}

func TestParseBeaconWPA2(t *testing.T) {
	rec, ok := ParsePacket(frame{
		subtype:    0x80,
		bssid:      bssidA,
		capability: 0x0011,
		signal:     -52,
		ies:        [][]byte{ssidIE("Office"), ie(3, 11), ie(48, 0x01, 0x00)},
	}.packet())
	require.True(t, ok)

	assert.Equal(t, "00:1a:2b:3c:4d:5e", rec.Address)
	assert.Equal(t, "Office", rec.SSID)
	require.NotNil(t, rec.Channel)
	assert.Equal(t, 11, *rec.Channel)
	require.NotNil(t, rec.Signal)
	assert.Equal(t, -52, *rec.Signal)
	assert.True(t, rec.EncryptionAny)
	assert.True(t, rec.EncryptionWPA2)
	assert.False(t, rec.EncryptionWEP)
}

func TestParseProbeResponseWPA(t *testing.T) {
	rec, ok := ParsePacket(frame{
		subtype:    0x50,
		bssid:      bssidA,
		capability: 0x0011,
		signal:     -70,
		ies:        [][]byte{ssidIE("Legacy"), ie(221, 0x00, 0x50, 0xf2, 0x01, 0x01, 0x00)},
	}.packet())
	require.True(t, ok)

	assert.True(t, rec.EncryptionWPA)
	assert.False(t, rec.EncryptionWPA2)
	assert.False(t, rec.EncryptionWEP)
}

func TestParsePrivacyBitMeansWEP(t *testing.T) {
	rec, ok := ParsePacket(frame{
		subtype:    0x80,
		bssid:      bssidA,
		capability: 0x0011,
		ies:        [][]byte{ssidIE("Old")},
	}.packet())
	require.True(t, ok)
	assert.True(t, rec.EncryptionAny)
	assert.True(t, rec.EncryptionWEP)
	assert.Equal(t, "WEP", rec.Security())
}

func TestParseOpenHiddenNetwork(t *testing.T) {
	rec, ok := ParsePacket(frame{
		subtype:    0x80,
		bssid:      bssidA,
		capability: 0x0001,
		ies:        [][]byte{ssidIE(""), ie(3, 6)},
	}.packet())
	require.True(t, ok)
	assert.Equal(t, models.UnknownSSID, rec.SSID)
	assert.True(t, rec.Open())
}

func TestParseIgnoresOtherFrames(t *testing.T) {
	_, ok := ParsePacket(frame{subtype: 0x40, bssid: bssidA, ies: [][]byte{ssidIE("probe")}}.packet())
	assert.False(t, ok)
}

func record(addr string, signal int) models.NetworkRecord {
	n := models.NewNetworkRecord(addr)
	n.SSID = "net-" + addr[len(addr)-2:]
	n.Signal = models.IntPtr(signal)
	return n
}

func TestCollectorWindows(t *testing.T) {
	c := NewCollector(registry.New(registry.Options{VanishThreshold: 1}), time.Minute, zerolog.Nop())

	c.Add(record("00:00:00:00:00:01", -50))
	c.Add(record("00:00:00:00:00:02", -60))
	c.Add(record("00:00:00:00:00:01", -45)) // last frame wins
	w := c.Flush()
	require.Len(t, w.Records, 2)
	require.Len(t, w.Classifications, 2)
	assert.Equal(t, registry.ChangeAppear, w.Classifications[0].Change)
	assert.Equal(t, -45, *w.Classifications[0].Network.Signal)

	c.Add(record("00:00:00:00:00:01", -40))
	w = c.Flush()
	require.Len(t, w.Classifications, 1)
	assert.Equal(t, registry.ChangeSignal, w.Classifications[0].Change)
	assert.Empty(t, w.Vanished)

	// Quiet windows neither classify nor decay.
	w = c.Flush()
	assert.Empty(t, w.Records)
	assert.Empty(t, w.Vanished)

	c.Add(record("00:00:00:00:00:01", -40))
	w = c.Flush()
	assert.Empty(t, w.Classifications)
	require.Len(t, w.Vanished, 1)
	assert.Equal(t, "00:00:00:00:00:02", w.Vanished[0].Address)
}

func TestWindowEvents(t *testing.T) {
	a := record("00:00:00:00:00:01", -50)
	b := record("00:00:00:00:00:02", -60)
	w := Window{
		Records: []models.NetworkRecord{a},
		Classifications: []registry.Classification{
			{Change: registry.ChangeAppear, Network: a},
		},
		Vanished: []models.NetworkRecord{b},
	}

	evs := w.Events(time.Now())
	require.Len(t, evs, 3)
	assert.Equal(t, engine.EventBatch, evs[0].Kind)
	assert.Equal(t, engine.EventAppear, evs[1].Kind)
	assert.Equal(t, engine.EventVanish, evs[2].Kind)
	assert.Equal(t, b.Address, evs[2].Network.Address)

	assert.Nil(t, Window{}.Events(time.Now()))
}

func TestIdenticalWindowEmitsOnlyBatch(t *testing.T) {
	c := NewCollector(registry.New(registry.Options{}), time.Minute, zerolog.Nop())

	c.Add(record("00:00:00:00:00:01", -50))
	c.Add(record("00:00:00:00:00:02", -60))
	c.Flush()

	c.Add(record("00:00:00:00:00:01", -50))
	c.Add(record("00:00:00:00:00:02", -60))
	w := c.Flush()
	assert.Empty(t, w.Classifications)

	evs := w.Events(time.Now())
	require.Len(t, evs, 1)
	assert.Equal(t, engine.EventBatch, evs[0].Kind)
	assert.Len(t, evs[0].Networks, 2)
}

func TestWindowEventsSkipsUnchanged(t *testing.T) {
	a := record("00:00:00:00:00:01", -50)
	b := record("00:00:00:00:00:02", -60)
	w := Window{
		Records: []models.NetworkRecord{a, b},
		Classifications: []registry.Classification{
			{Change: registry.ChangeNone, Network: a},
			{Change: registry.ChangeSignal, Network: b},
		},
	}

	evs := w.Events(time.Now())
	require.Len(t, evs, 2)
	assert.Equal(t, engine.EventBatch, evs[0].Kind)
	assert.Equal(t, engine.EventSignal, evs[1].Kind)
	assert.Equal(t, b.Address, evs[1].Network.Address)
}

func TestRunFlushesOnClose(t *testing.T) {
	c := NewCollector(registry.New(registry.Options{}), time.Hour, zerolog.Nop())

	packets := make(chan gopacket.Packet, 2)
	packets <- frame{subtype: 0x80, bssid: bssidA, signal: -60, ies: [][]byte{ssidIE("Cafe")}}.packet()
	packets <- frame{subtype: 0x40, bssid: bssidA}.packet()
	close(packets)

	var windows []Window
	err := c.Run(context.Background(), packets, func(w Window) { windows = append(windows, w) })
	require.NoError(t, err)
	require.Len(t, windows, 1)
	require.Len(t, windows[0].Classifications, 1)
	assert.Equal(t, "Cafe", windows[0].Classifications[0].Network.SSID)
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewCollector(registry.New(registry.Options{}), time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, make(chan gopacket.Packet), func(Window) {})
	assert.ErrorIs(t, err, context.Canceled)
}
