package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifiwatch/internal/engine"
	"wifiwatch/internal/models"
)

func record(addr, ssid string, signal int, encrypted bool) models.NetworkRecord {
	n := models.NewNetworkRecord(addr)
	n.SSID = ssid
	n.Signal = models.IntPtr(signal)
	n.EncryptionAny = encrypted
	n.EncryptionWPA2 = encrypted
	return n
}

func netEvent(kind engine.EventKind, n models.NetworkRecord) engine.Event {
	return engine.Event{Kind: kind, Network: &n, Time: time.Now()}
}

func TestSessionStatsNetworks(t *testing.T) {
	stats := NewSessionStats("session-1")
	a := record("00:00:00:00:00:01", "weak", -80, true)
	b := record("00:00:00:00:00:02", "strong", -40, true)
	c := record("00:00:00:00:00:03", "gone", -30, true)

	stats.ProcessEvent(engine.Event{Kind: engine.EventBatch, Networks: []models.NetworkRecord{a, b, c}})
	stats.ProcessEvent(netEvent(engine.EventAppear, a))
	stats.ProcessEvent(netEvent(engine.EventAppear, b))
	stats.ProcessEvent(netEvent(engine.EventAppear, c))
	stats.ProcessEvent(netEvent(engine.EventVanish, c))

	nets := stats.GetNetworks()
	require.Len(t, nets, 3)
	assert.Equal(t, "strong", nets[0].SSID)
	assert.Equal(t, "weak", nets[1].SSID)
	assert.Equal(t, "gone", nets[2].SSID)
	assert.True(t, stats.IsVanished(c.Address))

	strongest := stats.GetStrongest(1)
	require.Len(t, strongest, 1)
	assert.Equal(t, "strong", strongest[0].SSID)
	assert.Len(t, stats.GetStrongest(10), 2)

	assert.Equal(t, 3, stats.TotalSeen())
	assert.Equal(t, int64(3), stats.Count(engine.EventAppear))
	assert.Equal(t, "session-1", stats.SessionID())

	counts := stats.GetEventCounts()
	require.NotEmpty(t, counts)
	assert.Equal(t, engine.EventAppear, counts[0].Kind)

	// Batch events are counted but not logged.
	assert.Len(t, stats.GetEventLog(), 4)
}

func TestSessionStatsConnection(t *testing.T) {
	stats := NewSessionStats("s")
	office := record("aa:bb:cc:dd:ee:ff", "Office", -40, true)

	stats.ProcessEvent(netEvent(engine.EventJoin, office))
	stats.ProcessEvent(engine.Event{Kind: engine.EventDHCP, IP: "10.0.0.7"})
	assert.Equal(t, Connection{Connected: true, Address: office.Address, SSID: "Office", IP: "10.0.0.7"}, stats.Connection())

	stats.ProcessEvent(engine.Event{Kind: engine.EventLeave})
	assert.False(t, stats.Connection().Connected)

	stats.ProcessEvent(engine.Event{Kind: engine.EventFormer, Link: &models.LinkInfo{Address: "00:11:22:33:44:55", SSID: "Other"}})
	assert.Equal(t, "Other", stats.Connection().SSID)
}

func TestEventLogIsBounded(t *testing.T) {
	stats := NewSessionStats("s")
	for i := 0; i < 80; i++ {
		stats.ProcessEvent(engine.Event{Kind: engine.EventError, Message: fmt.Sprintf("failure %d", i)})
	}

	log := stats.GetEventLog()
	require.Len(t, log, 50)
	assert.Equal(t, "failure 79", log[49].Summary)
	assert.Len(t, stats.GetAlerts(), 5)
	assert.Len(t, stats.GetAllAlerts(), 20)
}

func TestSummarize(t *testing.T) {
	n := record("00:00:00:00:00:01", "Home", -50, true)
	assert.Equal(t, "Home (00:00:00:00:00:01)", Summarize(netEvent(engine.EventAppear, n)))
	assert.Equal(t, "10.0.0.7", Summarize(engine.Event{Kind: engine.EventDHCP, IP: "10.0.0.7"}))
	assert.Equal(t, "stop", Summarize(engine.Event{Kind: engine.EventStop}))
	assert.Equal(t, "x (00:11:22:33:44:55)", Summarize(engine.Event{Kind: engine.EventFormer, Link: &models.LinkInfo{Address: "00:11:22:33:44:55", SSID: "x"}}))
}

func TestBandForChannel(t *testing.T) {
	assert.Equal(t, "?", BandForChannel(nil))
	assert.Equal(t, "2.4 GHz", BandForChannel(models.IntPtr(6)))
	assert.Equal(t, "5 GHz", BandForChannel(models.IntPtr(149)))
	assert.Equal(t, "ch 200", BandForChannel(models.IntPtr(200)))
}
