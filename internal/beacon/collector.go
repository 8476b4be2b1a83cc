package beacon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/rs/zerolog"

	"wifiwatch/internal/engine"
	"wifiwatch/internal/models"
	"wifiwatch/internal/registry"
)

// DefaultWindow is how long frames are gathered before they are classified.
const DefaultWindow = 10 * time.Second

// Window is the outcome of classifying one window of frames. Classifications
// holds only records that appeared or changed.
type Window struct {
	Records         []models.NetworkRecord
	Classifications []registry.Classification
	Vanished        []models.NetworkRecord
}

// Events renders the window as engine events, in the order a scan would
// produce them.
func (w Window) Events(now time.Time) []engine.Event {
	if len(w.Records) == 0 && len(w.Vanished) == 0 {
		return nil
	}

	out := make([]engine.Event, 0, len(w.Classifications)+len(w.Vanished)+1)
	out = append(out, engine.Event{Kind: engine.EventBatch, Time: now, Networks: w.Records})
	for _, c := range w.Classifications {
		var kind engine.EventKind
		switch c.Change {
		case registry.ChangeAppear:
			kind = engine.EventAppear
		case registry.ChangeIdentity:
			kind = engine.EventChange
		case registry.ChangeSignal:
			kind = engine.EventSignal
		default:
			continue
		}
		n := c.Network
		out = append(out, engine.Event{Kind: kind, Time: now, Network: &n})
	}
	for _, v := range w.Vanished {
		n := v
		out = append(out, engine.Event{Kind: engine.EventVanish, Time: now, Network: &n})
	}
	return out
}

// Collector groups parsed frames into fixed windows and classifies each
// window against a registry. It is not safe for concurrent use.
type Collector struct {
	reg     *registry.Registry
	window  time.Duration
	log     zerolog.Logger
	pending map[string]models.NetworkRecord
	order   []string
}

// NewCollector creates a collector feeding reg.
func NewCollector(reg *registry.Registry, window time.Duration, log zerolog.Logger) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Collector{
		reg:     reg,
		window:  window,
		log:     log.With().Str("component", "beacon").Logger(),
		pending: make(map[string]models.NetworkRecord),
	}
}

// Add records a frame for the current window; the last frame per address wins.
func (c *Collector) Add(n models.NetworkRecord) {
	if _, ok := c.pending[n.Address]; !ok {
		c.order = append(c.order, n.Address)
	}
	c.pending[n.Address] = n
}

// Flush ingests the current window and decays whatever it did not contain.
func (c *Collector) Flush() Window {
	records := make([]models.NetworkRecord, 0, len(c.order))
	for _, addr := range c.order {
		records = append(records, c.pending[addr])
	}
	c.pending = make(map[string]models.NetworkRecord)
	c.order = nil

	w := Window{Records: records}
	if len(records) == 0 {
		return w
	}
	for _, cl := range c.reg.Ingest(records) {
		if cl.Change != registry.ChangeNone {
			w.Classifications = append(w.Classifications, cl)
		}
	}
	w.Vanished = c.reg.Decay()

	c.log.Debug().
		Int("frames", len(records)).
		Int("changes", len(w.Classifications)).
		Int("vanished", len(w.Vanished)).
		Msg("Window classified")
	return w
}

// Run reads packets until the channel closes or ctx is done, calling emit
// after every window. A closed channel flushes the final partial window.
func (c *Collector) Run(ctx context.Context, packets <-chan gopacket.Packet, emit func(Window)) error {
	ticker := time.NewTicker(c.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			emit(c.Flush())
		case pkt, ok := <-packets:
			if !ok {
				emit(c.Flush())
				return nil
			}
			if rec, ok := ParsePacket(pkt); ok {
				c.Add(rec)
			}
		}
	}
}

// OpenLive opens a monitor-mode interface for capture.
func OpenLive(iface string) (*pcap.Handle, error) {
	handle, err := pcap.OpenLive(iface, 2048, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("could not open handle: %w", err)
	}
	if err := handle.SetBPFFilter("type mgt subtype beacon or type mgt subtype probe-resp"); err != nil {
		handle.Close()
		return nil, fmt.Errorf("could not set BPF filter: %w", err)
	}
	return handle, nil
}

// OpenFile opens a saved capture.
func OpenFile(path string) (*pcap.Handle, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("could not open capture file: %w", err)
	}
	return handle, nil
}

// Packets returns the decoded packet stream of an open handle.
func Packets(handle *pcap.Handle) <-chan gopacket.Packet {
	return gopacket.NewPacketSource(handle, handle.LinkType()).Packets()
}
