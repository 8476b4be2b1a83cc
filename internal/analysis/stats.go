package analysis

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"wifiwatch/internal/engine"
	"wifiwatch/internal/models"
)

// EventCount holds how often one event kind was seen.
type EventCount struct {
	Kind  engine.EventKind
	Count int64
}

// EventEntry is one line of the session's event log.
type EventEntry struct {
	Kind      engine.EventKind
	Summary   string
	Timestamp time.Time
}

// Connection is the association state as last reported.
type Connection struct {
	Connected bool
	Address   string
	SSID      string
	IP        string
}

// SessionStats folds the engine's event stream into a view for display and
// reporting. It is safe for concurrent use.
type SessionStats struct {
	mu        sync.Mutex
	sessionID string
	started   time.Time

	counts   map[engine.EventKind]int64
	networks map[string]models.NetworkRecord
	vanished map[string]bool

	eventLog    []EventEntry
	maxEventLog int
	connection  Connection

	alertDetector *AlertDetector
}

// NewSessionStats creates stats for one monitoring session.
func NewSessionStats(sessionID string) *SessionStats {
	return &SessionStats{
		sessionID:     sessionID,
		started:       time.Now(),
		counts:        make(map[engine.EventKind]int64),
		networks:      make(map[string]models.NetworkRecord),
		vanished:      make(map[string]bool),
		eventLog:      make([]EventEntry, 0),
		maxEventLog:   50, // Keep last 50 events
		alertDetector: NewAlertDetector(DefaultConfig()),
	}
}

// SessionID identifies the session.
func (s *SessionStats) SessionID() string {
	return s.sessionID
}

// Started is when the session began.
func (s *SessionStats) Started() time.Time {
	return s.started
}

// ProcessEvent updates stats with one engine event.
func (s *SessionStats) ProcessEvent(ev engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[ev.Kind]++

	switch ev.Kind {
	case engine.EventBatch:
		for _, n := range ev.Networks {
			if s.vanished[n.Address] {
				delete(s.vanished, n.Address)
				s.alertDetector.NetworkReturned(n)
			}
			if old, ok := s.networks[n.Address]; ok {
				n.LastTick = old.LastTick
			}
			s.networks[n.Address] = n
		}
	case engine.EventAppear:
		s.networks[ev.Network.Address] = *ev.Network
		s.alertDetector.NetworkAppeared(*ev.Network)
	case engine.EventChange, engine.EventSignal:
		s.networks[ev.Network.Address] = *ev.Network
	case engine.EventVanish:
		s.networks[ev.Network.Address] = *ev.Network
		s.vanished[ev.Network.Address] = true
	case engine.EventJoin:
		s.connection = Connection{Connected: true, Address: ev.Network.Address, SSID: ev.Network.SSID}
	case engine.EventFormer:
		s.connection = Connection{Connected: true, Address: ev.Link.Address, SSID: ev.Link.SSID}
	case engine.EventLeave:
		s.connection = Connection{}
	case engine.EventDHCP:
		s.connection.IP = ev.IP
	case engine.EventError:
		s.alertDetector.EngineError(ev.Message)
	}

	if ev.Kind == engine.EventCommand || ev.Kind == engine.EventBatch {
		return
	}

	s.eventLog = append(s.eventLog, EventEntry{
		Kind:      ev.Kind,
		Summary:   Summarize(ev),
		Timestamp: ev.Time,
	})

	// Keep circular buffer (last N entries)
	if len(s.eventLog) > s.maxEventLog {
		s.eventLog = s.eventLog[len(s.eventLog)-s.maxEventLog:]
	}
}

// Summarize renders an event as one human readable line.
func Summarize(ev engine.Event) string {
	switch {
	case ev.Network != nil:
		return fmt.Sprintf("%s (%s)", ev.Network.SSID, ev.Network.Address)
	case ev.Link != nil:
		return fmt.Sprintf("%s (%s)", ev.Link.SSID, ev.Link.Address)
	case ev.IP != "":
		return ev.IP
	case ev.Message != "":
		return ev.Message
	case ev.Command != "":
		return ev.Command
	default:
		return string(ev.Kind)
	}
}

// GetNetworks returns every network seen this session, present ones first,
// then by descending signal.
func (s *SessionStats) GetNetworks() []models.NetworkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.NetworkRecord, 0, len(s.networks))
	for _, n := range s.networks {
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		vi, vj := s.vanished[out[i].Address], s.vanished[out[j].Address]
		if vi != vj {
			return !vi
		}
		si, sj := signalOf(out[i]), signalOf(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// GetStrongest returns up to limit present networks by descending signal.
func (s *SessionStats) GetStrongest(limit int) []models.NetworkRecord {
	all := s.GetNetworks()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.NetworkRecord, 0, limit)
	for _, n := range all {
		if len(out) == limit {
			break
		}
		if !s.vanished[n.Address] {
			out = append(out, n)
		}
	}
	return out
}

// IsVanished reports whether the network's last state was vanished.
func (s *SessionStats) IsVanished(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vanished[address]
}

// TotalSeen is the number of distinct networks seen this session.
func (s *SessionStats) TotalSeen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.networks)
}

// GetEventCounts returns counts per event kind, most frequent first.
func (s *SessionStats) GetEventCounts() []EventCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]EventCount, 0, len(s.counts))
	for kind, count := range s.counts {
		stats = append(stats, EventCount{Kind: kind, Count: count})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Kind < stats[j].Kind
	})

	return stats
}

// Count returns how many events of kind were seen.
func (s *SessionStats) Count(kind engine.EventKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

// GetEventLog returns the recent event log entries.
func (s *SessionStats) GetEventLog() []EventEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Return a copy to avoid race conditions
	result := make([]EventEntry, len(s.eventLog))
	copy(result, s.eventLog)
	return result
}

// Connection returns the last reported association.
func (s *SessionStats) Connection() Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connection
}

// GetAlerts returns the five most recent alerts.
func (s *SessionStats) GetAlerts() []Alert {
	// Alert detector has its own mutex, no need to lock here
	return s.alertDetector.GetRecentAlerts(5)
}

// GetAllAlerts returns the whole alert history.
func (s *SessionStats) GetAllAlerts() []Alert {
	return s.alertDetector.GetRecentAlerts(s.alertDetector.config.MaxAlerts)
}

func signalOf(n models.NetworkRecord) int {
	if n.Signal == nil {
		return -1 << 30
	}
	return *n.Signal
}
