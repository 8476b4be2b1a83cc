package engine

import (
	"time"

	"wifiwatch/internal/models"
)

// EventKind names an event. The values are stable and used as subjects
// by the publisher.
type EventKind string

const (
	EventAppear  EventKind = "appear"
	EventChange  EventKind = "change"
	EventSignal  EventKind = "signal"
	EventVanish  EventKind = "vanish"
	EventJoin    EventKind = "join"
	EventLeave   EventKind = "leave"
	EventFormer  EventKind = "former"
	EventDHCP    EventKind = "dhcp"
	EventError   EventKind = "error"
	EventCommand EventKind = "command"
	EventStop    EventKind = "stop"

	// EventEmpty fires when a scan finds no networks.
	// Deprecated: kept for existing consumers.
	EventEmpty EventKind = "empty"
	// EventBatch carries every record of a scan before classification.
	// Deprecated: kept for existing consumers.
	EventBatch EventKind = "batch"
)

// Event is one notification from the engine. Which payload field is set
// depends on Kind:
//
//	appear, change, signal, vanish, join: Network
//	former:                               Link
//	dhcp:                                 IP
//	error:                                Message
//	command:                              Command
//	batch:                                Networks
type Event struct {
	Kind     EventKind              `json:"kind"`
	Time     time.Time              `json:"time"`
	Network  *models.NetworkRecord  `json:"network,omitempty"`
	Networks []models.NetworkRecord `json:"networks,omitempty"`
	Link     *models.LinkInfo       `json:"link,omitempty"`
	IP       string                 `json:"ip,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Command  string                 `json:"command,omitempty"`
}

func networkEvent(kind EventKind, n models.NetworkRecord) Event {
	return Event{Kind: kind, Network: &n}
}
