// Package tracker follows whether the host is associated with a network.
package tracker

import "wifiwatch/internal/models"

// State of the connection.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Transition describes what one poll changed.
type Transition int

const (
	TransitionNone Transition = iota
	// TransitionJoin means the joined network is a known record.
	TransitionJoin
	// TransitionFormer means the joined network has not been seen by scans.
	TransitionFormer
	TransitionLeave
)

func (t Transition) String() string {
	switch t {
	case TransitionJoin:
		return "join"
	case TransitionFormer:
		return "former"
	case TransitionLeave:
		return "leave"
	default:
		return "none"
	}
}

// Lookup resolves an address against the known networks.
type Lookup func(address string) (models.NetworkRecord, bool)

// Result is the outcome of one poll.
type Result struct {
	Transition Transition
	Network    models.NetworkRecord // set for TransitionJoin
	Link       models.LinkInfo      // set for TransitionJoin and TransitionFormer
}

// Tracker is a two-state machine fed by successive link polls. It is not
// safe for concurrent use.
type Tracker struct {
	state   State
	address string
}

// New returns a tracker in the Disconnected state.
func New() *Tracker {
	return &Tracker{}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// Address returns the joined network's address, empty when disconnected.
func (t *Tracker) Address() string {
	return t.address
}

// Reset forces the Disconnected state without emitting anything, so the next
// associated poll reports a join.
func (t *Tracker) Reset() {
	t.state = Disconnected
	t.address = ""
}

// Poll feeds one link status result; link is nil when not associated. While
// Connected, a different address is not treated as a new join.
func (t *Tracker) Poll(link *models.LinkInfo, lookup Lookup) Result {
	switch {
	case link == nil && t.state == Connected:
		t.Reset()
		return Result{Transition: TransitionLeave}

	case link != nil && t.state == Disconnected:
		t.state = Connected
		t.address = link.Address
		if lookup != nil {
			if n, ok := lookup(link.Address); ok {
				return Result{Transition: TransitionJoin, Network: n, Link: *link}
			}
		}
		return Result{Transition: TransitionFormer, Link: *link}
	}

	return Result{Transition: TransitionNone}
}
