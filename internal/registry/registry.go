// Package registry keeps the latest record for every access point seen by
// scanning and classifies how each scan changes that picture.
package registry

import (
	"sort"

	"wifiwatch/internal/models"
)

// Change is the classification of one record against the prior state.
type Change int

const (
	ChangeNone Change = iota
	ChangeAppear
	ChangeIdentity
	ChangeSignal
)

func (c Change) String() string {
	switch c {
	case ChangeAppear:
		return "appear"
	case ChangeIdentity:
		return "change"
	case ChangeSignal:
		return "signal"
	default:
		return "none"
	}
}

// Classification pairs a stored record with how it changed.
type Classification struct {
	Change  Change
	Network models.NetworkRecord
}

// Options tune decay.
type Options struct {
	// VanishThreshold is the number of missed scans tolerated; the record
	// vanishes on miss number VanishThreshold+1. Defaults to 2.
	VanishThreshold int
	// PurgeVanished deletes a record at the moment it vanishes.
	PurgeVanished bool
}

// DefaultVanishThreshold matches the number of missed scans tolerated by default.
const DefaultVanishThreshold = 2

// Registry maps hardware address to its latest record. It is not safe for
// concurrent use; the owner serializes Ingest, Decay and reads.
type Registry struct {
	opts      Options
	networks  map[string]models.NetworkRecord
	refreshed map[string]struct{}
}

// New creates an empty registry.
func New(opts Options) *Registry {
	if opts.VanishThreshold <= 0 {
		opts.VanishThreshold = DefaultVanishThreshold
	}
	return &Registry{
		opts:      opts,
		networks:  make(map[string]models.NetworkRecord),
		refreshed: make(map[string]struct{}),
	}
}

// VanishThreshold returns the configured threshold.
func (r *Registry) VanishThreshold() int {
	return r.opts.VanishThreshold
}

// See stores one observation and classifies it. The stored record's LastTick
// restarts at 0.
func (r *Registry) See(n models.NetworkRecord) Change {
	n.LastTick = 0
	old, exists := r.networks[n.Address]
	r.networks[n.Address] = n
	r.refreshed[n.Address] = struct{}{}

	switch {
	case !exists:
		return ChangeAppear
	case old.SSID != n.SSID || old.EncryptionAny != n.EncryptionAny:
		return ChangeIdentity
	case !models.EqualInt(old.Signal, n.Signal) || !models.EqualInt(old.Quality, n.Quality):
		return ChangeSignal
	default:
		return ChangeNone
	}
}

// Ingest applies one parsed scan. Records repeating an address within the
// same scan collapse into the last one so every address is classified once.
// Results follow the order addresses first appear in records.
func (r *Registry) Ingest(records []models.NetworkRecord) []Classification {
	latest := make(map[string]models.NetworkRecord, len(records))
	order := make([]string, 0, len(records))
	for _, rec := range records {
		if _, dup := latest[rec.Address]; !dup {
			order = append(order, rec.Address)
		}
		latest[rec.Address] = rec
	}

	out := make([]Classification, 0, len(order))
	for _, addr := range order {
		change := r.See(latest[addr])
		out = append(out, Classification{Change: change, Network: r.networks[addr]})
	}
	return out
}

// Decay ends a scan cycle: every record not refreshed since the previous
// Decay ages by one tick. Records whose LastTick reaches exactly
// VanishThreshold+1 are returned once, in address order.
func (r *Registry) Decay() []models.NetworkRecord {
	var vanished []models.NetworkRecord

	for _, addr := range r.addresses() {
		if _, ok := r.refreshed[addr]; ok {
			continue
		}
		n := r.networks[addr]
		n.LastTick++
		r.networks[addr] = n

		if n.LastTick == r.opts.VanishThreshold+1 {
			vanished = append(vanished, n)
			if r.opts.PurgeVanished {
				delete(r.networks, addr)
			}
		}
	}

	r.refreshed = make(map[string]struct{})
	return vanished
}

// Get returns the record stored for address.
func (r *Registry) Get(address string) (models.NetworkRecord, bool) {
	n, ok := r.networks[address]
	return n, ok
}

// Remove deletes a record, typically after it vanished.
func (r *Registry) Remove(address string) bool {
	if _, ok := r.networks[address]; !ok {
		return false
	}
	delete(r.networks, address)
	delete(r.refreshed, address)
	return true
}

// Len returns the number of stored records.
func (r *Registry) Len() int {
	return len(r.networks)
}

// Snapshot returns a copy of every record, sorted by address.
func (r *Registry) Snapshot() []models.NetworkRecord {
	out := make([]models.NetworkRecord, 0, len(r.networks))
	for _, addr := range r.addresses() {
		out = append(out, r.networks[addr])
	}
	return out
}

func (r *Registry) addresses() []string {
	addrs := make([]string, 0, len(r.networks))
	for addr := range r.networks {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}
