package models

// UnknownSSID is used when a scan block carries no SSID line.
const UnknownSSID = "unknown"

// NetworkRecord holds the information parsed for one access point.
type NetworkRecord struct {
	Address string `json:"address"` // lowercase colon-hex BSSID
	SSID    string `json:"ssid"`

	// Optional numeric fields, nil when the scan did not report them.
	Channel *int `json:"channel,omitempty"`
	Signal  *int `json:"signal,omitempty"`
	Quality *int `json:"quality,omitempty"`

	// Encryption indicators are independent; WPA and WPA2 may both be set.
	EncryptionAny  bool `json:"encryption_any"`
	EncryptionWEP  bool `json:"encryption_wep"`
	EncryptionWPA  bool `json:"encryption_wpa"`
	EncryptionWPA2 bool `json:"encryption_wpa2"`

	// LastTick counts scan cycles since the record was last observed.
	LastTick int `json:"last_tick"`
}

// NewNetworkRecord returns a record with the defaults a fresh scan block starts from.
func NewNetworkRecord(address string) NetworkRecord {
	return NetworkRecord{Address: address, SSID: UnknownSSID}
}

// Open reports whether the network advertises no encryption at all.
func (n NetworkRecord) Open() bool {
	return !n.EncryptionAny && !n.EncryptionWEP && !n.EncryptionWPA && !n.EncryptionWPA2
}

// Security returns a short label for the strongest advertised scheme.
func (n NetworkRecord) Security() string {
	switch {
	case n.EncryptionWPA2:
		return "WPA2"
	case n.EncryptionWPA:
		return "WPA"
	case n.EncryptionWEP:
		return "WEP"
	case n.EncryptionAny:
		return "Encrypted"
	default:
		return "Open"
	}
}

// LinkInfo is the association reported by the link status command.
type LinkInfo struct {
	Address string `json:"address"`
	SSID    string `json:"ssid,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// EqualInt compares two optional integers.
func EqualInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
