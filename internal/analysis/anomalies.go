package analysis

import (
	"fmt"
	"sync"
	"time"

	"wifiwatch/internal/models"
)

// AlertType represents the type of alert raised.
type AlertType string

const (
	AlertOpenNetwork AlertType = "OPEN_NETWORK"
	AlertFlapping    AlertType = "FLAPPING"
	AlertEngineError AlertType = "ENGINE_ERROR"
)

// Config holds configuration for the alert detector.
type Config struct {
	OpenCooldown  time.Duration // Minimum gap between open-network alerts per address
	FlapThreshold int           // Returns after vanishing tolerated inside FlapWindow
	FlapWindow    time.Duration // Window over which returns are counted
	MaxAlerts     int           // Alerts kept in history
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		OpenCooldown:  10 * time.Minute,
		FlapThreshold: 3,
		FlapWindow:    30 * time.Minute,
		MaxAlerts:     20,
	}
}

// Alert represents a noteworthy condition seen in the event stream.
type Alert struct {
	Type      AlertType
	Source    string // Address, or "engine"
	Message   string
	Timestamp time.Time
}

// AlertDetector watches classified networks for conditions worth flagging.
type AlertDetector struct {
	mu sync.Mutex

	config Config
	now    func() time.Time

	// Open network throttling: address -> last alert time
	openAlerts map[string]time.Time

	// Flapping: address -> return count and window start
	returnCount  map[string]int
	returnWindow map[string]time.Time

	alerts []Alert
}

// NewAlertDetector creates a detector.
func NewAlertDetector(cfg Config) *AlertDetector {
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = DefaultConfig().MaxAlerts
	}
	return &AlertDetector{
		config:       cfg,
		now:          time.Now,
		openAlerts:   make(map[string]time.Time),
		returnCount:  make(map[string]int),
		returnWindow: make(map[string]time.Time),
		alerts:       make([]Alert, 0),
	}
}

// NetworkAppeared flags open networks.
func (ad *AlertDetector) NetworkAppeared(n models.NetworkRecord) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if !n.Open() {
		return
	}
	now := ad.now()
	if last, ok := ad.openAlerts[n.Address]; ok && now.Sub(last) <= ad.config.OpenCooldown {
		return
	}
	ad.openAlerts[n.Address] = now
	ad.addAlert(Alert{
		Type:      AlertOpenNetwork,
		Source:    n.Address,
		Message:   fmt.Sprintf("Unencrypted network %q on %s", n.SSID, n.Address),
		Timestamp: now,
	})
}

// NetworkReturned counts a network seen again after it vanished.
func (ad *AlertDetector) NetworkReturned(n models.NetworkRecord) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	now := ad.now()
	if start, ok := ad.returnWindow[n.Address]; !ok || now.Sub(start) > ad.config.FlapWindow {
		ad.returnWindow[n.Address] = now
		ad.returnCount[n.Address] = 0
	}
	ad.returnCount[n.Address]++

	if ad.returnCount[n.Address] > ad.config.FlapThreshold {
		ad.addAlert(Alert{
			Type:      AlertFlapping,
			Source:    n.Address,
			Message:   fmt.Sprintf("Network %q keeps vanishing and returning (%d times)", n.SSID, ad.returnCount[n.Address]),
			Timestamp: now,
		})
		// Reset to avoid spam
		delete(ad.returnWindow, n.Address)
		delete(ad.returnCount, n.Address)
	}
}

// EngineError records a failure reported by the engine.
func (ad *AlertDetector) EngineError(msg string) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	ad.addAlert(Alert{
		Type:      AlertEngineError,
		Source:    "engine",
		Message:   msg,
		Timestamp: ad.now(),
	})
}

// addAlert adds an alert to the history (circular buffer).
func (ad *AlertDetector) addAlert(alert Alert) {
	ad.alerts = append(ad.alerts, alert)

	if len(ad.alerts) > ad.config.MaxAlerts {
		ad.alerts = ad.alerts[len(ad.alerts)-ad.config.MaxAlerts:]
	}
}

// GetRecentAlerts returns up to limit of the newest alerts, newest last.
func (ad *AlertDetector) GetRecentAlerts(limit int) []Alert {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	start := 0
	if len(ad.alerts) > limit {
		start = len(ad.alerts) - limit
	}

	result := make([]Alert, len(ad.alerts)-start)
	copy(result, ad.alerts[start:])

	return result
}
