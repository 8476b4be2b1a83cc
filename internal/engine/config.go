package engine

import "time"

// Config controls the monitor's cadences and commands.
type Config struct {
	// Interface is the primary wireless interface. Defaults to wlan0.
	Interface string
	// Interface2 is scanned when the primary reports busy or aborts. Optional.
	Interface2 string
	// UpdateFrequency is the scan cadence. Defaults to 60s.
	UpdateFrequency time.Duration
	// ConnectionSpyFrequency is the link status cadence. Defaults to 5s.
	ConnectionSpyFrequency time.Duration
	// VanishThreshold is the number of missed scans before a network vanishes. Defaults to 2.
	VanishThreshold int
	// PurgeVanished removes networks from the registry when they vanish.
	PurgeVanished bool
	// Commands overrides entries of the default command table.
	Commands map[string]string
	// EventBuffer is the capacity of the event channel. Defaults to 64.
	EventBuffer int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Interface:              "wlan0",
		UpdateFrequency:        60 * time.Second,
		ConnectionSpyFrequency: 5 * time.Second,
		VanishThreshold:        2,
		EventBuffer:            64,
	}
}

func applyDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Interface == "" {
		cfg.Interface = def.Interface
	}
	if cfg.UpdateFrequency <= 0 {
		cfg.UpdateFrequency = def.UpdateFrequency
	}
	if cfg.ConnectionSpyFrequency <= 0 {
		cfg.ConnectionSpyFrequency = def.ConnectionSpyFrequency
	}
	if cfg.VanishThreshold <= 0 {
		cfg.VanishThreshold = def.VanishThreshold
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	return cfg
}
