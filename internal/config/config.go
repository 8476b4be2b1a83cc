// Package config loads the monitor's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wifiwatch/internal/command"
	"wifiwatch/internal/engine"
	"wifiwatch/internal/logger"
	"wifiwatch/internal/publish"
)

var (
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrInvalidThreshold = errors.New("invalid vanish threshold")
	ErrInvalidCommand   = errors.New("invalid command override")
)

type Config struct {
	Wireless WirelessConfig `yaml:"wireless"`
	Logging  logger.Config  `yaml:"logging"`
	NATS     NATSConfig     `yaml:"nats"`
	Report   ReportConfig   `yaml:"report"`
}

type WirelessConfig struct {
	Interface              string            `yaml:"interface"`
	Interface2             string            `yaml:"interface2"`
	UpdateFrequency        time.Duration     `yaml:"update_frequency"`
	ConnectionSpyFrequency time.Duration     `yaml:"connection_spy_frequency"`
	VanishThreshold        int               `yaml:"vanish_threshold"`
	PurgeVanished          bool              `yaml:"purge_vanished"`
	Commands               map[string]string `yaml:"commands"`
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	def := engine.DefaultConfig()
	return Config{
		Wireless: WirelessConfig{
			Interface:              def.Interface,
			UpdateFrequency:        def.UpdateFrequency,
			ConnectionSpyFrequency: def.ConnectionSpyFrequency,
			VanishThreshold:        def.VanishThreshold,
		},
		Logging: logger.Config{Level: "info"},
		NATS:    NATSConfig{SubjectPrefix: publish.DefaultSubjectPrefix},
		Report:  ReportConfig{Dir: "."},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values a file may have set out of range.
func (c Config) Validate() error {
	if c.Wireless.UpdateFrequency < 0 {
		return fmt.Errorf("%w: update_frequency %s", ErrInvalidDuration, c.Wireless.UpdateFrequency)
	}
	if c.Wireless.ConnectionSpyFrequency < 0 {
		return fmt.Errorf("%w: connection_spy_frequency %s", ErrInvalidDuration, c.Wireless.ConnectionSpyFrequency)
	}
	if c.Wireless.VanishThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, c.Wireless.VanishThreshold)
	}

	known := command.Defaults()
	for name, tmpl := range c.Wireless.Commands {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: %q: %w", ErrInvalidCommand, name, command.ErrUnknownCommand)
		}
		if tmpl == "" {
			return fmt.Errorf("%w: %q is empty", ErrInvalidCommand, name)
		}
	}
	return nil
}

// Engine converts the wireless section into engine settings.
func (c Config) Engine() engine.Config {
	return engine.Config{
		Interface:              c.Wireless.Interface,
		Interface2:             c.Wireless.Interface2,
		UpdateFrequency:        c.Wireless.UpdateFrequency,
		ConnectionSpyFrequency: c.Wireless.ConnectionSpyFrequency,
		VanishThreshold:        c.Wireless.VanishThreshold,
		PurgeVanished:          c.Wireless.PurgeVanished,
		Commands:               c.Wireless.Commands,
	}
}
