// Package config loads the orderwire TOML configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/orderwire/internal/client"
)

// Config is the full runtime configuration.
type Config struct {
	Client  client.Config
	Debug   DebugConfig
	Journal JournalConfig
	Relay   RelayConfig
}

// DebugConfig controls the debug HTTP surface. An empty Addr disables it.
type DebugConfig struct {
	Addr string
}

// JournalConfig controls the outbound order journal.
type JournalConfig struct {
	Enabled bool
	Dir     string
}

// RelayConfig controls the Kafka feed relay.
type RelayConfig struct {
	Brokers   []string
	Topic     string
	RingSlots int
}

// fileConfig is the flat TOML key mapping.
type fileConfig struct {
	Addr      string `toml:"addr"`
	Transport string `toml:"transport"`
	Format    string `toml:"format"`

	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
	WriteTimeoutMS   int `toml:"write_timeout_ms"`
	DetectIntervalMS int `toml:"detect_interval_ms"`
	DrainIntervalMS  int `toml:"drain_interval_ms"`
	MaxDrainIters    int `toml:"max_drain_iters"`

	DebugAddr string `toml:"debug_addr"`

	JournalEnabled bool   `toml:"journal_enabled"`
	JournalDir     string `toml:"journal_dir"`

	RelayBrokers   []string `toml:"relay_brokers"`
	RelayTopic     string   `toml:"relay_topic"`
	RelayRingSlots int      `toml:"relay_ring_slots"`
}

// Default returns the configuration used when no file key overrides it.
func Default() Config {
	return Config{
		Client: client.DefaultConfig(),
		Journal: JournalConfig{
			Dir: "./journal",
		},
		Relay: RelayConfig{
			Topic:     "orderwire.feed",
			RingSlots: 1024,
		},
	}
}

// Load reads path and overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("addr") {
		cfg.Client.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("transport") {
		t, err := client.ParseTransport(raw.Transport)
		if err != nil {
			return Config{}, err
		}
		cfg.Client.Transport = t
	}
	if meta.IsDefined("format") {
		f, err := client.ParseFormat(raw.Format)
		if err != nil {
			return Config{}, err
		}
		cfg.Client.Format = f
	}
	if meta.IsDefined("connect_timeout_ms") {
		cfg.Client.ConnectTimeout = time.Duration(raw.ConnectTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("write_timeout_ms") {
		cfg.Client.WriteTimeout = time.Duration(raw.WriteTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("detect_interval_ms") {
		cfg.Client.DetectInterval = time.Duration(raw.DetectIntervalMS) * time.Millisecond
	}
	if meta.IsDefined("drain_interval_ms") {
		cfg.Client.DrainInterval = time.Duration(raw.DrainIntervalMS) * time.Millisecond
	}
	if meta.IsDefined("max_drain_iters") {
		cfg.Client.MaxDrainIters = raw.MaxDrainIters
	}
	if meta.IsDefined("debug_addr") {
		cfg.Debug.Addr = strings.TrimSpace(raw.DebugAddr)
	}
	if meta.IsDefined("journal_enabled") {
		cfg.Journal.Enabled = raw.JournalEnabled
	}
	if meta.IsDefined("journal_dir") {
		cfg.Journal.Dir = strings.TrimSpace(raw.JournalDir)
	}
	if meta.IsDefined("relay_brokers") {
		cfg.Relay.Brokers = raw.RelayBrokers
	}
	if meta.IsDefined("relay_topic") {
		cfg.Relay.Topic = strings.TrimSpace(raw.RelayTopic)
	}
	if meta.IsDefined("relay_ring_slots") {
		cfg.Relay.RingSlots = raw.RelayRingSlots
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot dial.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Client.Addr) == "" {
		return fmt.Errorf("config missing addr")
	}
	if cfg.Journal.Enabled && strings.TrimSpace(cfg.Journal.Dir) == "" {
		return fmt.Errorf("config journal_dir required when journal_enabled")
	}
	if cfg.Relay.RingSlots < 2 {
		return fmt.Errorf("config relay_ring_slots must be at least 2")
	}
	return nil
}
