package client

import (
	"fmt"
	"strings"
	"time"
)

// TransportKind selects how the client reaches the server.
type TransportKind uint8

const (
	TransportAuto TransportKind = iota
	TransportTCP
	TransportUDP
	TransportMulticast
)

func (k TransportKind) String() string {
	switch k {
	case TransportTCP:
		return "tcp"
	case TransportUDP:
		return "udp"
	case TransportMulticast:
		return "multicast"
	default:
		return "auto"
	}
}

// Format selects the wire format.
type Format uint8

const (
	FormatAuto Format = iota
	FormatBinary
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatText:
		return "csv"
	default:
		return "auto"
	}
}

// ParseTransport maps a config string onto a TransportKind.
func ParseTransport(s string) (TransportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return TransportAuto, nil
	case "tcp":
		return TransportTCP, nil
	case "udp":
		return TransportUDP, nil
	case "multicast":
		return TransportMulticast, nil
	default:
		return TransportAuto, fmt.Errorf("client: unknown transport %q", s)
	}
}

// ParseFormat maps a config string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "binary":
		return FormatBinary, nil
	case "csv", "text":
		return FormatText, nil
	default:
		return FormatAuto, fmt.Errorf("client: unknown format %q", s)
	}
}

// Config defines connection and detection behavior. Zero durations are
// replaced with the defaults below at dial time.
type Config struct {
	Addr      string
	Transport TransportKind
	Format    Format

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	// DetectInterval bounds the wait for a response to one detection
	// probe.
	DetectInterval time.Duration
	// DrainInterval and MaxDrainIters bound the post-detection drain of
	// trailing probe responses.
	DrainInterval time.Duration
	MaxDrainIters int

	// Journal, when set, records every order the client sends.
	Journal Journal
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		Transport:      TransportAuto,
		Format:         FormatAuto,
		ConnectTimeout: 5 * time.Second,
		WriteTimeout:   5 * time.Second,
		DetectInterval: 250 * time.Millisecond,
		DrainInterval:  50 * time.Millisecond,
		MaxDrainIters:  8,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.DetectInterval <= 0 {
		cfg.DetectInterval = def.DetectInterval
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = def.DrainInterval
	}
	if cfg.MaxDrainIters <= 0 {
		cfg.MaxDrainIters = def.MaxDrainIters
	}
	return cfg
}
