package udptracker

import (
	"time"

	"github.com/uber/torrentcore/internal/backoff"
)

// Config defines Manager configuration.
type Config struct {
	MaxPacketSize int           `yaml:"max_packet_size"`
	MinTimeout    time.Duration `yaml:"min_timeout"`
	MaxTimeout    time.Duration `yaml:"max_timeout"`
	Multiplier    float64       `yaml:"multiplier"`

	// ConnectionTTL bounds how long a cached connection id may be reused
	// before a fresh Connect exchange is required.
	ConnectionTTL time.Duration `yaml:"connection_ttl"`

	SendBufferSize int `yaml:"send_buffer_size"`

	// Retry bounds AnnounceWithRetry's retry budget across whole Announce
	// attempts. It is independent of MinTimeout/MaxTimeout/Multiplier, which
	// govern retransmission within a single Announce's RPC round trip.
	Retry backoff.Config `yaml:"retry"`
}

func (c Config) applyDefaults() Config {
	if c.MaxPacketSize == 0 {
		c.MaxPacketSize = 1478 // Below the common internet MTU of 1500, minus headers.
	}
	if c.MinTimeout == 0 {
		c.MinTimeout = 15 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2
	}
	if c.MaxTimeout == 0 {
		c.MaxTimeout = 15 * (1 << 8) * time.Second
	}
	if c.ConnectionTTL == 0 {
		c.ConnectionTTL = 60 * time.Second
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = 64
	}
	return c
}
