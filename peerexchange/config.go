package peerexchange

import (
	"time"

	"github.com/uber/torrentcore/internal/bandwidth"
)

// Config defines per-connection Loop configuration.
type Config struct {
	// IncomingBufferSize bounds how many decoded messages may be queued
	// between the reader goroutine and the event loop before the reader
	// blocks.
	IncomingBufferSize int `yaml:"incoming_buffer_size"`

	// Fast enables the BEP-6 Fast extension for connections built with
	// this config, gating HaveAll/HaveNone/SuggestPiece/RejectRequest/
	// AllowedFast.
	Fast bool `yaml:"fast"`

	// PipelineLimit bounds how many block requests may be outstanding to a
	// single peer at once.
	PipelineLimit int `yaml:"pipeline_limit"`

	// RequestTimeout is how long an outstanding block request may go
	// unanswered before it is resent.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ResendCheckInterval controls how often outstanding requests are
	// checked against RequestTimeout.
	ResendCheckInterval time.Duration `yaml:"resend_check_interval"`

	// HandshakeTimeout bounds how long Dial/Accept wait for the handshake
	// exchange to complete before giving up on the connection.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	Bandwidth bandwidth.Config `yaml:"bandwidth"`
}

func (c Config) applyDefaults() Config {
	if c.IncomingBufferSize == 0 {
		c.IncomingBufferSize = 64
	}
	if c.PipelineLimit == 0 {
		c.PipelineLimit = 8
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.ResendCheckInterval == 0 {
		c.ResendCheckInterval = 2 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}
