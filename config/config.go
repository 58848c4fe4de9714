// Package config aggregates the per-component configuration structs into a
// single document that a binary embedding this engine can load from disk.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/uber/torrentcore/core"
	"github.com/uber/torrentcore/peerexchange"
	"github.com/uber/torrentcore/udptracker"
)

// Config is the top-level configuration for an engine instance.
type Config struct {
	// PeerID identifies this client to trackers and peers, hex-encoded. If
	// empty, a random id is generated at startup.
	PeerID string `yaml:"peer_id"`

	Tracker udptracker.Config   `yaml:"tracker"`
	Peer    peerexchange.Config `yaml:"peer"`
}

func (c Config) applyDefaults() (Config, error) {
	if c.PeerID == "" {
		id, err := core.RandomPeerID()
		if err != nil {
			return Config{}, err
		}
		c.PeerID = id.String()
	}
	return c, nil
}

// Load reads and parses a Config from a YAML file at path, generating a
// random PeerID when none is set. Tracker and Peer are returned as read;
// their own defaults are applied by udptracker.New and by peerexchange's
// Dial, Accept and NewLoop.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}
	return c.applyDefaults()
}
