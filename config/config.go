// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the zerofs service configuration from a YAML
// file. Non-empty defaults are set explicitly before unmarshaling, so
// an empty file yields a runnable local configuration.
package config // import "zerofs.io/config"

import (
	"net"
	"os"

	yaml "gopkg.in/yaml.v2"

	"zerofs.io/errors"
)

// Default values for a configuration with no file or an empty file.
const (
	DefaultHost     = "127.0.0.1"
	DefaultUserPort = 6600
	DefaultPeerPort = 6611

	DefaultHeartbeatInterval = 1000 // milliseconds

	DefaultStoreDir = ".zerofs"
)

// DefaultElectionTimeoutRange is the default bounds, in milliseconds,
// for the randomized election timeout of the consensus layer.
var DefaultElectionTimeoutRange = [2]int{150, 300}

// Config is the top-level service configuration.
type Config struct {
	// Network configures the service's identity and listeners.
	Network Network `yaml:"network"`

	// Store configures the durable block store.
	Store Store `yaml:"store"`

	// LogLevel selects the logging level: debug, info, error or
	// disabled. Empty means info.
	LogLevel string `yaml:"loglevel"`
}

// Network names the service and its peers.
type Network struct {
	// ID is the DID naming this file system instance. When empty it
	// is derived from the service's signing key.
	ID string `yaml:"id"`

	// Name is a human-readable instance name.
	Name string `yaml:"name"`

	// Host is the address the service binds.
	Host string `yaml:"host"`

	// UserPort serves user traffic, PeerPort replication traffic.
	UserPort int `yaml:"user_port"`
	PeerPort int `yaml:"peer_port"`

	// Seeds maps peer DIDs to their addresses.
	Seeds map[string]string `yaml:"seeds"`

	// Consensus tunes the replication layer.
	Consensus Consensus `yaml:"consensus"`
}

// Consensus holds the replication timing parameters. The replication
// state machine itself lives outside this repository; the values are
// loaded here so one file configures the whole process.
type Consensus struct {
	HeartbeatInterval    int    `yaml:"heartbeat_interval"`
	ElectionTimeoutRange [2]int `yaml:"election_timeout_range"`
}

// Store configures the durable block store.
type Store struct {
	// Dir is the directory blocks are kept in.
	Dir string `yaml:"dir"`

	// CacheEntries bounds the in-memory read cache; zero selects the
	// store's default.
	CacheEntries int `yaml:"cache_entries"`
}

// New returns a configuration with all defaults set.
func New() *Config {
	return &Config{
		Network: Network{
			Host:     DefaultHost,
			UserPort: DefaultUserPort,
			PeerPort: DefaultPeerPort,
			Consensus: Consensus{
				HeartbeatInterval:    DefaultHeartbeatInterval,
				ElectionTimeoutRange: DefaultElectionTimeoutRange,
			},
		},
		Store: Store{
			Dir: DefaultStoreDir,
		},
	}
}

// Parse unmarshals data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	const op = "config.Parse"
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at name. A missing
// file is not an error: the defaults are returned.
func Load(name string) (*Config, error) {
	const op = "config.Load"
	data, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	return Parse(data)
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	const op = "config.Validate"
	if net.ParseIP(c.Network.Host) == nil {
		return errors.E(op, errors.Errorf("invalid host %q", c.Network.Host))
	}
	if c.Network.UserPort <= 0 || c.Network.UserPort > 65535 {
		return errors.E(op, errors.Errorf("invalid user port %d", c.Network.UserPort))
	}
	if c.Network.PeerPort <= 0 || c.Network.PeerPort > 65535 {
		return errors.E(op, errors.Errorf("invalid peer port %d", c.Network.PeerPort))
	}
	if c.Network.UserPort == c.Network.PeerPort {
		return errors.E(op, errors.Errorf("user and peer ports must differ, both are %d", c.Network.UserPort))
	}
	r := c.Network.Consensus.ElectionTimeoutRange
	if r[0] > r[1] {
		return errors.E(op, errors.Errorf("election timeout range %v is inverted", r))
	}
	return nil
}
