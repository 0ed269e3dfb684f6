package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultAccessPointURL    = "http://10.0.0.1/"
	DefaultRemoteURL         = "https://app.view.tl/"
	DefaultProbeTimeout      = 3 * time.Second
	DefaultProbeConcurrency  = 30
	DefaultOverallTimeout    = 45 * time.Second
	DefaultHeartbeatInterval = 3 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultBufferSize        = 256
	DefaultBackoff           = 3 * time.Second
	DefaultRefreshInterval   = time.Minute
	DefaultStorageDriver     = "memory"
	DefaultMaxAddresses      = 8
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultHealthPort        = 8080
	DefaultLogLevel          = "info"
)

// DefaultInitialQueries are the status buckets requested after each connect.
var DefaultInitialQueries = []string{"camera", "settings", "battery", "program"}

// DefaultRefreshQueries are re-requested every refresh interval.
var DefaultRefreshQueries = []string{"battery", "program"}

func (c *Config) applyDefaults() {
	// Device defaults
	if c.Device.AccessPointURL == "" {
		c.Device.AccessPointURL = DefaultAccessPointURL
	}
	if c.Device.RemoteURL == "" {
		c.Device.RemoteURL = DefaultRemoteURL
	}
	c.Device.SubnetBase = strings.TrimSuffix(c.Device.SubnetBase, ".")

	// Discovery defaults
	if c.Discovery.ProbeTimeout == 0 {
		c.Discovery.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Discovery.Concurrency == 0 {
		c.Discovery.Concurrency = DefaultProbeConcurrency
	}
	if c.Discovery.OverallTimeout == 0 {
		c.Discovery.OverallTimeout = DefaultOverallTimeout
	}

	// Channel defaults
	if c.Channel.HeartbeatInterval == 0 {
		c.Channel.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Channel.WriteTimeout == 0 {
		c.Channel.WriteTimeout = DefaultWriteTimeout
	}
	if c.Channel.HandshakeTimeout == 0 {
		c.Channel.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Channel.BufferSize == 0 {
		c.Channel.BufferSize = DefaultBufferSize
	}

	// Controller defaults
	if c.Controller.Backoff == 0 {
		c.Controller.Backoff = DefaultBackoff
	}
	if c.Controller.InitialQueries == nil {
		c.Controller.InitialQueries = append([]string(nil), DefaultInitialQueries...)
	}
	if c.Controller.RefreshInterval == 0 {
		c.Controller.RefreshInterval = DefaultRefreshInterval
	}
	if c.Controller.RefreshQueries == nil {
		c.Controller.RefreshQueries = append([]string(nil), DefaultRefreshQueries...)
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.MaxAddresses == 0 {
		c.Storage.MaxAddresses = DefaultMaxAddresses
	}
	applyDBDefaults(&c.Storage.Database)

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
