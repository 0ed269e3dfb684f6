package config

import "time"

// Config is the root configuration for a viewlink client.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Channel     ChannelConfig     `yaml:"channel"`
	Controller  ControllerConfig  `yaml:"controller"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Storage     StorageConfig     `yaml:"storage"`
	Health      HealthConfig      `yaml:"health"`
	Log         LogConfig         `yaml:"log"`
}

// DeviceConfig lists the fixed places a device may be found.
type DeviceConfig struct {
	AccessPointURL string `yaml:"access_point_url"` // Device's own Wi-Fi access point
	RemoteURL      string `yaml:"remote_url"`       // Cloud relay, probed only when no local candidate answers
	WiFiURL        string `yaml:"wifi_url"`         // Optional fixed address on the home network
	SubnetBase     string `yaml:"subnet_base"`      // e.g. "192.168.31"; detected from local interfaces when empty
	SkipSubnetScan bool   `yaml:"skip_subnet_scan"`
}

// DiscoveryConfig holds host resolver settings.
type DiscoveryConfig struct {
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	Concurrency    int           `yaml:"concurrency"`
	OverallTimeout time.Duration `yaml:"overall_timeout"`
}

// ChannelConfig holds WebSocket session settings.
type ChannelConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}

// ControllerConfig holds reconnect loop settings.
type ControllerConfig struct {
	Backoff         time.Duration `yaml:"backoff"`
	InitialQueries  []string      `yaml:"initial_queries"`  // Status buckets requested after every connect
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Period for re-requesting RefreshQueries
	RefreshQueries  []string      `yaml:"refresh_queries"`
}

// CredentialsConfig holds the device account used when login is required.
type CredentialsConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// StorageConfig selects where the session token and known addresses live.
type StorageConfig struct {
	Driver       string   `yaml:"driver"`  // "memory" or "postgres"
	Profile      string   `yaml:"profile"` // Row scope when several clients share a database
	MaxAddresses int      `yaml:"max_addresses"`
	Database     DBConfig `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
