package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := validateURL("device.access_point_url", c.Device.AccessPointURL); err != nil {
		return err
	}
	if err := validateURL("device.remote_url", c.Device.RemoteURL); err != nil {
		return err
	}
	if c.Device.WiFiURL != "" {
		if err := validateURL("device.wifi_url", c.Device.WiFiURL); err != nil {
			return err
		}
	}
	if c.Device.SubnetBase != "" {
		if ip := net.ParseIP(c.Device.SubnetBase + ".1"); ip == nil || ip.To4() == nil {
			return fmt.Errorf("device.subnet_base must be the first three octets of an IPv4 address, got %q", c.Device.SubnetBase)
		}
	}

	if c.Discovery.ProbeTimeout <= 0 {
		return errors.New("discovery.probe_timeout must be > 0")
	}
	if c.Discovery.Concurrency < 1 {
		return errors.New("discovery.concurrency must be >= 1")
	}
	if c.Discovery.OverallTimeout < c.Discovery.ProbeTimeout {
		return fmt.Errorf("discovery.overall_timeout (%v) cannot be shorter than probe_timeout (%v)",
			c.Discovery.OverallTimeout, c.Discovery.ProbeTimeout)
	}

	if c.Channel.HeartbeatInterval <= 0 {
		return errors.New("channel.heartbeat_interval must be > 0")
	}
	if c.Channel.BufferSize < 1 {
		return errors.New("channel.buffer_size must be >= 1")
	}

	if c.Controller.Backoff <= 0 {
		return errors.New("controller.backoff must be > 0")
	}
	if c.Controller.RefreshInterval <= 0 {
		return errors.New("controller.refresh_interval must be > 0")
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if err := c.Storage.Database.validate("storage.database"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.driver must be memory or postgres, got %q", c.Storage.Driver)
	}
	if c.Storage.MaxAddresses < 1 {
		return errors.New("storage.max_addresses must be >= 1")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}

// ParseLevel maps a log.level value onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", level)
}
