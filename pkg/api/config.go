package api

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultBindAddress = "127.0.0.1"

	DefaultPort = 9470
)

// APIConfig configures the status server: health probes, per-cache scheduler
// state, and the Prometheus endpoint when metrics are on.
type APIConfig struct {
	// Enabled controls whether the server is started. nil means enabled.
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// BindAddress is the host or IP to listen on.
	// Default: 127.0.0.1
	BindAddress string `mapstructure:"bind_address" validate:"omitempty,ip|hostname" yaml:"bind_address"`

	// Default: 9470
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// Default: 5s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout also bounds a /metrics scrape.
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// Default: 30s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled reports whether the server should start.
func (c *APIConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ListenAddr returns the host:port the server listens on.
func (c *APIConfig) ListenAddr() string {
	host := c.BindAddress
	if host == "" {
		host = DefaultBindAddress
	}
	port := c.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ApplyDefaults fills zero values.
func (c *APIConfig) ApplyDefaults() {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Second
	}
}
