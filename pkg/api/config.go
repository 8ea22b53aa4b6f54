// Package api serves the dashboard data and configuration snapshots
// over HTTP as JSON. It is the delivery surface in front of the
// configuration store and the warehouse client; chart rendering happens
// entirely in whatever consumes these endpoints.
package api

import "time"

// DefaultAddr is the default API listen address.
const DefaultAddr = ":8080"

// Config holds API server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" json:"addr"`
	// DefaultSource is the data source served when a request does not
	// name one.
	DefaultSource string `yaml:"default_source" json:"default_source"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DefaultSource == "" {
		c.DefaultSource = "weather_data"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}
