// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package config loads BookHub configuration from layered sources:
// built-in defaults, an optional YAML file, and environment variables.
// Precedence is ENV > file > defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the BookHub server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Security  SecurityConfig  `koanf:"security"`
	Realtime  RealtimeConfig  `koanf:"realtime"`
	Covers    CoversConfig    `koanf:"covers"`
	Search    SearchConfig    `koanf:"search"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig holds Badger document store settings.
type StoreConfig struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
	// Seed populates an empty store with sample catalog data.
	Seed bool `koanf:"seed"`
}

// AnalyticsConfig holds DuckDB analytics settings.
type AnalyticsConfig struct {
	Enabled bool `koanf:"enabled"`
	// Path is the DuckDB database file. Empty means in-memory.
	Path string `koanf:"path"`
}

// SecurityConfig holds authentication and rate limit settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminEmail        string        `koanf:"admin_email"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// RealtimeConfig holds catalog sync channel settings.
type RealtimeConfig struct {
	// PollWindow is how long a long-poll request is held open before
	// returning an empty batch.
	PollWindow time.Duration `koanf:"poll_window"`
	// SessionTimeout evicts polling sessions that stop polling.
	SessionTimeout time.Duration `koanf:"session_timeout"`
	// SendBuffer is the per-session outbound queue length.
	SendBuffer int `koanf:"send_buffer"`
	// BroadcastBuffer is the hub's inbound broadcast queue length.
	BroadcastBuffer int `koanf:"broadcast_buffer"`
}

// CoversConfig holds Open Library cover lookup settings.
type CoversConfig struct {
	Enabled       bool          `koanf:"enabled"`
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Burst         int           `koanf:"burst"`
}

// SearchConfig holds Google Books catalog search settings.
type SearchConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	// MaxResults caps how many volumes one search returns upstream.
	MaxResults    int           `koanf:"max_results"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Burst         int           `koanf:"burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would prevent the
// server from operating correctly.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required (set JWT_SECRET)")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("security.session_timeout must be positive, got %s", c.Security.SessionTimeout)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Realtime.PollWindow <= 0 {
		return fmt.Errorf("realtime.poll_window must be positive, got %s", c.Realtime.PollWindow)
	}
	if c.Realtime.SessionTimeout < c.Realtime.PollWindow {
		return fmt.Errorf("realtime.session_timeout (%s) must not be shorter than realtime.poll_window (%s)",
			c.Realtime.SessionTimeout, c.Realtime.PollWindow)
	}
	if c.Realtime.SendBuffer < 1 {
		return fmt.Errorf("realtime.send_buffer must be at least 1, got %d", c.Realtime.SendBuffer)
	}
	if c.Realtime.BroadcastBuffer < 1 {
		return fmt.Errorf("realtime.broadcast_buffer must be at least 1, got %d", c.Realtime.BroadcastBuffer)
	}
	if c.Covers.Enabled {
		if c.Covers.BaseURL == "" {
			return fmt.Errorf("covers.base_url is required when covers.enabled is set")
		}
		if c.Covers.RatePerSecond <= 0 {
			return fmt.Errorf("covers.rate_per_second must be positive, got %f", c.Covers.RatePerSecond)
		}
	}
	if c.Search.Enabled {
		if c.Search.BaseURL == "" {
			return fmt.Errorf("search.base_url is required when search.enabled is set")
		}
		if c.Search.MaxResults < 1 {
			return fmt.Errorf("search.max_results must be at least 1, got %d", c.Search.MaxResults)
		}
		if c.Search.RatePerSecond <= 0 {
			return fmt.Errorf("search.rate_per_second must be positive, got %f", c.Search.RatePerSecond)
		}
	}
	return nil
}
