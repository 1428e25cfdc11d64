// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the server process.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Security      SecurityConfig      `koanf:"security"`
	Logging       LoggingConfig       `koanf:"logging"`
	Realtime      RealtimeConfig      `koanf:"realtime"`
	Events        EventsConfig        `koanf:"events"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Audit         AuditConfig         `koanf:"audit"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB file, or ":memory:" for an ephemeral database.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads of 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// SecurityConfig holds authentication, session and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// SessionStore is "memory" or "badger".
	SessionStore     string `koanf:"session_store"`
	SessionStorePath string `koanf:"session_store_path"`

	BcryptCost        int           `koanf:"bcrypt_cost"`
	CookieSecure      bool          `koanf:"cookie_secure"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	LoginRateLimit    int           `koanf:"login_rate_limit"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RealtimeConfig tunes the websocket hub.
type RealtimeConfig struct {
	BroadcastBuffer int   `koanf:"broadcast_buffer"`
	SendBuffer      int   `koanf:"send_buffer"`
	MaxMessageSize  int64 `koanf:"max_message_size"`
	// InboundRate is the sustained client frames per second; InboundBurst the bucket size.
	InboundRate  float64 `koanf:"inbound_rate"`
	InboundBurst int     `koanf:"inbound_burst"`
}

// EventsConfig selects the event bus that carries contract updates from the
// dispatcher to the realtime hub.
type EventsConfig struct {
	// Backend is "memory" (watermill gochannel) or "nats".
	Backend string `koanf:"backend"`
	Topic   string `koanf:"topic"`

	NATSURL string `koanf:"nats_url"`
	// Embedded starts an in-process nats-server and ignores NATSURL.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port"`

	// BreakerMaxFailures consecutive publish failures open the circuit.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// NotificationsConfig controls the notification snapshot returned to clients.
type NotificationsConfig struct {
	WindowDays int `koanf:"window_days"`
	ListLimit  int `koanf:"list_limit"`
	UnreadCap  int `koanf:"unread_cap"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`
	// Store is "duckdb" (the application database) or "memory".
	Store         string `koanf:"store"`
	RetentionDays int    `koanf:"retention_days"`
	BufferSize    int    `koanf:"buffer_size"`
	LogToStdout   bool   `koanf:"log_to_stdout"`
}

// Window returns WindowDays as a duration.
func (n NotificationsConfig) Window() time.Duration {
	return time.Duration(n.WindowDays) * 24 * time.Hour
}

// Validate checks cross-field constraints after all sources are merged.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if len(c.Security.JWTSecret) < 32 {
		errs = append(errs, errors.New("security.jwt_secret must be at least 32 characters"))
	}
	if c.Security.SessionTimeout <= 0 {
		errs = append(errs, errors.New("security.session_timeout must be positive"))
	}
	switch c.Security.SessionStore {
	case "memory":
	case "badger":
		if c.Security.SessionStorePath == "" {
			errs = append(errs, errors.New("security.session_store_path is required when session_store is badger"))
		}
	default:
		errs = append(errs, fmt.Errorf("security.session_store must be memory or badger, got %q", c.Security.SessionStore))
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("security.bcrypt_cost must be between 4 and 31, got %d", c.Security.BcryptCost))
	}
	switch strings.ToLower(c.Events.Backend) {
	case "memory":
	case "nats":
		if !c.Events.Embedded && c.Events.NATSURL == "" {
			errs = append(errs, errors.New("events.nats_url is required when events.backend is nats and embedded is false"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.backend must be memory or nats, got %q", c.Events.Backend))
	}
	if c.Events.Topic == "" {
		errs = append(errs, errors.New("events.topic is required"))
	}
	if c.Notifications.WindowDays <= 0 || c.Notifications.ListLimit <= 0 || c.Notifications.UnreadCap <= 0 {
		errs = append(errs, errors.New("notifications.window_days, list_limit and unread_cap must be positive"))
	}
	if c.Audit.Enabled {
		switch c.Audit.Store {
		case "duckdb", "memory":
		default:
			errs = append(errs, fmt.Errorf("audit.store must be duckdb or memory, got %q", c.Audit.Store))
		}
		if c.Audit.RetentionDays < 0 {
			errs = append(errs, errors.New("audit.retention_days must not be negative"))
		}
	}
	if c.Realtime.SendBuffer <= 0 || c.Realtime.BroadcastBuffer <= 0 {
		errs = append(errs, errors.New("realtime buffers must be positive"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from defaults, an optional YAML file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
