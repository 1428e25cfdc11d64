// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/contracthub/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/contracthub.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			SessionStore:      "memory",
			SessionStorePath:  "/data/sessions",
			BcryptCost:        10,
			CookieSecure:      false,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			LoginRateLimit:    10,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Realtime: RealtimeConfig{
			BroadcastBuffer: 256,
			SendBuffer:      256,
			MaxMessageSize:  64 * 1024,
			InboundRate:     5,
			InboundBurst:    10,
		},
		Events: EventsConfig{
			Backend:            "memory",
			Topic:              "contracts.updated",
			NATSURL:            "nats://127.0.0.1:4222",
			Embedded:           false,
			EmbeddedHost:       "127.0.0.1",
			EmbeddedPort:       4222,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Notifications: NotificationsConfig{
			WindowDays: 30,
			ListLimit:  50,
			UnreadCap:  9,
		},
		Audit: AuditConfig{
			Enabled:       true,
			Store:         "duckdb",
			RetentionDays: 90,
			BufferSize:    1000,
			LogToStdout:   false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources, highest priority last:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"http_host":          "server.host",
		"http_port":          "server.port",
		"http_read_timeout":  "server.read_timeout",
		"http_write_timeout": "server.write_timeout",
		"http_idle_timeout":  "server.idle_timeout",
		"shutdown_timeout":   "server.shutdown_timeout",

		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"session_store":       "security.session_store",
		"session_store_path":  "security.session_store_path",
		"bcrypt_cost":         "security.bcrypt_cost",
		"cookie_secure":       "security.cookie_secure",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"login_rate_limit":    "security.login_rate_limit",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"ws_broadcast_buffer": "realtime.broadcast_buffer",
		"ws_send_buffer":      "realtime.send_buffer",
		"ws_max_message_size": "realtime.max_message_size",
		"ws_inbound_rate":     "realtime.inbound_rate",
		"ws_inbound_burst":    "realtime.inbound_burst",

		"events_backend":              "events.backend",
		"events_topic":                "events.topic",
		"nats_url":                    "events.nats_url",
		"nats_embedded":               "events.embedded",
		"nats_embedded_host":          "events.embedded_host",
		"nats_embedded_port":          "events.embedded_port",
		"events_breaker_max_failures": "events.breaker_max_failures",
		"events_breaker_timeout":      "events.breaker_timeout",

		"notifications_window_days": "notifications.window_days",
		"notifications_list_limit":  "notifications.list_limit",
		"notifications_unread_cap":  "notifications.unread_cap",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
