// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package config loads and validates Contracthub configuration.

Sources are layered with Koanf v2, later layers overriding earlier ones:

  - Built-in defaults (defaultConfig)
  - An optional YAML file (CONFIG_PATH, or config.yaml in the working directory)
  - Environment variables, mapped explicitly in envTransformFunc

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT (default 0.0.0.0:8080)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, SHUTDOWN_TIMEOUT

Database:
  - DUCKDB_PATH (default /data/contracthub.duckdb, ":memory:" for ephemeral)
  - DUCKDB_MAX_MEMORY, DUCKDB_THREADS

Security:
  - JWT_SECRET (required, 32+ characters)
  - SESSION_TIMEOUT (default 24h), SESSION_STORE (memory|badger), SESSION_STORE_PATH
  - BCRYPT_COST (default 10), COOKIE_SECURE
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, LOGIN_RATE_LIMIT, DISABLE_RATE_LIMIT
  - CORS_ORIGINS (comma-separated)

Events:
  - EVENTS_BACKEND (memory|nats), EVENTS_TOPIC
  - NATS_URL, NATS_EMBEDDED, NATS_EMBEDDED_HOST, NATS_EMBEDDED_PORT

Notifications:
  - NOTIFICATIONS_WINDOW_DAYS (30), NOTIFICATIONS_LIST_LIMIT (50), NOTIFICATIONS_UNREAD_CAP (9)
*/
package config
