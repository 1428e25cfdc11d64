// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package main is the entry point for the Contracthub server.

Contracthub manages contracts and users and notifies every user subscribed to
a contract status when a contract is created in, or moved to, that status.
Notifications are persisted in DuckDB and pushed to connected browsers over a
websocket.

# Startup Order

 1. Configuration: defaults, optional config.yaml, environment (Koanf v2)
 2. Logging: zerolog, level and format from configuration
 3. Database: DuckDB with schema migrations
 4. Sessions and JWT authentication
 5. Realtime hub, event bus (watermill gochannel or NATS) and forwarder
 6. HTTP router (chi) and server

Long-running parts run under a suture supervisor tree:

	contracthub
	├── data-layer       session-cleanup, audit-retention
	├── messaging-layer  realtime-hub, event-forwarder
	└── api-layer        http-server

# Configuration

Environment variables map onto config keys by lowercasing and replacing the
first underscore with a dot:

	SERVER_PORT=8080
	DATABASE_PATH=/data/contracthub.duckdb
	SECURITY_JWT_SECRET=$(openssl rand -base64 32)
	SECURITY_CORS_ORIGINS=https://app.example.com
	EVENTS_BACKEND=nats
	EVENTS_EMBEDDED=true

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server first (draining requests for server.shutdown_timeout), then the hub
and forwarder, then closes the event bus, session store and database.
*/
package main
