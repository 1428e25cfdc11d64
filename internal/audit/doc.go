// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

// Package audit keeps a security and data-change audit trail.
//
// Handlers call the Logger helpers (LogAuthSuccess, LogChange, ...) after a
// write commits. Events are queued and persisted by a background writer into
// a Store: DuckDBStore for the audit_events table next to the application
// data, or MemoryStore for tests and ephemeral deployments.
//
// Recorded types:
//
//	auth.success, auth.failure, auth.logout
//	contract.created, contract.updated, contract.deleted
//	user.created, user.modified, user.deleted, user.subscription_changed
//	data.export
//
// Logger.Serve runs retention cleanup and is supervised in the data layer.
package audit
