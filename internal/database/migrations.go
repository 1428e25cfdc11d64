// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/contracthub/internal/logging"
)

// Migration is a versioned schema change applied exactly once.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL
);
`

// migrations must be append-only once released.
//
// No foreign keys: DuckDB executes UPDATE on a referenced row as
// delete+insert and rejects it while references exist. DeleteUser removes a
// user's notifications in the same transaction instead. statuses is VARCHAR
// rather than a LIST for the same delete+insert behaviour.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_contracts",
		SQL: `
CREATE TABLE IF NOT EXISTS contracts (
	id VARCHAR PRIMARY KEY,
	title VARCHAR NOT NULL,
	client_name VARCHAR NOT NULL,
	description VARCHAR,
	status VARCHAR NOT NULL,
	type VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`,
	},
	{
		Version: 2,
		Name:    "create_users",
		SQL: `
CREATE TABLE IF NOT EXISTS users (
	id VARCHAR PRIMARY KEY,
	name VARCHAR NOT NULL,
	email VARCHAR NOT NULL UNIQUE,
	password_hash VARCHAR NOT NULL,
	statuses VARCHAR NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`,
	},
	{
		Version: 3,
		Name:    "create_notifications",
		SQL: `
CREATE TABLE IF NOT EXISTS notifications (
	id VARCHAR PRIMARY KEY,
	user_id VARCHAR NOT NULL,
	contract_id VARCHAR NOT NULL,
	status VARCHAR NOT NULL,
	message VARCHAR NOT NULL,
	is_read BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMP NOT NULL
);`,
	},
	{
		Version: 4,
		Name:    "index_notifications_user",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at);`,
	},
}

// migrate creates the tracking table and applies every migration not yet recorded.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.conn.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer closeQuietly(rows)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)", m.Version, m.Name, now()); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		logging.Debug().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var v int
	if err := db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
