// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/contracthub/internal/logging"
)

// DuckDBStore persists audit events in the audit_events table.
type DuckDBStore struct {
	db *sqlx.DB
}

// NewDuckDBStore wraps an open DuckDB pool. Call CreateTable before use.
func NewDuckDBStore(conn *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: sqlx.NewDb(conn, "duckdb")}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id VARCHAR PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		type VARCHAR NOT NULL,
		severity VARCHAR NOT NULL,
		outcome VARCHAR NOT NULL,
		actor_id VARCHAR NOT NULL,
		actor_email VARCHAR,
		target_type VARCHAR,
		target_id VARCHAR,
		source_ip VARCHAR NOT NULL,
		source_user_agent VARCHAR,
		description VARCHAR NOT NULL,
		metadata VARCHAR,
		request_id VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_actor_id ON audit_events(actor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_target_id ON audit_events(target_id)`,
}

// CreateTable creates the audit_events table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}
	logging.Debug().Msg("Audit events table created/verified")
	return nil
}

// eventRow is the flattened column layout of audit_events.
type eventRow struct {
	ID          string         `db:"id"`
	Timestamp   time.Time      `db:"timestamp"`
	Type        string         `db:"type"`
	Severity    string         `db:"severity"`
	Outcome     string         `db:"outcome"`
	ActorID     string         `db:"actor_id"`
	ActorEmail  sql.NullString `db:"actor_email"`
	TargetType  sql.NullString `db:"target_type"`
	TargetID    sql.NullString `db:"target_id"`
	SourceIP    string         `db:"source_ip"`
	UserAgent   sql.NullString `db:"source_user_agent"`
	Description string         `db:"description"`
	Metadata    sql.NullString `db:"metadata"`
	RequestID   sql.NullString `db:"request_id"`
}

const eventColumns = `id, timestamp, type, severity, outcome, actor_id, actor_email, target_type, target_id,
	source_ip, source_user_agent, description, metadata, request_id`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r eventRow) toEvent() Event {
	e := Event{
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		Type:        EventType(r.Type),
		Severity:    Severity(r.Severity),
		Outcome:     Outcome(r.Outcome),
		Actor:       Actor{ID: r.ActorID, Email: r.ActorEmail.String},
		Source:      Source{IP: r.SourceIP, UserAgent: r.UserAgent.String},
		Description: r.Description,
		RequestID:   r.RequestID.String,
	}
	if r.TargetID.Valid {
		e.Target = &Target{Type: r.TargetType.String, ID: r.TargetID.String}
	}
	if r.Metadata.Valid && r.Metadata.String != "" {
		e.Metadata = []byte(r.Metadata.String)
	}
	return e
}

// Save implements Store.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	var targetType, targetID sql.NullString
	if event.Target != nil {
		targetType, targetID = nullString(event.Target.Type), nullString(event.Target.ID)
	}
	var metadata any
	if len(event.Metadata) > 0 {
		metadata = string(event.Metadata)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, timestamp, type, severity, outcome, actor_id, actor_email,
			target_type, target_id, source_ip, source_user_agent, description, metadata, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), string(event.Severity), string(event.Outcome),
		event.Actor.ID, nullString(event.Actor.Email), targetType, targetID,
		event.Source.IP, nullString(event.Source.UserAgent), event.Description, metadata, nullString(event.RequestID))
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Query implements Store. Results are newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM audit_events%s ORDER BY timestamp DESC, id LIMIT %d OFFSET %d",
		eventColumns, where, filter.limit(), offset)

	rows := []eventRow{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	events := make([]Event, len(rows))
	for i, r := range rows {
		events[i] = r.toEvent()
	}
	return events, nil
}

// Count implements Store.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM audit_events"+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}

// Delete implements Store.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func buildWhere(f QueryFilter) (string, []any, error) {
	var conditions []string
	var args []any

	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		clause, inArgs, err := sqlx.In("type IN (?)", types)
		if err != nil {
			return "", nil, fmt.Errorf("failed to build type filter: %w", err)
		}
		conditions = append(conditions, clause)
		args = append(args, inArgs...)
	}
	if f.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.TargetID != "" {
		conditions = append(conditions, "target_id = ?")
		args = append(args, f.TargetID)
	}
	if f.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, f.StartTime.UTC())
	}

	if len(conditions) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}
