// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/contracthub/internal/models"
)

// notificationRow is a notification LEFT JOINed with its contract.
type notificationRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	ContractID   string         `db:"contract_id"`
	Status       string         `db:"status"`
	Message      string         `db:"message"`
	IsRead       bool           `db:"is_read"`
	CreatedAt    time.Time      `db:"created_at"`
	CID          sql.NullString `db:"c_id"`
	CTitle       sql.NullString `db:"c_title"`
	CClientName  sql.NullString `db:"c_client_name"`
	CDescription sql.NullString `db:"c_description"`
	CStatus      sql.NullString `db:"c_status"`
	CType        sql.NullString `db:"c_type"`
	CCreatedAt   sql.NullTime   `db:"c_created_at"`
	CUpdatedAt   sql.NullTime   `db:"c_updated_at"`
}

const notificationJoinSelect = `
SELECT n.id, n.user_id, n.contract_id, n.status, n.message, n.is_read, n.created_at,
	c.id AS c_id, c.title AS c_title, c.client_name AS c_client_name,
	c.description AS c_description, c.status AS c_status, c.type AS c_type,
	c.created_at AS c_created_at, c.updated_at AS c_updated_at
FROM notifications n
LEFT JOIN contracts c ON c.id = n.contract_id`

func (r notificationRow) toModel() models.NotificationWithContract {
	out := models.NotificationWithContract{
		Notification: models.Notification{
			ID:         r.ID,
			UserID:     r.UserID,
			ContractID: r.ContractID,
			Status:     models.ContractStatus(r.Status),
			Message:    r.Message,
			IsRead:     r.IsRead,
			CreatedAt:  r.CreatedAt,
		},
	}
	if r.CID.Valid {
		c := &models.Contract{
			ID:         r.CID.String,
			Title:      r.CTitle.String,
			ClientName: r.CClientName.String,
			Status:     models.ContractStatus(r.CStatus.String),
			Type:       models.ContractType(r.CType.String),
			CreatedAt:  r.CCreatedAt.Time,
			UpdatedAt:  r.CUpdatedAt.Time,
		}
		if r.CDescription.Valid {
			desc := r.CDescription.String
			c.Description = &desc
		}
		out.Contract = c
	}
	return out
}

// InsertNotifications persists the batch in a single transaction. Either every
// row is written or none is. Empty IDs and zero timestamps are filled in.
func (db *DB) InsertNotifications(ctx context.Context, batch []models.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ts := now()
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = uuid.NewString()
		}
		if batch[i].CreatedAt.IsZero() {
			batch[i].CreatedAt = ts
		}
	}

	return db.retryOnConflict(ctx, "insert_notifications", func() error {
		return db.withTx(ctx, func(tx *sqlx.Tx) error {
			stmt, err := tx.PreparexContext(ctx,
				`INSERT INTO notifications (id, user_id, contract_id, status, message, is_read, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("failed to prepare notification insert: %w", err)
			}
			defer closeQuietly(stmt)

			for i := range batch {
				n := &batch[i]
				if _, err := stmt.ExecContext(ctx, n.ID, n.UserID, n.ContractID, string(n.Status),
					n.Message, n.IsRead, n.CreatedAt); err != nil {
					return fmt.Errorf("failed to insert notification for user %s: %w", n.UserID, err)
				}
			}
			return nil
		})
	})
}

// NotificationFeed returns the user's notifications created at or after since,
// newest first, at most limit rows, with the unread count over the same window
// capped at unreadCap.
func (db *DB) NotificationFeed(ctx context.Context, userID string, since time.Time, limit, unreadCap int) (*models.NotificationFeed, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	since = since.UTC()
	rows := []notificationRow{}
	query := fmt.Sprintf("%s WHERE n.user_id = ? AND n.created_at >= ? ORDER BY n.created_at DESC, n.id LIMIT %d",
		notificationJoinSelect, limit)
	if err := db.x.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return nil, fmt.Errorf("failed to load notifications for user %s: %w", userID, err)
	}

	var unread int
	if err := db.x.GetContext(ctx, &unread,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = false AND created_at >= ?",
		userID, since); err != nil {
		return nil, fmt.Errorf("failed to count unread notifications for user %s: %w", userID, err)
	}

	return &models.NotificationFeed{
		Notifications: toModels(rows),
		UnreadCount:   models.CapCount(unread, unreadCap),
	}, nil
}

// UnreadNotifications returns every unread notification the user owns, newest
// first, with the unread count capped at unreadCap.
func (db *DB) UnreadNotifications(ctx context.Context, userID string, unreadCap int) (*models.NotificationFeed, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows := []notificationRow{}
	if err := db.x.SelectContext(ctx, &rows,
		notificationJoinSelect+" WHERE n.user_id = ? AND n.is_read = false ORDER BY n.created_at DESC, n.id",
		userID); err != nil {
		return nil, fmt.Errorf("failed to load unread notifications for user %s: %w", userID, err)
	}
	return &models.NotificationFeed{
		Notifications: toModels(rows),
		UnreadCount:   models.CapCount(len(rows), unreadCap),
	}, nil
}

// MarkNotificationsRead flips is_read for the given ids owned by userID.
// Ids belonging to other users or already read are ignored. Returns the number
// of rows changed.
func (db *DB) MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args, err := sqlx.In(
		"UPDATE notifications SET is_read = true WHERE user_id = ? AND is_read = false AND id IN (?)",
		userID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to build mark-read query: %w", err)
	}

	var changed int64
	err = db.retryOnConflict(ctx, "mark_notifications_read", func() error {
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to mark notifications read: %w", err)
		}
		changed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		return nil
	})
	return changed, err
}

// CountNotifications returns the number of notifications the user owns.
func (db *DB) CountNotifications(ctx context.Context, userID string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.x.GetContext(ctx, &n, "SELECT COUNT(*) FROM notifications WHERE user_id = ?", userID); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

func toModels(rows []notificationRow) []models.NotificationWithContract {
	out := make([]models.NotificationWithContract, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}
