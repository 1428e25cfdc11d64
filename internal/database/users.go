// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/contracthub/internal/models"
)

const userColumns = "id, name, email, password_hash, statuses, created_at, updated_at"

// CreateUser inserts u. A duplicate email yields a *UniqueViolationError for "email".
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Statuses == nil {
		u.Statuses = models.StatusSet{}
	}
	u.Statuses = u.Statuses.Normalize()
	ts := now()
	u.CreatedAt, u.UpdatedAt = ts, ts

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.Statuses.String(), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &UniqueViolationError{Field: uniqueField(err, "email"), Err: err}
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given id or ErrNotFound.
func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return db.getUserBy(ctx, "id", id)
}

// GetUserByEmail returns the user with the given email or ErrNotFound.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUserBy(ctx, "email", email)
}

func (db *DB) getUserBy(ctx context.Context, column, value string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var u models.User
	err := db.x.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &u, nil
}

// UpdateUser writes the name, password hash and statuses of u. Email is immutable.
func (db *DB) UpdateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if u.Statuses == nil {
		u.Statuses = models.StatusSet{}
	}
	u.Statuses = u.Statuses.Normalize()
	u.UpdatedAt = now()

	return db.retryOnConflict(ctx, "update_user", func() error {
		res, err := db.conn.ExecContext(ctx,
			"UPDATE users SET name = ?, password_hash = ?, statuses = ?, updated_at = ? WHERE id = ?",
			u.Name, u.PasswordHash, u.Statuses.String(), u.UpdatedAt, u.ID)
		if err != nil {
			return fmt.Errorf("failed to update user %s: %w", u.ID, err)
		}
		return requireAffected(res)
	})
}

// UpdateUserStatuses replaces the user's subscribed statuses and returns the updated user.
func (db *DB) UpdateUserStatuses(ctx context.Context, id string, statuses models.StatusSet) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	set := statuses.Normalize()
	err := db.retryOnConflict(ctx, "update_user_statuses", func() error {
		res, err := db.conn.ExecContext(ctx,
			"UPDATE users SET statuses = ?, updated_at = ? WHERE id = ?", set.String(), now(), id)
		if err != nil {
			return fmt.Errorf("failed to update statuses for user %s: %w", id, err)
		}
		return requireAffected(res)
	})
	if err != nil {
		return nil, err
	}
	return db.GetUser(ctx, id)
}

// DeleteUser removes the user and the notifications they own in one transaction.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.retryOnConflict(ctx, "delete_user", func() error {
		return db.withTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, "DELETE FROM notifications WHERE user_id = ?", id); err != nil {
				return fmt.Errorf("failed to delete notifications of user %s: %w", id, err)
			}
			res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
			if err != nil {
				return fmt.Errorf("failed to delete user %s: %w", id, err)
			}
			return requireAffected(res)
		})
	})
}

// ListUsers returns one page of users ordered by name.
func (db *DB) ListUsers(ctx context.Context, pageIndex, pageSize int) (*models.UserPage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if pageSize <= 0 {
		pageSize = 10
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	var total int
	if err := db.x.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	users := []models.User{}
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY name, id LIMIT %d OFFSET %d",
		userColumns, pageSize, pageIndex*pageSize)
	if err := db.x.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &models.UserPage{Users: users, TotalPages: models.TotalPages(total, pageSize)}, nil
}

// ListAllUsers returns every user ordered by name.
func (db *DB) ListAllUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	users := []models.User{}
	if err := db.x.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY name, id"); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SubscriberIDs returns the ids of users whose statuses contain status.
func (db *DB) SubscriberIDs(ctx context.Context, status models.ContractStatus) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ids := []string{}
	err := db.x.SelectContext(ctx, &ids,
		"SELECT id FROM users WHERE list_contains(string_split(statuses, ','), ?) ORDER BY id", string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers for %s: %w", status, err)
	}
	return ids, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
