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
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/contracthub/internal/models"
)

const contractColumns = "id, title, client_name, description, status, type, created_at, updated_at"

// CreateContract inserts c, assigning an ID when empty and both timestamps.
func (db *DB) CreateContract(ctx context.Context, c *models.Contract) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ts := now()
	c.CreatedAt, c.UpdatedAt = ts, ts

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO contracts ("+contractColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Title, c.ClientName, nullableString(c.Description),
		string(c.Status), string(c.Type), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &UniqueViolationError{Field: "id", Err: err}
		}
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

// GetContract returns the contract with the given id or ErrNotFound.
func (db *DB) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var c models.Contract
	err := db.x.GetContext(ctx, &c, "SELECT "+contractColumns+" FROM contracts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %s: %w", id, err)
	}
	return &c, nil
}

// UpdateContract overwrites the mutable fields of c and returns the status the
// contract had before the update. CreatedAt is reloaded from the stored row.
func (db *DB) UpdateContract(ctx context.Context, c *models.Contract) (models.ContractStatus, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var previous models.ContractStatus
	err := db.retryOnConflict(ctx, "update_contract", func() error {
		return db.withTx(ctx, func(tx *sqlx.Tx) error {
			var stored models.Contract
			err := tx.GetContext(ctx, &stored, "SELECT "+contractColumns+" FROM contracts WHERE id = ?", c.ID)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to read contract %s: %w", c.ID, err)
			}
			previous = stored.Status

			c.CreatedAt = stored.CreatedAt
			c.UpdatedAt = now()
			_, err = tx.ExecContext(ctx,
				`UPDATE contracts SET title = ?, client_name = ?, description = ?, status = ?, type = ?, updated_at = ?
				WHERE id = ?`,
				c.Title, c.ClientName, nullableString(c.Description),
				string(c.Status), string(c.Type), c.UpdatedAt, c.ID)
			if err != nil {
				return fmt.Errorf("failed to update contract %s: %w", c.ID, err)
			}
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// DeleteContract removes the contract. Notifications that reference it are
// kept and surface with a nil contract.
func (db *DB) DeleteContract(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete contract %s: %w", id, err)
	}
	return requireAffected(res)
}

// ListContracts returns one page of contracts matching f, newest first.
func (db *DB) ListContracts(ctx context.Context, f models.ContractFilter) (*models.ContractPage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if f.PageSize <= 0 {
		f.PageSize = 10
	}
	if f.PageIndex < 0 {
		f.PageIndex = 0
	}

	where, args, err := contractWhere(f)
	if err != nil {
		return nil, err
	}

	var total int
	if err := db.x.GetContext(ctx, &total, "SELECT COUNT(*) FROM contracts"+where, args...); err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}

	contracts := []models.Contract{}
	query := fmt.Sprintf("SELECT %s FROM contracts%s ORDER BY created_at DESC, id LIMIT %d OFFSET %d",
		contractColumns, where, f.PageSize, f.PageIndex*f.PageSize)
	if err := db.x.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	return &models.ContractPage{
		Contracts:  contracts,
		TotalPages: models.TotalPages(total, f.PageSize),
	}, nil
}

// ListAllContracts returns every contract matching f, ignoring paging.
func (db *DB) ListAllContracts(ctx context.Context, f models.ContractFilter) ([]models.Contract, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args, err := contractWhere(f)
	if err != nil {
		return nil, err
	}
	contracts := []models.Contract{}
	if err := db.x.SelectContext(ctx, &contracts,
		"SELECT "+contractColumns+" FROM contracts"+where+" ORDER BY created_at DESC, id", args...); err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, nil
}

// contractWhere builds the WHERE clause shared by the list, count and export queries.
func contractWhere(f models.ContractFilter) (string, []any, error) {
	var clauses []string
	var args []any

	if q := strings.TrimSpace(f.Search); q != "" {
		q = strings.ToLower(q)
		clauses = append(clauses, "(contains(lower(title), ?) OR contains(lower(client_name), ?))")
		args = append(args, q, q)
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		clause, inArgs, err := sqlx.In("type IN (?)", types)
		if err != nil {
			return "", nil, fmt.Errorf("failed to build type filter: %w", err)
		}
		clauses = append(clauses, clause)
		args = append(args, inArgs...)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		clause, inArgs, err := sqlx.In("status IN (?)", statuses)
		if err != nil {
			return "", nil, fmt.Errorf("failed to build status filter: %w", err)
		}
		clauses = append(clauses, clause)
		args = append(args, inArgs...)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// nullableString maps a nil pointer to SQL NULL.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
