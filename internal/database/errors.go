// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package database

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUniqueViolation is matched by errors.Is for any *UniqueViolationError.
var ErrUniqueViolation = errors.New("unique constraint violated")

// UniqueViolationError names the field whose uniqueness was violated.
type UniqueViolationError struct {
	Field string
	Err   error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint violated on %s", e.Field)
}

func (e *UniqueViolationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUniqueViolation}
	}
	return []error{ErrUniqueViolation, e.Err}
}

// isUniqueViolation recognizes DuckDB duplicate key errors, e.g.
// `Constraint Error: Duplicate key "email: a@b.c" violates unique constraint`.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "violates primary key constraint")
}

// uniqueField extracts the column name from a DuckDB duplicate key message.
func uniqueField(err error, fallback string) string {
	msg := err.Error()
	start := strings.Index(msg, `Duplicate key "`)
	if start < 0 {
		return fallback
	}
	rest := msg[start+len(`Duplicate key "`):]
	if colon := strings.Index(rest, ":"); colon > 0 {
		return rest[:colon]
	}
	return fallback
}

// isTransactionConflict checks if an error is a DuckDB optimistic concurrency conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update")
}

// closeQuietly closes a resource on error paths where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
