// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Authentication events
	EventTypeAuthSuccess EventType = "auth.success"
	EventTypeAuthFailure EventType = "auth.failure"
	EventTypeLogout      EventType = "auth.logout"

	// Contract events
	EventTypeContractCreated EventType = "contract.created"
	EventTypeContractUpdated EventType = "contract.updated"
	EventTypeContractDeleted EventType = "contract.deleted"

	// User management events
	EventTypeUserCreated         EventType = "user.created"
	EventTypeUserModified        EventType = "user.modified"
	EventTypeUserDeleted         EventType = "user.deleted"
	EventTypeSubscriptionChanged EventType = "user.subscription_changed"

	// Data access events
	EventTypeDataExport EventType = "data.export"
)

// KnownEventTypes lists every type in declaration order.
var KnownEventTypes = []EventType{
	EventTypeAuthSuccess, EventTypeAuthFailure, EventTypeLogout,
	EventTypeContractCreated, EventTypeContractUpdated, EventTypeContractDeleted,
	EventTypeUserCreated, EventTypeUserModified, EventTypeUserDeleted, EventTypeSubscriptionChanged,
	EventTypeDataExport,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, k := range KnownEventTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one entry of the audit trail.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Outcome   Outcome   `json:"outcome"`

	Actor  Actor   `json:"actor"`
	Target *Target `json:"target,omitempty"`
	Source Source  `json:"source"`

	Description string `json:"description"`
	// Metadata contains event-specific details.
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Actor is who performed the action. ID is empty for unauthenticated callers.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Target is the object acted on.
type Target struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Source is where the request came from.
type Source struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)
	// Delete removes events older than olderThan and returns how many went.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter selects events. Zero fields match everything.
type QueryFilter struct {
	Types     []EventType
	ActorID   string
	TargetID  string
	StartTime *time.Time
	Limit     int
	Offset    int
}

// DefaultQueryFilter returns the newest 100 events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}

// MaxQueryLimit caps QueryFilter.Limit.
const MaxQueryLimit = 1000

func (f QueryFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return 100
	case f.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return f.Limit
	}
}
