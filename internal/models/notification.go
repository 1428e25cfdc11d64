// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package models

import (
	"fmt"
	"time"
)

// EventContractUpdated is the realtime event name for contract status changes.
const EventContractUpdated = "contractUpdated"

// Notification records that a user was told about a contract status change.
// IsRead only ever moves from false to true.
type Notification struct {
	ID         string         `json:"id" db:"id"`
	UserID     string         `json:"userId" db:"user_id"`
	ContractID string         `json:"contractId" db:"contract_id"`
	Status     ContractStatus `json:"status" db:"status"`
	Message    string         `json:"message" db:"message"`
	IsRead     bool           `json:"isRead" db:"is_read"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

// NotificationWithContract is a notification joined with its contract.
// Contract is nil when the contract has since been deleted.
type NotificationWithContract struct {
	Notification
	Contract *Contract `json:"contract"`
}

// NotificationFeed is the snapshot a client reconciles against.
type NotificationFeed struct {
	Notifications []NotificationWithContract `json:"notifications"`
	UnreadCount   int                        `json:"unreadCount"`
}

// ContractUpdatedEvent is the realtime payload for a contract status change.
type ContractUpdatedEvent struct {
	ContractID string         `json:"contractId"`
	Status     ContractStatus `json:"status"`
}

// NotificationMessage renders the human-readable notification text.
func NotificationMessage(contractID string, status ContractStatus) string {
	return fmt.Sprintf("Contract %s updated to %s", contractID, status)
}

// CapCount returns min(n, limit).
func CapCount(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}

// BadgeText renders a capped count the way the UI shows it: "" for zero,
// the number below the cap, and "<cap>+" at or above it.
func BadgeText(n, limit int) string {
	switch {
	case n <= 0:
		return ""
	case n >= limit:
		return fmt.Sprintf("%d+", limit)
	default:
		return fmt.Sprintf("%d", n)
	}
}
