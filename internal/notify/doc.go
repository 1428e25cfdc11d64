// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

// Package notify turns contract status changes into per-user notifications.
//
// The Dispatcher runs after a contract write has committed. A create, or an
// update whose status differs from the previous one, produces one unread
// Notification for every user subscribed to the new status. The rows are
// written as one all-or-nothing batch before a single contractUpdated event
// is handed to the Publisher, so a client reacting to the event and
// re-fetching sees the new rows.
package notify
