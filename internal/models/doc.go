// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package models defines the data structures shared by the store, the
notification dispatcher, the HTTP API and the realtime channel.

Entities:

  - Contract: a client contract with a status and a type drawn from fixed enumerations
  - User: a staff member and the set of contract statuses they subscribe to
  - Notification: one row per (contract status change, subscribed user)

Wire values use camelCase JSON names so that browser clients and the Go
client package share a single shape.
*/
package models
