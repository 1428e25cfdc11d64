// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

// Package auth implements credential login for staff users.
//
// A login verifies the bcrypt hash, records a server-side Session and signs an
// HS256 JWT whose jti is the session id. Every authenticated request verifies
// the token and then requires the session to still exist, so logout revokes
// the token immediately.
//
// Sessions live in a MemorySessionStore or, for persistence across restarts,
// a BadgerSessionStore selected through SessionStoreFactory.
package auth
