// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package api provides the HTTP surface of the service.

Routes:

	GET    /health                     database and realtime status
	GET    /metrics                    Prometheus exposition
	POST   /api/auth/login             credential login, sets the token cookie
	POST   /api/auth/logout            ends the session
	GET    /api/auth/session           current user
	GET    /api/contract               one contract (?id=) or a filtered page
	POST   /api/contract               create, notifies subscribers
	PUT    /api/contract               update, notifies subscribers on status change
	DELETE /api/contract               delete
	GET    /api/contract/export        CSV of every matching contract
	GET    /api/user                   one user (?id=) or a page
	POST   /api/user                   create
	PUT    /api/user                   update name or password
	DELETE /api/user                   delete with notifications
	GET    /api/user/export            CSV of every user
	GET    /api/user/status            subscribed statuses
	POST   /api/user/status            replace subscribed statuses
	GET    /api/notifications          unread notifications
	GET    /api/notifications/all      30 day notification snapshot
	PATCH  /api/notifications/read     mark notifications read
	GET    /api/audit                  audit trail, newest first
	GET    /api/socket                 realtime websocket

Contract and user endpoints answer with the APIResponse envelope. The
notification endpoints answer with bare objects.
*/
package api
