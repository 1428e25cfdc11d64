// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package websocket provides the realtime channel that pushes contract status
changes to connected browsers and API clients.

Key Components:

  - Hub: one per process, constructed at startup and injected where needed.
    It accepts publishes only while RunWithContext is active.
  - Client: one websocket connection with its read and write pumps.
  - Message: the {type, data} frame exchanged in both directions.

Frames:

	server -> client  {"type":"contractUpdated","data":{"contractId":"...","status":"ACTIVE"}}
	client -> server  {"type":"join_room","data":{"room":"..."}}
	client -> server  {"type":"leave_room","data":{"room":"..."}}
	client -> server  {"type":"ping"}   answered with {"type":"pong"}

Publish broadcasts to every client regardless of rooms. PublishToRoom targets
members of one room.

Thread Safety:

The client registry and room membership are guarded by a mutex. Fan-out copies
the target set and sends without holding the lock. A client whose send buffer
is full is disconnected. Inbound frames are rate limited per connection with
golang.org/x/time/rate; excess frames are dropped.

Usage:

	hub := websocket.NewHub(cfg.Realtime)
	go hub.RunWithContext(ctx)

	// after upgrading an authenticated request
	if _, err := hub.Attach(conn, principal.User.ID); err != nil {
		return // shutting down, conn already closed
	}

	hub.Publish(websocket.MessageTypeContractUpdated, models.ContractUpdatedEvent{...})
*/
package websocket
