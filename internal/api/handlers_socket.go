// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"net/http"

	"github.com/tomtom215/contracthub/internal/logging"
)

// Socket upgrades the request to a realtime connection bound to the caller.
//
// Method: GET
// Path: /api/socket
func (h *Handler) Socket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil || !h.wsHub.IsRunning() {
		NewResponseWriter(w, r).ServiceUnavailable("Realtime channel is not available")
		return
	}
	p := principal(r)

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client, err := h.wsHub.Attach(conn, p.User.ID)
	if err != nil {
		// The connection is already closed with a try-again-later frame.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Realtime client refused")
		return
	}
	logging.Ctx(r.Context()).Debug().Uint64("client_id", client.ID()).Msg("Realtime client connected")
}
