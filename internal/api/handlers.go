// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/contracthub/internal/audit"
	"github.com/tomtom215/contracthub/internal/auth"
	"github.com/tomtom215/contracthub/internal/config"
	"github.com/tomtom215/contracthub/internal/database"
	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/notify"
	ws "github.com/tomtom215/contracthub/internal/websocket"
)

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_contracts.go: contract CRUD and export
//   - handlers_users.go: user CRUD, export and subscription settings
//   - handlers_notifications.go: notification feed and mark-as-read
//   - handlers_auth.go: login, logout and session
//   - handlers_socket.go: realtime upgrade
//   - handlers_health.go: health endpoint
//   - handlers_audit.go: audit trail listing
type Handler struct {
	db         *database.DB
	dispatcher *notify.Dispatcher
	auth       *auth.Service
	wsHub      *ws.Hub
	audit      *audit.Logger
	config     *config.Config
	startTime  time.Time
}

// NewHandler creates a new API handler. wsHub may be nil, in which case the
// socket endpoint answers 503.
func NewHandler(db *database.DB, dispatcher *notify.Dispatcher, authService *auth.Service, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		db:         db,
		dispatcher: dispatcher,
		auth:       authService,
		wsHub:      wsHub,
		config:     cfg,
		startTime:  time.Now(),
	}
}

// SetAuditLogger enables the audit trail. Without one, events are discarded
// and GET /api/audit answers 503.
func (h *Handler) SetAuditLogger(l *audit.Logger) {
	h.audit = l
}

// getUpgrader creates a WebSocket upgrader with origin checking and a handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin. An empty one would bypass CORS entirely.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", logging.SanitizeValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
