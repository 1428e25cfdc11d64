// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status          string  `json:"status"`
	Database        bool    `json:"database"`
	Realtime        bool    `json:"realtime"`
	RealtimeClients int     `json:"realtimeClients"`
	UptimeSeconds   float64 `json:"uptimeSeconds"`
}

// Health reports database reachability and realtime hub state. A failed
// database ping answers 503.
//
// Method: GET
// Path: /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:          "ok",
		Database:        h.db.Ping(r.Context()) == nil,
		Realtime:        h.wsHub != nil && h.wsHub.IsRunning(),
		RealtimeClients: h.wsHub.GetClientCount(),
		UptimeSeconds:   time.Since(h.startTime).Seconds(),
	}

	code := http.StatusOK
	if !status.Database {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeRawJSON(w, code, status)
}
