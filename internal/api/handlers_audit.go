// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/contracthub/internal/audit"
)

// AuditEvents lists audit events, newest first.
//
// Method: GET
// Path: /api/audit
//
// Query: type (repeatable or comma-separated), actorId, targetId,
// since (RFC3339), limit (default 100, max 1000), offset.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.audit == nil {
		rw.ServiceUnavailable("Audit trail is disabled")
		return
	}

	filter, err := auditFilterFromQuery(r)
	if err != nil {
		rw.ValidationError("Validation failed", err.Error(), nil)
		return
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		rw.InternalError("Failed to fetch audit events", err)
		return
	}
	countFilter := filter
	countFilter.Limit, countFilter.Offset = 0, 0
	total, err := h.audit.Count(r.Context(), countFilter)
	if err != nil {
		rw.InternalError("Failed to count audit events", err)
		return
	}

	rw.Success(map[string]interface{}{"events": events, "total": total})
}

func auditFilterFromQuery(r *http.Request) (audit.QueryFilter, error) {
	filter := audit.DefaultQueryFilter()
	q := r.URL.Query()

	for _, raw := range getListParam(r, "type") {
		t := audit.EventType(raw)
		if !t.Valid() {
			return filter, fmt.Errorf("unknown audit event type %q", raw)
		}
		filter.Types = append(filter.Types, t)
	}
	filter.ActorID = q.Get("actorId")
	filter.TargetID = q.Get("targetId")

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("since must be RFC3339: %w", err)
		}
		filter.StartTime = &since
	}

	filter.Limit = getIntParam(r, "limit", filter.Limit)
	if filter.Limit > audit.MaxQueryLimit {
		filter.Limit = audit.MaxQueryLimit
	}
	if offset := getIntParam(r, "offset", 0); offset > 0 {
		filter.Offset = offset
	}
	return filter, nil
}
