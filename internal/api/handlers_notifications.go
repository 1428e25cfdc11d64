// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
	"github.com/tomtom215/contracthub/internal/validation"
)

// Defaults applied when the handler runs without configuration.
const (
	defaultWindowDays = 30
	defaultListLimit  = 50
	defaultUnreadCap  = 9
)

// notificationError is the raw error body of the notification endpoints.
type notificationError struct {
	Error string `json:"error"`
}

// writeNotificationError matches auth.ErrorWriter for the notification routes.
func writeNotificationError(w http.ResponseWriter, _ *http.Request, status int, _ string, message string) {
	if status == http.StatusUnauthorized {
		message = "Unauthorized"
	}
	writeRawJSON(w, status, notificationError{Error: message})
}

func (h *Handler) notificationLimits() (window time.Duration, limit, unreadCap int) {
	window, limit, unreadCap = defaultWindowDays*24*time.Hour, defaultListLimit, defaultUnreadCap
	if h.config == nil {
		return window, limit, unreadCap
	}
	n := h.config.Notifications
	if n.WindowDays > 0 {
		window = n.Window()
	}
	if n.ListLimit > 0 {
		limit = n.ListLimit
	}
	if n.UnreadCap > 0 {
		unreadCap = n.UnreadCap
	}
	return window, limit, unreadCap
}

// NotificationsAll returns the caller's notifications from the last 30 days,
// newest first, with the capped unread count over the same window.
//
// Method: GET
// Path: /api/notifications/all
func (h *Handler) NotificationsAll(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	window, limit, unreadCap := h.notificationLimits()

	feed, err := h.db.NotificationFeed(r.Context(), p.User.ID, time.Now().Add(-window), limit, unreadCap)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to load notification feed")
		writeNotificationError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal Server Error")
		return
	}
	writeRawJSON(w, http.StatusOK, feed)
}

// NotificationsMarkRead flips the given notifications of the caller to read.
// Ids owned by other users are ignored.
//
// Method: PATCH
// Path: /api/notifications/read
func (h *Handler) NotificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	var req MarkReadRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		message := "Invalid request body"
		if errors.Is(err, io.EOF) {
			message = "Request body is required"
		}
		writeNotificationError(w, r, http.StatusBadRequest, ErrCodeValidation, message)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeNotificationError(w, r, http.StatusBadRequest, ErrCodeValidation, verr.ToAPIError().Message)
		return
	}

	changed, err := h.db.MarkNotificationsRead(r.Context(), p.User.ID, req.NotificationIDs)
	if err != nil {
		logging.CtxErr(r.Context(), err).Int("ids", len(req.NotificationIDs)).Msg("Failed to mark notifications read")
		writeNotificationError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal Server Error")
		return
	}
	metrics.NotificationsMarkedRead.Add(float64(changed))

	writeRawJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// NotificationsUnread returns every unread notification of the caller.
//
// Method: GET
// Path: /api/notifications
func (h *Handler) NotificationsUnread(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	_, _, unreadCap := h.notificationLimits()

	feed, err := h.db.UnreadNotifications(r.Context(), p.User.ID, unreadCap)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to load unread notifications")
		writeNotificationError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal Server Error")
		return
	}
	writeRawJSON(w, http.StatusOK, feed)
}
