// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/contracthub/internal/audit"
	"github.com/tomtom215/contracthub/internal/auth"
	"github.com/tomtom215/contracthub/internal/export"
	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/models"
)

// bcryptCost returns the configured hashing cost.
func (h *Handler) bcryptCost() int {
	if h.config == nil || h.config.Security.BcryptCost == 0 {
		return auth.DefaultBcryptCost
	}
	return h.config.Security.BcryptCost
}

// UserGet returns one user when ?id= is given, otherwise a page of users.
//
// Method: GET
// Path: /api/user
func (h *Handler) UserGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if id := r.URL.Query().Get("id"); id != "" {
		user, err := h.db.GetUser(r.Context(), id)
		if err != nil {
			writeStoreError(rw, err, "User not found")
			return
		}
		rw.Success(map[string]interface{}{"user": user})
		return
	}

	pageSize := getIntParam(r, "pageSize", 10)
	if pageSize > 100 {
		pageSize = 100
	}
	page, err := h.db.ListUsers(r.Context(), getIntParam(r, "pageIndex", 0), pageSize)
	if err != nil {
		rw.InternalError("Failed to list users", err)
		return
	}
	rw.Success(page)
}

// UserCreate registers a user. Duplicate emails are a unique violation.
//
// Method: POST
// Path: /api/user
func (h *Handler) UserCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateUserRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost())
	if err != nil {
		rw.InternalError("Failed to hash password", err)
		return
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		writeStoreError(rw, err, "User not found")
		return
	}

	h.audit.LogChange(r, actor(r), audit.EventTypeUserCreated, audit.Target{Type: "user", ID: user.ID},
		"User created", nil)
	logging.Ctx(r.Context()).Info().Str("created_user_id", user.ID).Msg("User created")
	rw.Created(map[string]interface{}{"user": user})
}

// UserUpdate changes name and, when given, password. Email cannot change.
//
// Method: PUT
// Path: /api/user
func (h *Handler) UserUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req UpdateUserRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}
	if qid := r.URL.Query().Get("id"); qid != "" && qid != req.ID {
		rw.InvalidInput("id in query does not match id in body")
		return
	}

	user, err := h.db.GetUser(r.Context(), req.ID)
	if err != nil {
		writeStoreError(rw, err, "User not found")
		return
	}
	if !strings.EqualFold(strings.TrimSpace(req.Email), user.Email) {
		rw.ValidationError("Validation failed", "email cannot be changed", map[string]interface{}{"email": "immutable"})
		return
	}

	user.Name = strings.TrimSpace(req.Name)
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password, h.bcryptCost())
		if err != nil {
			rw.InternalError("Failed to hash password", err)
			return
		}
		user.PasswordHash = hash
	}
	if err := h.db.UpdateUser(r.Context(), user); err != nil {
		writeStoreError(rw, err, "User not found")
		return
	}
	h.audit.LogChange(r, actor(r), audit.EventTypeUserModified, audit.Target{Type: "user", ID: user.ID},
		"User updated", map[string]any{"passwordChanged": req.Password != ""})
	rw.Success(map[string]interface{}{"user": user})
}

// UserDelete removes a user together with their notifications.
//
// Method: DELETE
// Path: /api/user
func (h *Handler) UserDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := r.URL.Query().Get("id")
	if id == "" {
		rw.InvalidInput("id is required")
		return
	}
	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(rw, err, "User not found")
		return
	}
	h.audit.LogChange(r, actor(r), audit.EventTypeUserDeleted, audit.Target{Type: "user", ID: id},
		"User deleted", nil)
	if sessions := h.auth.Sessions(); sessions != nil {
		if _, err := sessions.DeleteByUserID(r.Context(), id); err != nil {
			logging.CtxErr(r.Context(), err).Str("deleted_user_id", id).Msg("Failed to revoke sessions of deleted user")
		}
	}
	rw.Success(map[string]interface{}{})
}

// UserExport writes every user as CSV. Password hashes are never exported.
//
// Method: GET
// Path: /api/user/export
func (h *Handler) UserExport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	users, err := h.db.ListAllUsers(r.Context())
	if err != nil {
		rw.InternalError("Failed to export users", err)
		return
	}
	h.audit.LogDataExport(r, actor(r), "users", len(users))
	writeCSV(w, "users", export.CSV(users, export.Options{Exclude: getListParam(r, "exclude")}))
}

// UserStatusesGet returns the statuses a user is subscribed to.
//
// Method: GET
// Path: /api/user/status
func (h *Handler) UserStatusesGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := r.URL.Query().Get("id")
	if id == "" {
		rw.InvalidInput("id is required")
		return
	}
	user, err := h.db.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(rw, err, "User not found")
		return
	}
	statuses := user.Statuses
	if statuses == nil {
		statuses = models.StatusSet{}
	}
	rw.Success(map[string]interface{}{"data": statuses})
}

// UserStatusesUpdate replaces the statuses a user is subscribed to.
//
// Method: POST
// Path: /api/user/status
func (h *Handler) UserStatusesUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req UpdateStatusesRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	set, err := models.NewStatusSet(req.Statuses)
	if err != nil {
		rw.ValidationError("Validation failed", err.Error(), nil)
		return
	}
	user, err := h.db.UpdateUserStatuses(r.Context(), req.ID, set)
	if err != nil {
		writeStoreError(rw, err, "User not found")
		return
	}
	h.audit.LogChange(r, actor(r), audit.EventTypeSubscriptionChanged, audit.Target{Type: "user", ID: user.ID},
		"Subscribed statuses changed", map[string]any{"statuses": user.Statuses})
	rw.Success(map[string]interface{}{"user": user})
}
