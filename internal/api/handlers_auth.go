// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/contracthub/internal/audit"
	"github.com/tomtom215/contracthub/internal/auth"
	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
)

func (h *Handler) cookieSecure() bool {
	return h.config != nil && h.config.Security.CookieSecure
}

// Login verifies credentials, opens a session and sets the token cookie.
//
// Method: POST
// Path: /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LoginRequest
	if !decodeAndValidate(rw, r, &req) {
		metrics.RecordLogin("invalid_request")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	result, err := h.auth.Login(r.Context(), email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		metrics.RecordLogin("invalid_credentials")
		h.audit.LogAuthFailure(r, email, "invalid credentials")
		logging.Ctx(r.Context()).Info().Str("email", logging.SanitizeValue(email)).Msg("Login rejected")
		rw.Unauthorized("Invalid email or password")
		return
	}
	if err != nil {
		metrics.RecordLogin("error")
		rw.InternalError("Login failed", err)
		return
	}
	metrics.RecordLogin("success")
	h.audit.LogAuthSuccess(r, audit.Actor{ID: result.User.ID, Email: result.User.Email})

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})

	logging.Ctx(r.Context()).Info().Str("user_id", result.User.ID).Msg("User logged in")
	rw.Success(result)
}

// Logout deletes the caller's session and clears the cookie.
//
// Method: POST
// Path: /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p := principal(r)

	if err := h.auth.Logout(r.Context(), p.SessionID); err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to delete session on logout")
	}
	h.audit.LogLogout(r, actor(r))

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
	rw.Success(map[string]interface{}{})
}

// Session returns the authenticated caller.
//
// Method: GET
// Path: /api/auth/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]interface{}{"user": principal(r).User})
}
