// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contracthub/internal/logging"
)

type contextKey string

// PrincipalContextKey holds the *Principal of an authenticated request.
const PrincipalContextKey contextKey = "principal"

// TokenCookieName is the HTTP-only cookie set on login.
const TokenCookieName = "token"

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// Middleware enforces authentication on wrapped handlers.
type Middleware struct {
	service  *Service
	writeErr ErrorWriter
}

// NewMiddleware creates the middleware. A nil writer falls back to a minimal JSON body.
func NewMiddleware(service *Service, writeErr ErrorWriter) *Middleware {
	if writeErr == nil {
		writeErr = writeJSONError
	}
	return &Middleware{service: service, writeErr: writeErr}
}

// Authenticate requires a valid token from the Authorization header or the
// token cookie and stores the caller in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractToken(r)
		if err != nil {
			m.writeErr(w, r, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}

		principal, err := m.service.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Token rejected")
				m.writeErr(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: invalid or expired session")
				return
			}
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authentication lookup failed")
			m.writeErr(w, r, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Authentication failed")
			return
		}

		ctx := ContextWithPrincipal(r.Context(), principal)
		ctx = logging.ContextWithUserID(ctx, principal.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractToken reads a bearer token, falling back to the token cookie.
func ExtractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil || cookie.Value == "" {
			return "", fmt.Errorf("unauthorized: missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}
	return parts[1], nil
}

// ContextWithPrincipal stores the caller in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext returns the caller stored by Authenticate.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return p, ok && p != nil
}

func writeJSONError(w http.ResponseWriter, _ *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
