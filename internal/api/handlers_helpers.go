// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contracthub/internal/audit"
	"github.com/tomtom215/contracthub/internal/auth"
	"github.com/tomtom215/contracthub/internal/database"
	"github.com/tomtom215/contracthub/internal/models"
	"github.com/tomtom215/contracthub/internal/notify"
	"github.com/tomtom215/contracthub/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// decodeAndValidate reads a JSON body into v and validates it. On failure it
// writes the VALIDATION_ERROR response and returns false.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(rw.w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		cause := "malformed JSON body"
		if errors.Is(err, io.EOF) {
			cause = "empty request body"
		}
		rw.ValidationError("Validation failed", cause, nil)
		return false
	}

	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError("Validation failed", apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getListParam collects repeated values of key, accepting both "key" and
// "key[]" forms and comma-separated values.
func getListParam(r *http.Request, key string) []string {
	q := r.URL.Query()
	var out []string
	for _, raw := range append(q[key], q[key+"[]"]...) {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// contractFilterFromQuery builds the list filter. Unknown enum values are
// reported as validation errors.
func contractFilterFromQuery(r *http.Request) (models.ContractFilter, error) {
	f := models.ContractFilter{
		PageIndex: getIntParam(r, "pageIndex", 0),
		PageSize:  getIntParam(r, "pageSize", 10),
		Search:    r.URL.Query().Get("searchQuery"),
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	for _, t := range getListParam(r, "types") {
		ct := models.ContractType(strings.ToUpper(t))
		if !ct.Valid() {
			return f, fmt.Errorf("unknown contract type %q", t)
		}
		f.Types = append(f.Types, ct)
	}
	for _, s := range getListParam(r, "statuses") {
		cs := models.ContractStatus(strings.ToUpper(s))
		if !cs.Valid() {
			return f, fmt.Errorf("unknown contract status %q", s)
		}
		f.Statuses = append(f.Statuses, cs)
	}
	return f, nil
}

// principal returns the authenticated caller. Routes behind Authenticate always have one.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// actor maps the authenticated caller onto an audit actor.
func actor(r *http.Request) audit.Actor {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || p.User == nil {
		return audit.Actor{}
	}
	return audit.Actor{ID: p.User.ID, Email: p.User.Email}
}

// writeStoreError maps persistence and dispatch errors onto the taxonomy.
func writeStoreError(rw *ResponseWriter, err error, notFoundMessage string) {
	var unique *database.UniqueViolationError
	var dispatchErr *notify.DispatchError
	switch {
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound(notFoundMessage)
	case errors.As(err, &unique):
		rw.UniqueViolation(unique.Field, displayName(unique.Field))
	case errors.As(err, &dispatchErr):
		rw.InternalError("Saved, but notifying subscribers failed", err)
	default:
		rw.InternalError("Internal Server Error", err)
	}
}

func displayName(field string) string {
	switch field {
	case "id":
		return "ID"
	case "email":
		return "Email"
	case "":
		return "Value"
	default:
		return strings.ToUpper(field[:1]) + field[1:]
	}
}
