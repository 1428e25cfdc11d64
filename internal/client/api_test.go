// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contracthub/internal/models"
)

// waitUntil polls cond for up to two seconds.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestAPI(t *testing.T, handler http.Handler) *API {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api, err := NewAPI(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewAPI() error = %v", err)
	}
	return api
}

func TestNewAPIRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "not a url\x7f", "localhost:8080"} {
		if _, err := NewAPI(raw, nil); err == nil {
			t.Errorf("NewAPI(%q) error = nil", raw)
		}
	}
}

func TestLoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ada@example.com" || body["password"] != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"error":{"code":"UNAUTHORIZED","message":"invalid credentials"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"token":"tok-1","user":{"id":"u1","email":"ada@example.com"}}}`)
	})
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"user":{"id":"u1","name":"Ada"}}}`)
	})
	api := newTestAPI(t, mux)

	_, err := api.Login(context.Background(), "ada@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != "UNAUTHORIZED" {
		t.Fatalf("Login(wrong) error = %v", err)
	}

	res, err := api.Login(context.Background(), "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.User.ID != "u1" || api.Token() != "tok-1" {
		t.Fatalf("Login() = %+v, token %q", res, api.Token())
	}

	user, err := api.Session(context.Background())
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if user.Name != "Ada" {
		t.Errorf("Session().Name = %q", user.Name)
	}
}

func TestFetchNotificationsAndMarkRead(t *testing.T) {
	var marked []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/notifications/all", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"notifications":[{"id":"n1","contractId":"c1","status":"DRAFT","isRead":false,"contract":null}],"unreadCount":1}`)
	})
	mux.HandleFunc("/api/notifications/read", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			IDs []string `json:"notificationIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		marked = body.IDs
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	api := newTestAPI(t, mux)

	feed, err := api.FetchNotifications(context.Background())
	if err != nil {
		t.Fatalf("FetchNotifications() error = %v", err)
	}
	if feed.UnreadCount != 1 || len(feed.Notifications) != 1 || feed.Notifications[0].Contract != nil {
		t.Fatalf("feed = %+v", feed)
	}

	if err := api.MarkRead(context.Background(), []string{"n1"}); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if len(marked) != 1 || marked[0] != "n1" {
		t.Errorf("server saw ids %v", marked)
	}
}

func TestBareErrorShape(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"Unauthorized"}`)
	}))

	_, err := api.FetchNotifications(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Unauthorized" || apiErr.Code != "" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestUserStatusesNormalizes(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user/status" || r.URL.Query().Get("id") != "u1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"data":["FINALIZED","DRAFT","DRAFT"]}}`)
	}))

	got, err := api.UserStatuses(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UserStatuses() error = %v", err)
	}
	want := models.StatusSet{models.StatusDraft, models.StatusFinalized}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("UserStatuses() = %v, want %v", got, want)
	}
}
