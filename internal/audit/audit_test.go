// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package audit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/contracthub/internal/config"
	"github.com/tomtom215/contracthub/internal/database"
)

func newDuckDBStore(t *testing.T) *DuckDBStore {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewDuckDBStore(db.Conn())
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	return store
}

func sampleEvents(base time.Time) []*Event {
	return []*Event{
		{ID: "e1", Timestamp: base.Add(-3 * time.Hour), Type: EventTypeAuthSuccess, Severity: SeverityInfo,
			Outcome: OutcomeSuccess, Actor: Actor{ID: "u1", Email: "ada@example.com"}, Source: Source{IP: "10.0.0.1"},
			Description: "User logged in"},
		{ID: "e2", Timestamp: base.Add(-2 * time.Hour), Type: EventTypeContractCreated, Severity: SeverityInfo,
			Outcome: OutcomeSuccess, Actor: Actor{ID: "u1"}, Target: &Target{Type: "contract", ID: "c1"},
			Source: Source{IP: "10.0.0.1", UserAgent: "curl/8"}, Description: "Contract created",
			Metadata: []byte(`{"status":"DRAFT"}`), RequestID: "req-2"},
		{ID: "e3", Timestamp: base.Add(-time.Hour), Type: EventTypeAuthFailure, Severity: SeverityWarning,
			Outcome: OutcomeFailure, Actor: Actor{Email: "eve@example.com"}, Source: Source{IP: "10.0.0.9"},
			Description: "Login rejected"},
	}
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)
	for _, e := range sampleEvents(base) {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save(%s) error = %v", e.ID, err)
		}
	}
	if err := store.Save(ctx, nil); err == nil {
		t.Error("Save(nil) error = nil")
	}

	all, err := store.Query(ctx, DefaultQueryFilter())
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "e3" || all[2].ID != "e1" {
		t.Fatalf("Query() order = %v", ids(all))
	}

	created := all[1]
	if created.Target == nil || created.Target.ID != "c1" || created.Source.UserAgent != "curl/8" ||
		string(created.Metadata) != `{"status":"DRAFT"}` || created.RequestID != "req-2" {
		t.Errorf("round trip = %+v", created)
	}
	if all[0].Target != nil {
		t.Errorf("event without target = %+v", all[0].Target)
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"by type", QueryFilter{Types: []EventType{EventTypeAuthSuccess, EventTypeAuthFailure}}, []string{"e3", "e1"}},
		{"by actor", QueryFilter{ActorID: "u1"}, []string{"e2", "e1"}},
		{"by target", QueryFilter{TargetID: "c1"}, []string{"e2"}},
		{"since", QueryFilter{StartTime: ptr(base.Add(-90 * time.Minute))}, []string{"e3"}},
		{"limit and offset", QueryFilter{Limit: 1, Offset: 1}, []string{"e2"}},
		{"offset past end", QueryFilter{Offset: 10}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if g := ids(got); !equal(g, tt.want) {
				t.Errorf("Query() = %v, want %v", g, tt.want)
			}
		})
	}

	n, err := store.Count(ctx, QueryFilter{ActorID: "u1"})
	if err != nil || n != 2 {
		t.Errorf("Count(actor u1) = %d, %v", n, err)
	}

	removed, err := store.Delete(ctx, base.Add(-150*time.Minute))
	if err != nil || removed != 1 {
		t.Fatalf("Delete() = %d, %v, want 1", removed, err)
	}
	if n, _ := store.Count(ctx, QueryFilter{}); n != 2 {
		t.Errorf("Count() after delete = %d, want 2", n)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestDuckDBStore(t *testing.T) {
	exerciseStore(t, newDuckDBStore(t))
}

func TestMemoryStoreBounded(t *testing.T) {
	store := NewMemoryStore(2)
	for i := 0; i < 5; i++ {
		_ = store.Save(context.Background(), &Event{ID: string(rune('a' + i)), Timestamp: time.Now()})
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestLoggerPersistsAsync(t *testing.T) {
	store := NewMemoryStore(0)
	l := NewLogger(store, Config{BufferSize: 16})

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	r.Header.Set("User-Agent", "test-agent")

	l.LogAuthSuccess(r, Actor{ID: "u1", Email: "ada@example.com"})
	l.LogAuthFailure(r, "eve@example.com", "invalid credentials")
	l.LogChange(r, Actor{ID: "u1"}, EventTypeContractUpdated, Target{Type: "contract", ID: "c1"},
		"Contract updated", map[string]any{"from": "DRAFT", "to": "FINALIZED"})
	l.LogDataExport(r, Actor{ID: "u1"}, "contracts", 3)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events, _ := store.Query(context.Background(), DefaultQueryFilter())
	if len(events) != 4 {
		t.Fatalf("stored %d events, want 4", len(events))
	}
	for _, e := range events {
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Errorf("event missing id or timestamp: %+v", e)
		}
		if e.Source.IP != "192.0.2.10" || e.Source.UserAgent != "test-agent" {
			t.Errorf("source = %+v", e.Source)
		}
	}

	failures, _ := store.Query(context.Background(), QueryFilter{Types: []EventType{EventTypeAuthFailure}})
	if len(failures) != 1 || failures[0].Outcome != OutcomeFailure || failures[0].Severity != SeverityWarning {
		t.Errorf("failure events = %+v", failures)
	}

	// Closed loggers drop silently.
	l.LogLogout(r, Actor{ID: "u1"})
	if store.Len() != 4 {
		t.Errorf("Len() after Close = %d", store.Len())
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	r := httptest.NewRequest("GET", "/", nil)
	l.LogAuthSuccess(r, Actor{ID: "u1"})
	l.LogChange(r, Actor{}, EventTypeUserDeleted, Target{Type: "user", ID: "u2"}, "gone", nil)
	if err := l.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}

func TestServeAppliesRetention(t *testing.T) {
	store := NewMemoryStore(0)
	_ = store.Save(context.Background(), &Event{ID: "old", Timestamp: time.Now().AddDate(0, 0, -40)})
	_ = store.Save(context.Background(), &Event{ID: "new", Timestamp: time.Now()})

	l := NewLogger(store, Config{RetentionDays: 30, CleanupInterval: time.Hour})
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	events, _ := store.Query(context.Background(), QueryFilter{})
	if len(events) != 1 || events[0].ID != "new" {
		t.Errorf("remaining = %v", ids(events))
	}
}

func TestEventTypeValid(t *testing.T) {
	if !EventTypeContractDeleted.Valid() {
		t.Error("contract.deleted not valid")
	}
	if EventType("auth.unknown").Valid() {
		t.Error("auth.unknown valid")
	}
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ptr[T any](v T) *T { return &v }
