// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/contracthub/internal/models"
)

// socketServer upgrades /api/socket, sends the frames for the n-th
// connection, then closes it.
type socketServer struct {
	t       *testing.T
	conns   atomic.Int32
	origins chan string
	frames  func(n int32) []string
}

func (s *socketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/socket" {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	select {
	case s.origins <- r.Header.Get("Origin"):
	default:
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	n := s.conns.Add(1)
	for _, f := range s.frames(n) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return
		}
	}
	if n == 1 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		return
	}
	// Later connections stay open until the client leaves.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func nextEvent(t *testing.T, ch <-chan models.ContractUpdatedEvent) models.ContractUpdatedEvent {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("events channel closed")
		}
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}
	return models.ContractUpdatedEvent{}
}

func TestRealtimeDeliversAndReconnects(t *testing.T) {
	srv := &socketServer{
		t:       t,
		origins: make(chan string, 4),
		frames: func(n int32) []string {
			if n == 1 {
				return []string{
					`not json`,
					`{"type":"ping"}`,
					`{"type":"contractUpdated","data":{"contractId":"c1","status":"DRAFT"}}`,
				}
			}
			return []string{`{"type":"contractUpdated","data":{"contractId":"c2","status":"FINALIZED"}}`}
		},
	}
	api := newTestAPI(t, srv)
	api.SetToken("tok")

	rt := NewRealtime(api, RealtimeConfig{MinBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	if e := nextEvent(t, rt.Events()); e.ContractID != "c1" || e.Status != models.StatusDraft {
		t.Fatalf("first event = %+v", e)
	}
	if e := nextEvent(t, rt.Events()); e.ContractID != "c2" || e.Status != models.StatusFinalized {
		t.Fatalf("second event = %+v", e)
	}
	if rt.Dials() < 2 {
		t.Errorf("Dials() = %d, want reconnect", rt.Dials())
	}
	if origin := <-srv.origins; origin != api.BaseURL().Scheme+"://"+api.BaseURL().Host {
		t.Errorf("Origin = %q", origin)
	}
	waitUntil(t, rt.Connected)

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-rt.Events(); ok {
		t.Error("Events() not closed after Run returned")
	}
	if rt.Connected() {
		t.Error("Connected() after Run returned")
	}
}

func TestRealtimeRetriesRejectedHandshake(t *testing.T) {
	srv := &socketServer{t: t, origins: make(chan string, 1), frames: func(int32) []string { return nil }}
	api := newTestAPI(t, srv)

	rt := NewRealtime(api, RealtimeConfig{MinBackoff: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Run(ctx) }()

	waitUntil(t, func() bool { return rt.Dials() >= 3 })
	if rt.Connected() {
		t.Error("Connected() without a token")
	}
}

func TestRealtimeURL(t *testing.T) {
	api, err := NewAPI("https://hub.example.com/base", nil)
	if err != nil {
		t.Fatal(err)
	}
	rt := NewRealtime(api, RealtimeConfig{})
	if rt.url != "wss://hub.example.com/base/api/socket" {
		t.Errorf("url = %q", rt.url)
	}
	if rt.cfg.Origin != "https://hub.example.com" {
		t.Errorf("origin = %q", rt.cfg.Origin)
	}
}
