// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/contracthub/internal/config"
	"github.com/tomtom215/contracthub/internal/models"
)

func testConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		BroadcastBuffer: 16,
		SendBuffer:      4,
		MaxMessageSize:  4096,
		InboundRate:     100,
		InboundBurst:    100,
	}
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T, cfg config.RealtimeConfig) *Hub {
	t.Helper()
	hub := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFor(t, hub.IsRunning)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func registerTestClient(hub *Hub, userID string) *Client {
	c := NewClient(hub, nil, userID)
	hub.register(c)
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishWhenNotRunningIsNoop(t *testing.T) {
	hub := NewHub(testConfig())
	c := registerTestClient(hub, "u1")

	hub.Publish(MessageTypeContractUpdated, models.ContractUpdatedEvent{ContractID: "c1", Status: models.StatusInReview})

	if len(hub.broadcast) != 0 {
		t.Fatalf("message queued on stopped hub")
	}
	assertNoMessage(t, c)

	var nilHub *Hub
	nilHub.Publish(MessageTypeContractUpdated, nil)
	if got := nilHub.GetClientCount(); got != 0 {
		t.Fatalf("nil hub count = %d", got)
	}
}

func TestPublishFansOutToEveryClient(t *testing.T) {
	hub := startHub(t, testConfig())
	a := registerTestClient(hub, "u1")
	b := registerTestClient(hub, "u2")
	hub.JoinRoom(b, "contract:c1")

	if err := hub.PublishContractUpdated(context.Background(),
		models.ContractUpdatedEvent{ContractID: "c1", Status: models.StatusInReview}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Type != MessageTypeContractUpdated {
			t.Fatalf("type = %q", msg.Type)
		}
		var event models.ContractUpdatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if event.ContractID != "c1" || event.Status != models.StatusInReview {
			t.Fatalf("event = %+v", event)
		}
	}
}

func TestRooms(t *testing.T) {
	hub := startHub(t, testConfig())
	a := registerTestClient(hub, "u1")
	b := registerTestClient(hub, "u2")

	hub.JoinRoom(a, "team")
	if got := hub.RoomSize("team"); got != 1 {
		t.Fatalf("room size = %d", got)
	}

	hub.PublishToRoom("team", "note", map[string]string{"k": "v"})
	if msg := receive(t, a); msg.Type != "note" {
		t.Fatalf("type = %q", msg.Type)
	}
	assertNoMessage(t, b)

	hub.LeaveRoom(a, "team")
	if got := hub.RoomSize("team"); got != 0 {
		t.Fatalf("room size after leave = %d", got)
	}
	hub.PublishToRoom("team", "note", nil)
	assertNoMessage(t, a)

	// Unregistered clients cannot join.
	stray := NewClient(hub, nil, "u3")
	hub.JoinRoom(stray, "team")
	if got := hub.RoomSize("team"); got != 0 {
		t.Fatalf("stray client joined room")
	}
}

func TestUnregisterLeavesRooms(t *testing.T) {
	hub := startHub(t, testConfig())
	c := registerTestClient(hub, "u1")
	hub.JoinRoom(c, "a")
	hub.JoinRoom(c, "b")

	hub.unregister(c)
	hub.unregister(c)

	if hub.GetClientCount() != 0 || hub.RoomSize("a") != 0 || hub.RoomSize("b") != 0 {
		t.Fatalf("client still registered")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("client not closed")
	}
}

func TestSlowClientDisconnected(t *testing.T) {
	cfg := testConfig()
	cfg.SendBuffer = 1
	hub := startHub(t, cfg)
	slow := registerTestClient(hub, "slow")
	fast := registerTestClient(hub, "fast")

	hub.Publish("first", nil)
	if msg := receive(t, fast); msg.Type != "first" {
		t.Fatalf("type = %q", msg.Type)
	}
	hub.Publish("second", nil)
	receive(t, fast)

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client still open")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	hub := NewHub(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()
	waitFor(t, hub.IsRunning)

	c := registerTestClient(hub, "u1")
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if hub.IsRunning() || hub.GetClientCount() != 0 {
		t.Fatal("hub still running or holding clients")
	}
	<-c.Done()
}

func TestRegisterRefusedWhenStopped(t *testing.T) {
	hub := NewHub(testConfig())
	if hub.register(NewClient(hub, nil, "u1")) {
		t.Fatal("register on a hub that never started succeeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()
	waitFor(t, hub.IsRunning)
	if !hub.register(NewClient(hub, nil, "u2")) {
		t.Fatal("register on a running hub refused")
	}
	cancel()
	<-errCh

	late := NewClient(hub, nil, "u3")
	if hub.register(late) {
		t.Fatal("register after shutdown succeeded")
	}
	if got := hub.GetClientCount(); got != 0 {
		t.Fatalf("client count after shutdown = %d", got)
	}
	if _, err := hub.Attach(nil, "u4"); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("Attach() after shutdown error = %v, want ErrHubStopped", err)
	}
}

func TestAttachAfterShutdownClosesConnection(t *testing.T) {
	hub := NewHub(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()
	waitFor(t, hub.IsRunning)
	cancel()
	<-errCh

	attachErr := make(chan error, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			attachErr <- err
			return
		}
		_, err = hub.Attach(conn, "u1")
		attachErr <- err
	}))
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	if err := <-attachErr; !errors.Is(err, ErrHubStopped) {
		t.Fatalf("Attach() error = %v, want ErrHubStopped", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("read error = %v, want close %d", err, websocket.CloseTryAgainLater)
	}
	if got := hub.GetClientCount(); got != 0 {
		t.Fatalf("client count = %d, want 0", got)
	}
}

func TestGetShutdownReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextCanceled {
		t.Fatalf("reason = %s", got)
	}
	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Fatalf("reason = %s", got)
	}
}

// dialHub serves hub over httptest and returns a connected websocket.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, "u1")
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestEndToEndFrames(t *testing.T) {
	hub := startHub(t, testConfig())
	conn := dialHub(t, hub)
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readFrame(t, conn); msg.Type != MessageTypePong {
		t.Fatalf("expected pong, got %q", msg.Type)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_room","data":{"room":"r1"}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return hub.RoomSize("r1") == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_room","data":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readFrame(t, conn); msg.Type != MessageTypeError {
		t.Fatalf("expected error frame, got %q", msg.Type)
	}

	hub.Publish(MessageTypeContractUpdated, models.ContractUpdatedEvent{ContractID: "c9", Status: models.StatusFinalized})
	msg := readFrame(t, conn)
	if msg.Type != MessageTypeContractUpdated || !strings.Contains(string(msg.Data), `"c9"`) {
		t.Fatalf("unexpected frame %s %s", msg.Type, msg.Data)
	}

	_ = conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}

func TestInboundRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.InboundRate = 0.001
	cfg.InboundBurst = 1
	hub := startHub(t, cfg)
	conn := dialHub(t, hub)
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	for i := 0; i < 3; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if msg := readFrame(t, conn); msg.Type != MessageTypePong {
		t.Fatalf("expected pong, got %q", msg.Type)
	}

	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("rate-limited frames were answered")
	}
}
