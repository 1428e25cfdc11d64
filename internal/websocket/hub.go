// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contracthub/internal/config"
	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
	"github.com/tomtom215/contracthub/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeContractUpdated = models.EventContractUpdated
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeJoinRoom        = "join_room"
	MessageTypeLeaveRoom       = "leave_room"
	MessageTypeError           = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrHubStopped is returned by Attach when the hub is not accepting clients.
var ErrHubStopped = errors.New("websocket hub is not running")

// outbound is a message queued for fan-out. An empty room targets every client.
type outbound struct {
	room string
	msg  Message
}

// Hub maintains the set of active clients and broadcasts messages to them.
//
// The registry is guarded by mu. Fan-out copies the target set under a read
// lock and sends without holding it. A client whose send buffer is full is
// disconnected. Clients register only between start and shutdown; accepting
// flips under mu so no registration can slip past closeAllClients.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]bool
	rooms     map[string]map[*Client]bool
	accepting bool

	broadcast chan outbound
	running   atomic.Bool
	cfg       config.RealtimeConfig
}

// NewHub creates a hub. It accepts publishes only while RunWithContext is active.
func NewHub(cfg config.RealtimeConfig) *Hub {
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = 256
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	return &Hub{
		clients:   make(map[*Client]bool),
		rooms:     make(map[string]map[*Client]bool),
		broadcast: make(chan outbound, cfg.BroadcastBuffer),
		cfg:       cfg,
	}
}

// RunWithContext delivers queued messages until ctx is canceled, then closes
// every client and returns ctx.Err(). It is designed for suture supervision.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.accepting = true
	h.mu.Unlock()
	h.running.Store(true)
	defer h.running.Store(false)
	logging.Info().Str("component", "websocket-hub").Msg("websocket hub started")

	for {
		// Shutdown takes priority over pending broadcasts.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case out := <-h.broadcast:
			h.deliver(out)
		}
	}
}

// IsRunning reports whether the hub is accepting publishes.
func (h *Hub) IsRunning() bool {
	return h != nil && h.running.Load()
}

// Publish fans payload out to every connected client as an eventName frame.
// Publishing on a nil or stopped hub is a logged no-op.
func (h *Hub) Publish(eventName string, payload interface{}) {
	h.enqueue("", eventName, payload)
}

// PublishToRoom sends only to clients that joined room.
func (h *Hub) PublishToRoom(room, eventName string, payload interface{}) {
	h.enqueue(room, eventName, payload)
}

// PublishContractUpdated broadcasts a contract status change.
func (h *Hub) PublishContractUpdated(_ context.Context, event models.ContractUpdatedEvent) error {
	h.Publish(MessageTypeContractUpdated, event)
	return nil
}

func (h *Hub) enqueue(room, eventName string, payload interface{}) {
	if !h.IsRunning() {
		metrics.RecordRealtimePublish("hub_stopped")
		logging.Warn().Str("event", eventName).Msg("websocket hub not running, dropping message")
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Str("event", eventName).Msg("failed to marshal websocket payload")
		return
	}

	select {
	case h.broadcast <- outbound{room: room, msg: Message{Type: eventName, Data: data}}:
		metrics.RecordRealtimePublish("queued")
	default:
		metrics.RecordRealtimePublish("buffer_full")
		logging.Warn().Str("event", eventName).Msg("broadcast channel full, dropping message")
	}
}

// deliver sends to a snapshot of the target clients in id order.
func (h *Hub) deliver(out outbound) {
	h.mu.RLock()
	var targets []*Client
	if out.room == "" {
		targets = make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			targets = append(targets, c)
		}
	} else {
		for c := range h.rooms[out.room] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].id < targets[j].id
	})

	for _, c := range targets {
		if !c.trySend(out.msg) {
			metrics.RealtimeSlowClientsDropped.Inc()
			logging.Warn().Uint64("client_id", c.id).Msg("websocket client send buffer full, disconnecting")
			h.unregister(c)
		}
	}
}

// register adds c, or reports false when the hub is not accepting clients.
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if !h.accepting {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClients.Set(float64(n))
	logging.Info().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client connected")
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.removeFromRoomLocked(c, room)
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	metrics.RealtimeClients.Set(float64(n))
	logging.Info().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client disconnected")
}

// JoinRoom adds c to room. Unknown clients are ignored.
func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	c.rooms[room] = true
}

// LeaveRoom removes c from room.
func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(c, room)
}

func (h *Hub) removeFromRoomLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients stops accepting clients and disconnects every client in id order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	h.accepting = false
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, c := range clients {
		c.close()
	}
	metrics.RealtimeClients.Set(0)
}
