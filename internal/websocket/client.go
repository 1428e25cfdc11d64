// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientIDCounter generates unique, monotonically increasing IDs for clients
// so fan-out happens in a stable order.
var clientIDCounter atomic.Uint64

// RoomRequest is the payload of join_room and leave_room frames.
type RoomRequest struct {
	Room string `json:"room"`
}

// ErrorPayload is the payload of error frames.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Client is a middleman between the websocket connection and the hub.
//
// send is never closed. done is closed exactly once when the client is
// disconnected and every sender selects on it.
type Client struct {
	id     uint64
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message

	done      chan struct{}
	closeOnce sync.Once

	// rooms is guarded by hub.mu.
	rooms   map[string]bool
	limiter *rate.Limiter
}

// NewClient creates a client with a unique ID. conn may be nil in tests.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	limit := rate.Limit(hub.cfg.InboundRate)
	if hub.cfg.InboundRate <= 0 {
		limit = rate.Inf
	}
	burst := hub.cfg.InboundBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		id:      clientIDCounter.Add(1),
		userID:  userID,
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, hub.cfg.SendBuffer),
		done:    make(chan struct{}),
		rooms:   make(map[string]bool),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the authenticated user that opened the connection.
func (c *Client) UserID() string {
	return c.userID
}

// Done is closed once the client has been disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Attach registers a client for conn and starts its pumps. When the hub is
// not running, conn is closed with CloseTryAgainLater and ErrHubStopped is
// returned.
func (h *Hub) Attach(conn *websocket.Conn, userID string) (*Client, error) {
	c := NewClient(h, conn, userID)
	if !h.register(c) {
		c.close()
		if conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			_ = conn.Close()
		}
		return nil, ErrHubStopped
	}
	c.Start()
	return c, nil
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// trySend queues msg without blocking. It reports false only when the send
// buffer is full; sends to a closed client are discarded.
func (c *Client) trySend(msg Message) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.RealtimeInboundDropped.Inc()
			continue
		}
		c.handleFrame(data)
	}
}

// handleFrame processes one inbound frame.
func (c *Client) handleFrame(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(MessageTypeError, ErrorPayload{Message: "invalid message"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)
	case MessageTypeJoinRoom, MessageTypeLeaveRoom:
		var req RoomRequest
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &req) != nil || req.Room == "" {
			c.reply(MessageTypeError, ErrorPayload{Message: "room is required"})
			return
		}
		if msg.Type == MessageTypeJoinRoom {
			c.hub.JoinRoom(c, req.Room)
		} else {
			c.hub.LeaveRoom(c, req.Room)
		}
	default:
		c.reply(MessageTypeError, ErrorPayload{Message: "unsupported message type"})
	}
}

func (c *Client) reply(msgType string, payload interface{}) {
	msg := Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		msg.Data = data
	}
	if !c.trySend(msg) {
		metrics.RealtimeSlowClientsDropped.Inc()
		c.hub.unregister(c)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			data, err := json.Marshal(message)
			if err != nil {
				logging.Error().Err(err).Msg("failed to marshal websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
