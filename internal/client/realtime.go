// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/models"
)

// RealtimeConfig tunes the realtime connection. Zero values take defaults.
type RealtimeConfig struct {
	// Origin is sent on the handshake; the server rejects upgrades without one.
	// Defaults to the API base URL.
	Origin     string
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// EventBuffer is the capacity of the Events channel. Events are dropped
	// while it is full.
	EventBuffer int
	Dialer      *websocket.Dialer
}

// frame is one server message.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Realtime keeps a websocket open to /api/socket and delivers contractUpdated
// events. Run reconnects with exponential backoff until its context ends.
type Realtime struct {
	api    *API
	url    string
	cfg    RealtimeConfig
	events chan models.ContractUpdatedEvent

	connected atomic.Bool
	dials     atomic.Int64
}

// NewRealtime creates a realtime client that authenticates with api's token.
func NewRealtime(api *API, cfg RealtimeConfig) *Realtime {
	base := api.BaseURL()
	if cfg.Origin == "" {
		cfg.Origin = base.Scheme + "://" + base.Host
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 250 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment}
	}

	wsURL := url.URL{Scheme: "ws", Host: base.Host, Path: base.Path + "/api/socket"}
	if base.Scheme == "https" {
		wsURL.Scheme = "wss"
	}

	return &Realtime{
		api:    api,
		url:    wsURL.String(),
		cfg:    cfg,
		events: make(chan models.ContractUpdatedEvent, cfg.EventBuffer),
	}
}

// Events delivers received contract updates. It is closed when Run returns.
func (r *Realtime) Events() <-chan models.ContractUpdatedEvent {
	return r.events
}

// Connected reports whether a connection is currently open.
func (r *Realtime) Connected() bool {
	return r.connected.Load()
}

// Dials returns the number of connection attempts so far.
func (r *Realtime) Dials() int64 {
	return r.dials.Load()
}

// Run connects and reads until ctx ends. The return value is always ctx.Err().
func (r *Realtime) Run(ctx context.Context) error {
	defer close(r.events)

	backoff := r.cfg.MinBackoff
	for {
		started := time.Now()
		err := r.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A connection that stayed up resets the backoff.
		if time.Since(started) > r.cfg.MaxBackoff {
			backoff = r.cfg.MinBackoff
		}
		logging.Warn().Err(err).Dur("retry_in", backoff).Msg("Realtime connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

// session dials once and reads frames until the connection fails.
func (r *Realtime) session(ctx context.Context) error {
	r.dials.Add(1)

	header := http.Header{}
	header.Set("Origin", r.cfg.Origin)
	if token := r.api.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := r.cfg.Dialer.DialContext(ctx, r.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", r.url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", r.url, err)
	}
	r.connected.Store(true)
	defer r.connected.Store(false)

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer func() {
		stop()
		_ = conn.Close()
	}()

	logging.Debug().Str("url", r.url).Msg("Realtime connected")
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("server closed the connection")
			}
			return fmt.Errorf("read: %w", err)
		}
		r.handle(raw)
	}
}

func (r *Realtime) handle(raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		logging.Debug().Err(err).Msg("Ignoring malformed realtime frame")
		return
	}
	if f.Type != models.EventContractUpdated {
		return
	}
	var event models.ContractUpdatedEvent
	if err := json.Unmarshal(f.Data, &event); err != nil || event.ContractID == "" {
		logging.Debug().Err(err).Msg("Ignoring malformed contractUpdated frame")
		return
	}
	select {
	case r.events <- event:
	default:
		logging.Warn().Str("contract_id", event.ContractID).Msg("Realtime event buffer full, event dropped")
	}
}
