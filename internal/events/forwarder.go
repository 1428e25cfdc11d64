// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
	"github.com/tomtom215/contracthub/internal/models"
	"github.com/tomtom215/contracthub/internal/notify"
)

const forwarderHandlerName = "contract_updates_to_realtime"

// Forwarder consumes contract updates from the bus and hands them to the
// realtime hub. It is a suture service; each Serve builds a fresh router
// because a watermill router cannot be restarted.
type Forwarder struct {
	bus    *Bus
	target notify.Publisher

	readyOnce sync.Once
	ready     chan struct{}
}

// NewForwarder creates a forwarder delivering to target.
func NewForwarder(bus *Bus, target notify.Publisher) *Forwarder {
	return &Forwarder{
		bus:    bus,
		target: target,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the first router is consuming.
func (f *Forwarder) Ready() <-chan struct{} {
	return f.ready
}

// Serve runs the router until ctx is canceled.
func (f *Forwarder) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, f.bus.Logger())
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddConsumerHandler(forwarderHandlerName, f.bus.Topic(), f.bus.Subscriber(), f.Handle)

	go func() {
		select {
		case <-router.Running():
			f.readyOnce.Do(func() { close(f.ready) })
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("topic", f.bus.Topic()).Str("backend", f.bus.Backend()).Msg("Event forwarder started")
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New("event router stopped unexpectedly")
}

// String names the service in supervisor logs.
func (f *Forwarder) String() string {
	return "event-forwarder"
}

// Handle decodes one contract update and forwards it. Undecodable messages
// are acked and dropped so they are not redelivered.
func (f *Forwarder) Handle(msg *message.Message) error {
	var event models.ContractUpdatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil || event.ContractID == "" {
		logging.Warn().Str("message_uuid", msg.UUID).Msg("Dropping malformed contract update")
		return nil
	}

	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataRequestID); id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}
	if err := f.target.PublishContractUpdated(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("contract_id", event.ContractID).Msg("Realtime forward failed")
		return nil
	}
	metrics.EventBusForwarded.Inc()
	return nil
}
