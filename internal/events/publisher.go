// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
	"github.com/tomtom215/contracthub/internal/models"
)

// Metadata keys set on every contract update message.
const (
	MetadataEvent     = "event"
	MetadataRequestID = "request_id"
)

// BreakerName labels the publish circuit breaker in logs and metrics.
const BreakerName = "event_bus_publish"

// ContractPublisher publishes contract updates onto the bus behind a circuit
// breaker so a dead broker cannot slow down contract writes.
type ContractPublisher struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker[struct{}]
}

// NewContractPublisher wraps pub. The circuit opens after maxFailures
// consecutive failures and half-opens after timeout.
func NewContractPublisher(pub message.Publisher, topic string, maxFailures uint32, timeout time.Duration) *ContractPublisher {
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, int(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
	metrics.SetCircuitBreakerState(BreakerName, int(gobreaker.StateClosed))

	return &ContractPublisher{
		publisher: pub,
		topic:     topic,
		breaker:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// PublishContractUpdated sends event to the bus. It never blocks on the
// realtime clients; the forwarder delivers asynchronously.
func (p *ContractPublisher) PublishContractUpdated(ctx context.Context, event models.ContractUpdatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal contract update: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataEvent, models.EventContractUpdated)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRequestID, id)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	circuitOpen := errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
	metrics.RecordEventPublish(err, circuitOpen)
	if err != nil {
		return fmt.Errorf("publish contract update: %w", err)
	}
	return nil
}

// State returns the circuit breaker state.
func (p *ContractPublisher) State() gobreaker.State {
	return p.breaker.State()
}
