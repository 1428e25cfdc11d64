// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Requests rejected by rate limiting",
		},
		[]string{"group"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"}, // "success", "invalid_credentials", "error"
	)

	// Notification Metrics
	NotificationsDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notification rows persisted by the dispatcher",
		},
	)

	NotificationDispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_failures_total",
			Help: "Dispatcher failures by stage",
		},
		[]string{"stage"}, // "subscribers", "persist"
	)

	NotificationDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_dispatch_duration_seconds",
			Help:    "Time from trigger to batch commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationsMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_marked_read_total",
			Help: "Notifications flipped to read",
		},
	)

	// Realtime Metrics
	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_clients_connected",
			Help: "Currently connected realtime clients",
		},
	)

	RealtimePublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_publishes_total",
			Help: "Realtime publish calls by outcome",
		},
		[]string{"outcome"}, // "queued", "hub_stopped", "buffer_full"
	)

	RealtimeSlowClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_slow_clients_dropped_total",
			Help: "Clients disconnected because their send buffer was full",
		},
	)

	RealtimeInboundDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_inbound_frames_dropped_total",
			Help: "Client frames dropped by the per-connection rate limiter",
		},
	)

	// Event Bus Metrics
	EventBusPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_published_total",
			Help: "Events accepted by the event bus",
		},
	)

	EventBusPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_bus_publish_failures_total",
			Help: "Event bus publish failures by reason",
		},
		[]string{"reason"}, // "error", "circuit_open"
	)

	EventBusForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_forwarded_total",
			Help: "Events forwarded from the bus to the realtime hub",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Audit trail metrics
	AuditEventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_recorded_total",
			Help: "Audit events accepted for persistence",
		},
		[]string{"type", "outcome"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Audit events dropped because the write buffer was full",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordLogin counts a login attempt.
func RecordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

// RecordDispatch records a committed notification batch.
func RecordDispatch(rows int, duration time.Duration) {
	NotificationsDispatched.Add(float64(rows))
	NotificationDispatchDuration.Observe(duration.Seconds())
}

// RecordDispatchFailure counts a dispatcher failure at stage.
func RecordDispatchFailure(stage string) {
	NotificationDispatchFailures.WithLabelValues(stage).Inc()
}

// RecordRealtimePublish counts a hub publish by outcome.
func RecordRealtimePublish(outcome string) {
	RealtimePublishes.WithLabelValues(outcome).Inc()
}

// RecordEventPublish counts an event bus publish result.
func RecordEventPublish(err error, circuitOpen bool) {
	switch {
	case err == nil:
		EventBusPublished.Inc()
	case circuitOpen:
		EventBusPublishFailures.WithLabelValues("circuit_open").Inc()
	default:
		EventBusPublishFailures.WithLabelValues("error").Inc()
	}
}

// SetCircuitBreakerState records a breaker state transition. state follows
// gobreaker's ordering: 0 closed, 1 half-open, 2 open.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
