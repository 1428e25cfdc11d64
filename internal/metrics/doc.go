// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package metrics provides Prometheus metrics for the contract service.

All collectors are registered on the default registry through promauto and
exposed by the API at /metrics.

# Available Metrics

HTTP:
  - api_requests_total{method, endpoint, status_code}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{group}
  - auth_login_attempts_total{result}

Notifications:
  - notifications_dispatched_total
  - notification_dispatch_failures_total{stage}
  - notification_dispatch_duration_seconds
  - notifications_marked_read_total

Realtime and event bus:
  - realtime_clients_connected
  - realtime_publishes_total{outcome}
  - realtime_slow_clients_dropped_total
  - realtime_inbound_frames_dropped_total
  - event_bus_published_total
  - event_bus_publish_failures_total{reason}
  - event_bus_forwarded_total
  - circuit_breaker_state{name}

The endpoint label is the chi route pattern, not the raw path, so ids in
query strings or paths never create new series.
*/
package metrics
