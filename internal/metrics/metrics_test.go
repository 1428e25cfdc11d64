// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/contract", "200"))
	RecordAPIRequest("GET", "/api/contract", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/contract", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}

func TestRecordDispatch(t *testing.T) {
	before := testutil.ToFloat64(NotificationsDispatched)
	RecordDispatch(3, time.Millisecond)
	if got := testutil.ToFloat64(NotificationsDispatched) - before; got != 3 {
		t.Errorf("dispatched delta = %v, want 3", got)
	}

	failBefore := testutil.ToFloat64(NotificationDispatchFailures.WithLabelValues("persist"))
	RecordDispatchFailure("persist")
	if got := testutil.ToFloat64(NotificationDispatchFailures.WithLabelValues("persist")) - failBefore; got != 1 {
		t.Errorf("failures delta = %v, want 1", got)
	}
}

func TestRecordEventPublish(t *testing.T) {
	okBefore := testutil.ToFloat64(EventBusPublished)
	openBefore := testutil.ToFloat64(EventBusPublishFailures.WithLabelValues("circuit_open"))
	errBefore := testutil.ToFloat64(EventBusPublishFailures.WithLabelValues("error"))

	RecordEventPublish(nil, false)
	RecordEventPublish(errors.New("boom"), true)
	RecordEventPublish(errors.New("boom"), false)

	if testutil.ToFloat64(EventBusPublished)-okBefore != 1 {
		t.Error("success not counted")
	}
	if testutil.ToFloat64(EventBusPublishFailures.WithLabelValues("circuit_open"))-openBefore != 1 {
		t.Error("circuit_open not counted")
	}
	if testutil.ToFloat64(EventBusPublishFailures.WithLabelValues("error"))-errBefore != 1 {
		t.Error("error not counted")
	}
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("events", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("events")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
}
