// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/contracthub/internal/config"
	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
	"github.com/tomtom215/contracthub/internal/models"
)

// recordingTarget captures forwarded events.
type recordingTarget struct {
	mu       sync.Mutex
	events   []models.ContractUpdatedEvent
	requests []string
	got      chan struct{}
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{got: make(chan struct{}, 16)}
}

func (r *recordingTarget) PublishContractUpdated(ctx context.Context, event models.ContractUpdatedEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.requests = append(r.requests, logging.RequestIDFromContext(ctx))
	r.mu.Unlock()
	r.got <- struct{}{}
	return nil
}

func (r *recordingTarget) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.got:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}
}

// runForwarder serves f until the test ends.
func runForwarder(t *testing.T, f *Forwarder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Serve(ctx) }()
	select {
	case <-f.Ready():
	case err := <-done:
		t.Fatalf("forwarder exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("forwarder not ready")
	}
	t.Cleanup(func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	})
}

func newBus(t *testing.T, cfg config.EventsConfig) *Bus {
	t.Helper()
	bus, err := NewBus(cfg)
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestMemoryBusEndToEnd(t *testing.T) {
	bus := newBus(t, config.EventsConfig{Backend: "memory", Topic: "test.contracts"})
	target := newRecordingTarget()
	runForwarder(t, NewForwarder(bus, target))

	pub := NewContractPublisher(bus.Publisher(), bus.Topic(), 3, time.Second)
	ctx := logging.ContextWithRequestID(context.Background(), "req-42")
	before := testutil.ToFloat64(metrics.EventBusForwarded)

	if err := pub.PublishContractUpdated(ctx, models.ContractUpdatedEvent{ContractID: "c1", Status: models.StatusFinalized}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	target.wait(t)

	target.mu.Lock()
	defer target.mu.Unlock()
	if target.events[0].ContractID != "c1" || target.events[0].Status != models.StatusFinalized {
		t.Fatalf("forwarded %+v", target.events[0])
	}
	if target.requests[0] != "req-42" {
		t.Fatalf("request id = %q", target.requests[0])
	}
	waitForCounter(t, func() bool { return testutil.ToFloat64(metrics.EventBusForwarded) >= before+1 })
}

func waitForCounter(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("metric not updated")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNATSEmbeddedEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}
	bus := newBus(t, config.EventsConfig{
		Backend:      "nats",
		Topic:        "test.contracts",
		Embedded:     true,
		EmbeddedHost: "127.0.0.1",
		EmbeddedPort: -1,
	})
	if bus.Backend() != BackendNATS || bus.embedded == nil || !bus.embedded.IsRunning() {
		t.Fatal("embedded server not running")
	}

	target := newRecordingTarget()
	runForwarder(t, NewForwarder(bus, target))

	pub := NewContractPublisher(bus.Publisher(), bus.Topic(), 3, time.Second)
	// Core NATS drops messages published before the subscription is live.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := pub.PublishContractUpdated(context.Background(),
			models.ContractUpdatedEvent{ContractID: "c2", Status: models.StatusDraft}); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case <-target.got:
			target.mu.Lock()
			got := target.events[0]
			target.mu.Unlock()
			if got.ContractID != "c2" {
				t.Fatalf("forwarded %+v", got)
			}
			return
		case <-time.After(200 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("no event received over NATS")
		}
	}
}

func TestNewBusUnknownBackend(t *testing.T) {
	if _, err := NewBus(config.EventsConfig{Backend: "kafka"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

// failingPublisher fails every publish.
type failingPublisher struct {
	calls int
}

func (f *failingPublisher) Publish(string, ...*message.Message) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestCircuitBreakerOpens(t *testing.T) {
	fp := &failingPublisher{}
	pub := NewContractPublisher(fp, "t", 2, time.Hour)
	event := models.ContractUpdatedEvent{ContractID: "c1", Status: models.StatusDraft}
	openBefore := testutil.ToFloat64(metrics.EventBusPublishFailures.WithLabelValues("circuit_open"))

	for i := 0; i < 2; i++ {
		if err := pub.PublishContractUpdated(context.Background(), event); err == nil {
			t.Fatal("expected publish error")
		}
	}
	if pub.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", pub.State())
	}

	err := pub.PublishContractUpdated(context.Background(), event)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if fp.calls != 2 {
		t.Fatalf("broker called %d times with open circuit", fp.calls)
	}
	if got := testutil.ToFloat64(metrics.EventBusPublishFailures.WithLabelValues("circuit_open")); got != openBefore+1 {
		t.Fatalf("circuit_open failures = %v, want %v", got, openBefore+1)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(BreakerName)); got != float64(gobreaker.StateOpen) {
		t.Fatalf("breaker gauge = %v", got)
	}
}

func TestForwarderDropsMalformed(t *testing.T) {
	target := newRecordingTarget()
	f := NewForwarder(nil, target)

	for _, payload := range []string{"not-json", `{"status":"DRAFT"}`} {
		if err := f.Handle(message.NewMessage("m1", []byte(payload))); err != nil {
			t.Fatalf("Handle(%q) = %v, want nil", payload, err)
		}
	}
	if len(target.events) != 0 {
		t.Fatalf("malformed message forwarded")
	}
}
