// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	// RetentionDays is how long to keep audit events. Zero keeps them forever.
	RetentionDays int
	// CleanupInterval is how often Serve runs retention cleanup.
	CleanupInterval time.Duration
	// BufferSize is the size of the async write buffer.
	BufferSize int
	// LogToStdout also writes events through the application logger.
	LogToStdout bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// Logger records audit events asynchronously. A nil *Logger discards every
// event, so callers never need to check whether auditing is enabled.
type Logger struct {
	config    Config
	store     Store
	eventChan chan *Event

	closeOnce sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger starts the async writer. Close stops it after draining the buffer.
func NewLogger(store Store, config Config) *Logger {
	d := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = d.BufferSize
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = d.CleanupInterval
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		if data, err := json.Marshal(event); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log fills in ID and Timestamp when empty and queues the event. It never
// blocks; a full buffer drops the event.
func (l *Logger) Log(event *Event) {
	if l == nil || event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC().Truncate(time.Microsecond)
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeSuccess
	}

	select {
	case <-l.stopChan:
		return
	default:
	}
	select {
	case l.eventChan <- event:
		metrics.AuditEventsRecorded.WithLabelValues(string(event.Type), string(event.Outcome)).Inc()
	default:
		metrics.AuditEventsDropped.Inc()
		logging.Warn().Str("type", string(event.Type)).Msg("Audit buffer full, event dropped")
	}
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Serve implements suture.Service by running retention cleanup on an interval.
func (l *Logger) Serve(ctx context.Context) error {
	if l.config.RetentionDays <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	l.cleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.cleanup(ctx)
		}
	}
}

func (l *Logger) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -l.config.RetentionDays)
	removed, err := l.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Warn().Err(err).Msg("Audit retention cleanup failed")
		return
	}
	if removed > 0 {
		logging.Info().Int64("removed", removed).Int("retention_days", l.config.RetentionDays).Msg("Removed expired audit events")
	}
}

// String implements fmt.Stringer for supervisor logging.
func (l *Logger) String() string {
	return "audit-retention"
}

// Query reads events from the backing store.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count counts events in the backing store.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// LogAuthSuccess records a successful login.
func (l *Logger) LogAuthSuccess(r *http.Request, actor Actor) {
	l.Log(&Event{
		Type:        EventTypeAuthSuccess,
		Actor:       actor,
		Source:      SourceFromRequest(r),
		Description: "User logged in",
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// LogAuthFailure records a rejected login for email.
func (l *Logger) LogAuthFailure(r *http.Request, email, reason string) {
	l.Log(&Event{
		Type:        EventTypeAuthFailure,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       Actor{Email: email},
		Source:      SourceFromRequest(r),
		Description: "Login rejected: " + reason,
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// LogLogout records a logout.
func (l *Logger) LogLogout(r *http.Request, actor Actor) {
	l.Log(&Event{
		Type:        EventTypeLogout,
		Actor:       actor,
		Source:      SourceFromRequest(r),
		Description: "User logged out",
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// LogChange records a successful write to a contract or user. metadata may be nil.
func (l *Logger) LogChange(r *http.Request, actor Actor, eventType EventType, target Target, description string, metadata map[string]any) {
	l.Log(&Event{
		Type:        eventType,
		Actor:       actor,
		Target:      &target,
		Source:      SourceFromRequest(r),
		Description: description,
		Metadata:    mustJSON(metadata),
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// LogDataExport records a CSV export of resource.
func (l *Logger) LogDataExport(r *http.Request, actor Actor, resource string, recordCount int) {
	l.Log(&Event{
		Type:        EventTypeDataExport,
		Actor:       actor,
		Source:      SourceFromRequest(r),
		Description: "Exported " + resource,
		Metadata:    mustJSON(map[string]any{"resource": resource, "format": "csv", "records": recordCount}),
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

func mustJSON(v map[string]any) json.RawMessage {
	if len(v) == 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// SourceFromRequest extracts the client address and user agent. RemoteAddr
// is expected to be rewritten by the RealIP middleware already.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IP: ip, UserAgent: r.UserAgent()}
}
