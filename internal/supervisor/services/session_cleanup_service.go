// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package services

import (
	"context"
	"time"

	"github.com/tomtom215/contracthub/internal/logging"
)

// ExpiredSessionCleaner is satisfied by every auth.SessionStore.
type ExpiredSessionCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// SessionCleanupService removes expired sessions on a fixed interval.
type SessionCleanupService struct {
	store    ExpiredSessionCleaner
	interval time.Duration
}

// NewSessionCleanupService creates the service. A non-positive interval means 10m.
func NewSessionCleanupService(store ExpiredSessionCleaner, interval time.Duration) *SessionCleanupService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SessionCleanupService{store: store, interval: interval}
}

// Serve implements suture.Service. Cleanup errors are logged and retried on
// the next tick.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.store.CleanupExpired(ctx)
			if err != nil {
				logging.Warn().Err(err).Msg("Session cleanup failed")
				continue
			}
			if removed > 0 {
				logging.Debug().Int("removed", removed).Msg("Expired sessions removed")
			}
		}
	}
}

func (s *SessionCleanupService) String() string {
	return "session-cleanup"
}
