// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package services

import "context"

// HubRunner is satisfied by *websocket.Hub.
type HubRunner interface {
	RunWithContext(ctx context.Context) error
}

// RealtimeHubService supervises the realtime hub's event loop.
type RealtimeHubService struct {
	hub HubRunner
}

// NewRealtimeHubService wraps hub.
func NewRealtimeHubService(hub HubRunner) *RealtimeHubService {
	return &RealtimeHubService{hub: hub}
}

// Serve implements suture.Service.
func (s *RealtimeHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *RealtimeHubService) String() string {
	return "realtime-hub"
}
