// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package services adapts long-running components to suture.Service.

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
  - RealtimeHubService: the websocket hub event loop
  - SessionCleanupService: periodic removal of expired sessions

The event forwarder in internal/events implements suture.Service directly
and needs no wrapper.
*/
package services
