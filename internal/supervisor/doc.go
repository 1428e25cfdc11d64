// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package supervisor runs the long-lived services of the server under a suture v4
tree.

	root ("contracthub")
	├── data-layer
	│   └── SessionCleanupService
	├── messaging-layer
	│   ├── RealtimeHubService
	│   └── events.Forwarder
	└── api-layer
	    └── HTTPServerService

Each layer restarts its children independently, so a crashing forwarder does
not drop websocket connections and a failed listener does not stop event
delivery. Supervisor events are logged through sutureslog and the zerolog slog
bridge.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
		return err
	}
	tree.AddMessagingService(services.NewRealtimeHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, timeout))
	err = tree.Serve(ctx)
*/
package supervisor
