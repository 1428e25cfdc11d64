// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package client is a Go client for the notification endpoints and the realtime
channel, plus the notification cache that reconciles both for one user.

The cache treats the server snapshot from GET /api/notifications/all as the
truth. Live contractUpdated events whose status the user subscribes to bump a
local counter that is persisted in a SlotStore under newUpdatesCount, so a
restarted process keeps it. A loaded snapshot already contains the rows of
earlier events, so the badge adds only events received after it. Mark-as-read clears the
counter and writes notifications_read; every other cache watching the same
store re-fetches on that write.

	api, _ := client.NewAPI("http://localhost:8080", nil)
	res, _ := api.Login(ctx, email, password)
	rt := client.NewRealtime(api, client.RealtimeConfig{})
	go rt.Run(ctx)
	cache, _ := client.NewCache(api, client.NewMemorySlotStore(), rt.Events(),
		client.CacheConfig{UserID: res.User.ID})
	_ = cache.Start(ctx)
	fmt.Println(cache.Snapshot().Badge)
*/
package client
