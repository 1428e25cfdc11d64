// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

/*
Package events carries contractUpdated events from the notification
dispatcher to the realtime hub over a watermill topic.

The dispatcher publishes through ContractPublisher only after the
notification batch is committed. Publishing is fire-and-forget: a gobreaker
circuit breaker guards the broker, and failures are counted and logged but
never fail the contract write.

Backends:

  - memory: watermill gochannel, in-process only
  - nats: watermill-nats over core NATS, against events.nats_url or an
    embedded nats-server when events.embedded is set

The Forwarder subscribes with a watermill router and hands each decoded event
to the hub. Every process subscribes without a queue group so each hub sees
every update.
*/
package events
