// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package notify

import "fmt"

// Stage names the dispatcher step that failed.
type Stage string

const (
	// StageSubscribers is the subscriber query.
	StageSubscribers Stage = "subscribers"
	// StagePersist is the notification batch insert.
	StagePersist Stage = "persist"
)

// DispatchError reports a failed fan-out. The contract write that triggered
// it has already committed.
type DispatchError struct {
	Stage      Stage
	ContractID string
	Err        error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("notification dispatch for contract %s failed at %s: %v", e.ContractID, e.Stage, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
