// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package notify

import (
	"context"
	"time"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/metrics"
	"github.com/tomtom215/contracthub/internal/models"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	SubscriberIDs(ctx context.Context, status models.ContractStatus) ([]string, error)
	InsertNotifications(ctx context.Context, batch []models.Notification) error
}

// Publisher delivers the live event. Implementations must not block on slow
// consumers; errors are logged and dropped.
type Publisher interface {
	PublishContractUpdated(ctx context.Context, event models.ContractUpdatedEvent) error
}

// Write describes a committed contract write.
type Write struct {
	Contract *models.Contract
	// Previous is the status before an update; ignored for creates.
	Previous models.ContractStatus
	IsCreate bool
}

// Triggers reports whether the write changes status.
func (w Write) Triggers() bool {
	return w.IsCreate || w.Previous != w.Contract.Status
}

// Result summarizes a dispatch.
type Result struct {
	Triggered     bool
	Notifications []models.Notification
}

// Dispatcher fans a contract status change out to subscribed users.
type Dispatcher struct {
	store     Store
	publisher Publisher
	clock     func() time.Time
}

// NewDispatcher creates a dispatcher. A nil publisher disables live events.
func NewDispatcher(store Store, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		clock:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Dispatch persists one unread notification per subscriber of the new status
// as a single batch, then publishes one contractUpdated event. Subscriber or
// persistence failures return a *DispatchError and skip the publish. Publish
// failures are logged only.
func (d *Dispatcher) Dispatch(ctx context.Context, w Write) (*Result, error) {
	if !w.Triggers() {
		return &Result{}, nil
	}

	c := w.Contract
	start := time.Now()
	log := logging.Ctx(ctx).With().Str("contract_id", c.ID).Str("status", string(c.Status)).Logger()

	userIDs, err := d.store.SubscriberIDs(ctx, c.Status)
	if err != nil {
		metrics.RecordDispatchFailure(string(StageSubscribers))
		log.Error().Err(err).Msg("Failed to query notification subscribers")
		return nil, &DispatchError{Stage: StageSubscribers, ContractID: c.ID, Err: err}
	}

	createdAt := d.clock()
	message := models.NotificationMessage(c.ID, c.Status)
	batch := make([]models.Notification, len(userIDs))
	for i, uid := range userIDs {
		batch[i] = models.Notification{
			UserID:     uid,
			ContractID: c.ID,
			Status:     c.Status,
			Message:    message,
			IsRead:     false,
			CreatedAt:  createdAt,
		}
	}

	if err := d.store.InsertNotifications(ctx, batch); err != nil {
		metrics.RecordDispatchFailure(string(StagePersist))
		log.Error().Err(err).Int("recipients", len(batch)).Msg("Failed to persist notifications")
		return nil, &DispatchError{Stage: StagePersist, ContractID: c.ID, Err: err}
	}
	metrics.RecordDispatch(len(batch), time.Since(start))

	d.publish(ctx, models.ContractUpdatedEvent{ContractID: c.ID, Status: c.Status})

	log.Debug().Int("recipients", len(batch)).Bool("create", w.IsCreate).Msg("Dispatched contract notifications")
	return &Result{Triggered: true, Notifications: batch}, nil
}

func (d *Dispatcher) publish(ctx context.Context, event models.ContractUpdatedEvent) {
	if d.publisher == nil {
		logging.Ctx(ctx).Warn().Str("contract_id", event.ContractID).Msg("No realtime publisher configured, event dropped")
		return
	}
	if err := d.publisher.PublishContractUpdated(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("contract_id", event.ContractID).Msg("Realtime publish failed")
	}
}
