// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/models"
)

// DefaultUnreadCap is the badge cap; counts at or above it render "9+".
const DefaultUnreadCap = 9

// NotificationsAPI is the server surface the cache needs. *API implements it.
type NotificationsAPI interface {
	FetchNotifications(ctx context.Context) (*models.NotificationFeed, error)
	MarkRead(ctx context.Context, ids []string) error
	UserStatuses(ctx context.Context, userID string) (models.StatusSet, error)
}

// ReadSignal is the value written to the notifications_read slot.
type ReadSignal struct {
	IDs       []string `json:"ids"`
	Timestamp int64    `json:"timestamp"`
	// Origin identifies the writing cache so it can ignore its own signal.
	Origin string `json:"origin"`
}

// Snapshot is a consistent view of the cache.
type Snapshot struct {
	Notifications []models.NotificationWithContract
	// UnreadCount is the server's capped count.
	UnreadCount int
	// LiveCount is the persisted overlay: matching realtime events since the
	// last Refetch or mark-as-read, capped. It survives restarts.
	LiveCount int
	// Badge renders the displayed count with BadgeText. Once a snapshot has
	// loaded it is UnreadCount plus the events seen after that snapshot;
	// before that it is LiveCount.
	Badge     string
	Statuses  models.StatusSet
	IsLoading bool
}

// CacheConfig configures a Cache. UserID is required.
type CacheConfig struct {
	UserID    string
	UnreadCap int
}

// Cache reconciles the server's notification snapshot with live realtime
// events for one user. The server snapshot is authoritative; the live counter
// is an overlay persisted in the SlotStore and cleared on mark-as-read and on
// every Refetch. Events already reflected in a loaded snapshot never add to the
// badge a second time.
type Cache struct {
	api    NotificationsAPI
	slots  SlotStore
	events <-chan models.ContractUpdatedEvent
	userID string
	cap    int
	origin string

	mu            sync.RWMutex
	notifications []models.NotificationWithContract
	unread        int
	live          int
	fresh         int
	synced        bool
	statuses      models.StatusSet
	loading       bool

	changed chan struct{}
	wg      sync.WaitGroup
}

// NewCache creates a cache. events may be nil when no realtime connection is available.
func NewCache(api NotificationsAPI, slots SlotStore, events <-chan models.ContractUpdatedEvent, cfg CacheConfig) (*Cache, error) {
	if cfg.UserID == "" {
		return nil, errors.New("cache: user id is required")
	}
	if cfg.UnreadCap <= 0 {
		cfg.UnreadCap = DefaultUnreadCap
	}
	return &Cache{
		api:           api,
		slots:         slots,
		events:        events,
		userID:        cfg.UserID,
		cap:           cfg.UnreadCap,
		origin:        uuid.NewString(),
		notifications: []models.NotificationWithContract{},
		loading:       true,
		changed:       make(chan struct{}, 1),
	}, nil
}

func (c *Cache) countKey() string { return SlotKey(c.userID, SlotNewUpdatesCount) }
func (c *Cache) readKey() string  { return SlotKey(c.userID, SlotNotificationsRead) }

// Start loads the durable live counter and the user's statuses, fetches the
// snapshot, then watches the read signal and consumes realtime events until
// ctx ends. A failed snapshot fetch is logged and returned, but the watchers
// keep running so a later signal or Refetch can recover.
func (c *Cache) Start(ctx context.Context) error {
	if raw, ok, err := c.slots.Get(ctx, c.countKey()); err != nil {
		logging.Warn().Err(err).Msg("Failed to read live update counter")
	} else if ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			c.mu.Lock()
			c.live = models.CapCount(n, c.cap)
			c.mu.Unlock()
		}
	}

	if err := c.RefreshStatuses(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to load subscribed statuses")
	}

	changes, err := c.slots.Watch(ctx, c.readKey())
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go c.watchReadSignal(ctx, changes)

	if c.events != nil {
		c.wg.Add(1)
		go c.consumeEvents(ctx)
	}

	return c.fetch(ctx, false)
}

// Wait blocks until the goroutines started by Start have returned.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Changed is signalled, coalesced, whenever the snapshot changes.
func (c *Cache) Changed() <-chan struct{} {
	return c.changed
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := make([]models.NotificationWithContract, len(c.notifications))
	copy(list, c.notifications)
	return Snapshot{
		Notifications: list,
		UnreadCount:   c.unread,
		LiveCount:     c.live,
		Badge:         models.BadgeText(c.displayed(), c.cap),
		Statuses:      append(models.StatusSet(nil), c.statuses...),
		IsLoading:     c.loading,
	}
}

// Refetch replaces the snapshot with the server's and clears the live counter.
func (c *Cache) Refetch(ctx context.Context) error {
	return c.fetch(ctx, true)
}

// RefreshStatuses reloads the statuses that select which live events count.
func (c *Cache) RefreshStatuses(ctx context.Context) error {
	statuses, err := c.api.UserStatuses(ctx, c.userID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
	return nil
}

// MarkAsRead marks every currently unread notification as read on the server,
// flips them locally, resets both counters, clears the live counter slot and
// writes the read signal that makes sibling caches re-fetch.
func (c *Cache) MarkAsRead(ctx context.Context) error {
	c.mu.RLock()
	var ids []string
	for _, n := range c.notifications {
		if !n.IsRead {
			ids = append(ids, n.ID)
		}
	}
	c.mu.RUnlock()

	if len(ids) > 0 {
		if err := c.api.MarkRead(ctx, ids); err != nil {
			return err
		}
	}

	signal, err := json.Marshal(ReadSignal{IDs: ids, Timestamp: time.Now().UnixMilli(), Origin: c.origin})
	if err != nil {
		return err
	}
	if err := c.slots.Set(ctx, c.readKey(), string(signal)); err != nil {
		logging.Warn().Err(err).Msg("Failed to write read signal")
	}

	marked := make(map[string]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	c.mu.Lock()
	for i := range c.notifications {
		if marked[c.notifications[i].ID] {
			c.notifications[i].IsRead = true
		}
	}
	c.unread = 0
	c.live = 0
	c.fresh = 0
	c.mu.Unlock()

	if err := c.slots.Delete(ctx, c.countKey()); err != nil {
		logging.Warn().Err(err).Msg("Failed to clear live update counter")
	}
	c.notify()
	return nil
}

func (c *Cache) fetch(ctx context.Context, clearLive bool) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	feed, err := c.api.FetchNotifications(ctx)

	c.mu.Lock()
	c.loading = false
	if err == nil {
		c.notifications = feed.Notifications
		c.unread = models.CapCount(feed.UnreadCount, c.cap)
		c.fresh = 0
		c.synced = true
		if clearLive {
			c.live = 0
		}
	}
	c.mu.Unlock()

	if err != nil {
		logging.Warn().Err(err).Msg("Failed to fetch notifications")
		c.notify()
		return err
	}
	if clearLive {
		if err := c.slots.Delete(ctx, c.countKey()); err != nil {
			logging.Warn().Err(err).Msg("Failed to clear live update counter")
		}
	}
	c.notify()
	return nil
}

func (c *Cache) watchReadSignal(ctx context.Context, changes <-chan SlotChange) {
	defer c.wg.Done()
	for change := range changes {
		if change.Deleted || change.Key != c.readKey() {
			continue
		}
		var signal ReadSignal
		if err := json.Unmarshal([]byte(change.Value), &signal); err == nil && signal.Origin == c.origin {
			continue
		}
		if err := c.Refetch(ctx); err != nil && ctx.Err() == nil {
			logging.Warn().Err(err).Msg("Re-fetch after read signal failed")
		}
	}
}

func (c *Cache) consumeEvents(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.events:
			if !ok {
				return
			}
			c.handleEvent(ctx, event)
		}
	}
}

// handleEvent counts events whose status the user subscribes to.
func (c *Cache) handleEvent(ctx context.Context, event models.ContractUpdatedEvent) {
	c.mu.Lock()
	if !c.statuses.Contains(event.Status) {
		c.mu.Unlock()
		return
	}
	c.live = models.CapCount(c.live+1, c.cap)
	c.fresh = models.CapCount(c.fresh+1, c.cap)
	live := c.live
	c.mu.Unlock()

	if err := c.slots.Set(ctx, c.countKey(), strconv.Itoa(live)); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist live update counter")
	}
	c.notify()
}

// displayed is the capped badge count. Every counted event has its row
// written before it is published, so a snapshot already includes the events
// seen before it; only later ones are added. Callers hold mu.
func (c *Cache) displayed() int {
	if !c.synced {
		return models.CapCount(c.live, c.cap)
	}
	return models.CapCount(c.unread+c.fresh, c.cap)
}

func (c *Cache) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}
