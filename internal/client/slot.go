// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package client

import (
	"context"
	"strings"
	"sync"
)

// Slot names under a user's namespace.
const (
	SlotNewUpdatesCount   = "newUpdatesCount"
	SlotNotificationsRead = "notifications_read"
)

// SlotKey namespaces a slot name per user so several accounts can share one store.
func SlotKey(userID, name string) string {
	return "contracthub/" + userID + "/" + name
}

// SlotChange is one write observed through Watch. Deleted is set when the key
// was removed.
type SlotChange struct {
	Key     string
	Value   string
	Deleted bool
}

// SlotStore is a small durable key/value store shared by every cache of the
// same user, like browser local storage. Watch reports every change under
// prefix, including the caller's own writes, until ctx ends.
type SlotStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Watch(ctx context.Context, prefix string) (<-chan SlotChange, error)
}

// watchBuffer is the per-watcher queue. A watcher that falls this far
// behind misses changes.
const watchBuffer = 64

type memoryWatcher struct {
	prefix string
	ch     chan SlotChange
}

// MemorySlotStore is a process-local SlotStore.
type MemorySlotStore struct {
	mu       sync.Mutex
	values   map[string]string
	watchers map[*memoryWatcher]struct{}
}

// NewMemorySlotStore creates an empty store.
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{
		values:   make(map[string]string),
		watchers: make(map[*memoryWatcher]struct{}),
	}
}

// Get implements SlotStore.
func (s *MemorySlotStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements SlotStore.
func (s *MemorySlotStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.notifyLocked(SlotChange{Key: key, Value: value})
	return nil
}

// Delete implements SlotStore. Deleting a missing key notifies nobody.
func (s *MemorySlotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	s.notifyLocked(SlotChange{Key: key, Deleted: true})
	return nil
}

// Watch implements SlotStore.
func (s *MemorySlotStore) Watch(ctx context.Context, prefix string) (<-chan SlotChange, error) {
	w := &memoryWatcher{prefix: prefix, ch: make(chan SlotChange, watchBuffer)}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, w)
		close(w.ch)
		s.mu.Unlock()
	}()
	return w.ch, nil
}

func (s *MemorySlotStore) notifyLocked(change SlotChange) {
	for w := range s.watchers {
		if !strings.HasPrefix(change.Key, w.prefix) {
			continue
		}
		select {
		case w.ch <- change:
		default:
		}
	}
}
