// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"

	"github.com/tomtom215/contracthub/internal/logging"
)

// watchMarker is appended to a prefix to confirm a subscription is live.
const watchMarker = "\x00watch/"

// BadgerSlotStore persists slots in BadgerDB and reports changes through
// badger's key subscription, so caches sharing one DB see each other's writes.
type BadgerSlotStore struct {
	db *badger.DB
}

// NewBadgerSlotStore wraps an open DB. The caller owns and closes it.
func NewBadgerSlotStore(db *badger.DB) *BadgerSlotStore {
	return &BadgerSlotStore{db: db}
}

// Get implements SlotStore.
func (s *BadgerSlotStore) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get slot %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements SlotStore. An empty value deletes the key.
func (s *BadgerSlotStore) Set(ctx context.Context, key, value string) error {
	if value == "" {
		return s.Delete(ctx, key)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	}); err != nil {
		return fmt.Errorf("set slot %s: %w", key, err)
	}
	return nil
}

// Delete implements SlotStore.
func (s *BadgerSlotStore) Delete(_ context.Context, key string) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("delete slot %s: %w", key, err)
	}
	return nil
}

// Watch implements SlotStore. It returns once the subscription is live: badger
// registers subscribers asynchronously, so Watch writes a marker key under
// prefix and waits for it to come back.
func (s *BadgerSlotStore) Watch(ctx context.Context, prefix string) (<-chan SlotChange, error) {
	out := make(chan SlotChange, watchBuffer)
	ready := make(chan struct{})
	marker := prefix + watchMarker + uuid.NewString()
	readyClosed := false

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		err := s.db.Subscribe(subCtx, func(list *badger.KVList) error {
			for _, kv := range list.Kv {
				key := string(kv.Key)
				if strings.Contains(key, watchMarker) {
					if key == marker && !readyClosed {
						readyClosed = true
						close(ready)
					}
					continue
				}
				change := SlotChange{Key: key, Value: string(kv.Value), Deleted: len(kv.Value) == 0}
				select {
				case out <- change:
				default:
				}
			}
			return nil
		}, []pb.Match{{Prefix: []byte(prefix)}})
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Str("prefix", prefix).Msg("Slot subscription ended")
		}
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(5 * time.Second)
	defer deadline.Stop()
	for {
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.SetEntry(badger.NewEntry([]byte(marker), []byte{1}).WithTTL(time.Minute))
		}); err != nil {
			cancel()
			return nil, fmt.Errorf("arm slot watch: %w", err)
		}
		select {
		case <-ready:
			_ = s.Delete(ctx, marker)
			go func() {
				<-ctx.Done()
				cancel()
			}()
			return out, nil
		case <-ticker.C:
		case <-deadline.C:
			cancel()
			return nil, errors.New("slot watch did not become ready")
		case <-ctx.Done():
			cancel()
			return nil, ctx.Err()
		}
	}
}
