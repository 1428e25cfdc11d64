// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/contracthub/internal/models"
)

func TestNotificationFeedWindowLimitAndCap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "A", "a@example.com", models.StatusFinalized)
	c := mustCreateContract(t, db, "T", "C", models.StatusFinalized, models.TypeSales)

	base := time.Now().UTC().Truncate(time.Microsecond)
	var batch []models.Notification
	for i := 0; i < 60; i++ {
		batch = append(batch, models.Notification{
			ID:         fmt.Sprintf("n-%02d", i),
			UserID:     u.ID,
			ContractID: c.ID,
			Status:     models.StatusFinalized,
			Message:    models.NotificationMessage(c.ID, models.StatusFinalized),
			IsRead:     i%2 == 0,
			CreatedAt:  base.Add(-time.Duration(i) * time.Minute),
		})
	}
	batch = append(batch, models.Notification{
		ID: "old", UserID: u.ID, ContractID: c.ID, Status: models.StatusFinalized,
		Message: "old", CreatedAt: base.AddDate(0, 0, -31),
	})
	if err := db.InsertNotifications(ctx, batch); err != nil {
		t.Fatalf("InsertNotifications() error = %v", err)
	}

	feed, err := db.NotificationFeed(ctx, u.ID, base.AddDate(0, 0, -30), 50, 9)
	if err != nil {
		t.Fatalf("NotificationFeed() error = %v", err)
	}
	if len(feed.Notifications) != 50 {
		t.Fatalf("len = %d, want 50", len(feed.Notifications))
	}
	if feed.Notifications[0].ID != "n-00" {
		t.Errorf("first = %s, want newest n-00", feed.Notifications[0].ID)
	}
	for i := 1; i < len(feed.Notifications); i++ {
		if feed.Notifications[i].CreatedAt.After(feed.Notifications[i-1].CreatedAt) {
			t.Fatalf("feed not sorted newest first at %d", i)
		}
	}
	seenRead := false
	for _, n := range feed.Notifications {
		if n.ID == "old" {
			t.Error("notification older than the window returned")
		}
		if n.IsRead {
			seenRead = true
		}
		if n.Contract == nil || n.Contract.ID != c.ID {
			t.Errorf("notification %s missing joined contract", n.ID)
		}
	}
	if !seenRead {
		t.Error("feed should include read notifications")
	}
	if feed.UnreadCount != 9 {
		t.Errorf("UnreadCount = %d, want capped 9", feed.UnreadCount)
	}
}

func TestMarkNotificationsReadScopedAndIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := mustCreateUser(t, db, "A", "a@example.com")
	b := mustCreateUser(t, db, "B", "b@example.com")
	c := mustCreateContract(t, db, "T", "C", models.StatusDraft, models.TypeSales)

	if err := db.InsertNotifications(ctx, []models.Notification{
		{ID: "a1", UserID: a.ID, ContractID: c.ID, Status: models.StatusDraft, Message: "m"},
		{ID: "a2", UserID: a.ID, ContractID: c.ID, Status: models.StatusDraft, Message: "m"},
		{ID: "b1", UserID: b.ID, ContractID: c.ID, Status: models.StatusDraft, Message: "m"},
	}); err != nil {
		t.Fatalf("InsertNotifications() error = %v", err)
	}

	changed, err := db.MarkNotificationsRead(ctx, a.ID, []string{"a1", "b1", "missing"})
	if err != nil {
		t.Fatalf("MarkNotificationsRead() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
	changed, err = db.MarkNotificationsRead(ctx, a.ID, []string{"a1"})
	if err != nil || changed != 0 {
		t.Errorf("repeat MarkNotificationsRead() = %d, %v; want 0, nil", changed, err)
	}
	if changed, err := db.MarkNotificationsRead(ctx, a.ID, nil); err != nil || changed != 0 {
		t.Errorf("empty MarkNotificationsRead() = %d, %v", changed, err)
	}

	unreadA, err := db.UnreadNotifications(ctx, a.ID, 9)
	if err != nil {
		t.Fatalf("UnreadNotifications() error = %v", err)
	}
	if len(unreadA.Notifications) != 1 || unreadA.Notifications[0].ID != "a2" || unreadA.UnreadCount != 1 {
		t.Errorf("unread for A = %+v", unreadA)
	}
	unreadB, _ := db.UnreadNotifications(ctx, b.ID, 9)
	if len(unreadB.Notifications) != 1 {
		t.Errorf("B's notification should stay unread, got %+v", unreadB)
	}
}

func TestInsertNotificationsAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "A", "a@example.com")

	batch := []models.Notification{
		{ID: "dup", UserID: u.ID, ContractID: "c", Status: models.StatusDraft, Message: "m"},
		{ID: "dup", UserID: u.ID, ContractID: "c", Status: models.StatusDraft, Message: "m"},
	}
	if err := db.InsertNotifications(ctx, batch); err == nil {
		t.Fatal("expected duplicate primary key to fail the batch")
	}
	if n, _ := db.CountNotifications(ctx, u.ID); n != 0 {
		t.Errorf("partial batch persisted: %d rows", n)
	}
	if err := db.InsertNotifications(ctx, nil); err != nil {
		t.Errorf("empty batch error = %v", err)
	}
}

func TestDeletedContractKeepsNotifications(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "A", "a@example.com")
	c := mustCreateContract(t, db, "T", "C", models.StatusDraft, models.TypeSales)

	if err := db.InsertNotifications(ctx, []models.Notification{
		{UserID: u.ID, ContractID: c.ID, Status: models.StatusDraft, Message: "m"},
	}); err != nil {
		t.Fatalf("InsertNotifications() error = %v", err)
	}
	if err := db.DeleteContract(ctx, c.ID); err != nil {
		t.Fatalf("DeleteContract() error = %v", err)
	}

	feed, err := db.NotificationFeed(ctx, u.ID, time.Now().AddDate(0, 0, -30), 50, 9)
	if err != nil {
		t.Fatalf("NotificationFeed() error = %v", err)
	}
	if len(feed.Notifications) != 1 {
		t.Fatalf("len = %d, want 1", len(feed.Notifications))
	}
	if feed.Notifications[0].Contract != nil {
		t.Errorf("Contract = %+v, want nil", feed.Notifications[0].Contract)
	}
}
