// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package database

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/contracthub/internal/models"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	mustCreateUser(t, db, "Ada", "ada@example.com")

	err := db.CreateUser(context.Background(), &models.User{Name: "Other", Email: "ada@example.com", PasswordHash: "h"})
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("CreateUser() error = %v, want ErrUniqueViolation", err)
	}
	var uv *UniqueViolationError
	if !errors.As(err, &uv) || uv.Field != "email" {
		t.Errorf("UniqueViolationError field = %+v, want email", uv)
	}
}

func TestUserUpdateAndStatuses(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "Ada", "ada@example.com", models.StatusDraft)

	got, err := db.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != u.ID || !reflect.DeepEqual(got.Statuses, models.StatusSet{models.StatusDraft}) {
		t.Errorf("GetUserByEmail() = %+v", got)
	}

	u.Name = "Ada Lovelace"
	if err := db.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	updated, err := db.UpdateUserStatuses(ctx, u.ID, models.StatusSet{models.StatusFinalized, models.StatusInReview, models.StatusFinalized})
	if err != nil {
		t.Fatalf("UpdateUserStatuses() error = %v", err)
	}
	if updated.Name != "Ada Lovelace" {
		t.Errorf("Name = %q", updated.Name)
	}
	if !reflect.DeepEqual(updated.Statuses, models.StatusSet{models.StatusInReview, models.StatusFinalized}) {
		t.Errorf("Statuses = %v", updated.Statuses)
	}

	if _, err := db.UpdateUserStatuses(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUserStatuses(missing) error = %v", err)
	}
	if err := db.UpdateUser(ctx, &models.User{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUser(missing) error = %v", err)
	}
}

func TestSubscriberIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := mustCreateUser(t, db, "A", "a@example.com", models.StatusFinalized, models.StatusDraft)
	b := mustCreateUser(t, db, "B", "b@example.com", models.StatusFinalized)
	mustCreateUser(t, db, "C", "c@example.com", models.StatusInReview)
	mustCreateUser(t, db, "D", "d@example.com")

	ids, err := db.SubscriberIDs(ctx, models.StatusFinalized)
	if err != nil {
		t.Fatalf("SubscriberIDs() error = %v", err)
	}
	want := map[string]bool{a.ID: true, b.ID: true}
	if len(ids) != 2 || !want[ids[0]] || !want[ids[1]] {
		t.Errorf("SubscriberIDs(FINALIZED) = %v, want %v", ids, want)
	}

	ids, err = db.SubscriberIDs(ctx, models.StatusCanceled)
	if err != nil {
		t.Fatalf("SubscriberIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("SubscriberIDs(CANCELED) = %v, want none", ids)
	}
}

func TestListUsersPaging(t *testing.T) {
	db := setupTestDB(t)
	for _, e := range []string{"a", "b", "c"} {
		mustCreateUser(t, db, e, e+"@example.com")
	}
	page, err := db.ListUsers(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(page.Users) != 1 || page.TotalPages != 2 || page.Users[0].Name != "c" {
		t.Errorf("ListUsers(1, 2) = %+v", page)
	}
	all, err := db.ListAllUsers(context.Background())
	if err != nil || len(all) != 3 {
		t.Errorf("ListAllUsers() = %d, %v", len(all), err)
	}
}

func TestDeleteUserRemovesNotifications(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "A", "a@example.com", models.StatusDraft)
	other := mustCreateUser(t, db, "B", "b@example.com", models.StatusDraft)
	c := mustCreateContract(t, db, "T", "C", models.StatusDraft, models.TypeSales)

	batch := []models.Notification{
		{UserID: u.ID, ContractID: c.ID, Status: models.StatusDraft, Message: "m"},
		{UserID: other.ID, ContractID: c.ID, Status: models.StatusDraft, Message: "m"},
	}
	if err := db.InsertNotifications(ctx, batch); err != nil {
		t.Fatalf("InsertNotifications() error = %v", err)
	}

	if err := db.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := db.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser() after delete error = %v", err)
	}
	if n, _ := db.CountNotifications(ctx, u.ID); n != 0 {
		t.Errorf("deleted user still owns %d notifications", n)
	}
	if n, _ := db.CountNotifications(ctx, other.ID); n != 1 {
		t.Errorf("other user owns %d notifications, want 1", n)
	}
	if err := db.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteUser() error = %v, want ErrNotFound", err)
	}
}
