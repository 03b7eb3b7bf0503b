//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/gamaccess/gamaccess/internal/model"
	"github.com/gamaccess/gamaccess/internal/testutil"
)

func TestIntegrationGrantEventRepository_BulkInsert(t *testing.T) {
	ctx, repo := newGrantEventTestEnv(t)

	events := []*model.GrantEvent{
		testutil.NewTestGrantEvent(t, "alice@example.com", "12345"),
		testutil.NewTestGrantEvent(t, "alice@example.com", "67890"),
		testutil.NewTestGrantEvent(t, "bob@example.com", "12345"),
	}

	if err := repo.BulkInsertGrantEvents(ctx, events); err != nil {
		t.Fatalf("BulkInsertGrantEvents failed: %v", err)
	}

	listed, err := repo.ListGrantEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListGrantEvents failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 events, got %d", len(listed))
	}
}

func TestIntegrationGrantEventRepository_BulkInsertEmpty(t *testing.T) {
	ctx, repo := newGrantEventTestEnv(t)

	if err := repo.BulkInsertGrantEvents(ctx, nil); err != nil {
		t.Fatalf("BulkInsertGrantEvents with empty batch failed: %v", err)
	}
}

func TestIntegrationGrantEventRepository_DuplicateIDsAreSkipped(t *testing.T) {
	ctx, repo := newGrantEventTestEnv(t)

	event := testutil.NewTestGrantEvent(t, "alice@example.com", "12345")

	// Same batch re-delivered, e.g. after a worker crash before ack.
	if err := repo.BulkInsertGrantEvents(ctx, []*model.GrantEvent{event}); err != nil {
		t.Fatalf("BulkInsertGrantEvents (first) failed: %v", err)
	}
	if err := repo.BulkInsertGrantEvents(ctx, []*model.GrantEvent{event}); err != nil {
		t.Fatalf("BulkInsertGrantEvents (redelivery) failed: %v", err)
	}

	listed, err := repo.ListGrantEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListGrantEvents failed: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("expected 1 event after redelivery, got %d", len(listed))
	}
}

func TestIntegrationGrantEventRepository_ListOrderedNewestFirst(t *testing.T) {
	ctx, repo := newGrantEventTestEnv(t)

	base := time.Now().UTC().Truncate(time.Second)
	var events []*model.GrantEvent
	for i := 0; i < 3; i++ {
		e := testutil.NewTestGrantEvent(t, "alice@example.com", "12345")
		e.OccurredAt = base.Add(time.Duration(i) * time.Minute)
		events = append(events, e)
	}

	if err := repo.BulkInsertGrantEvents(ctx, events); err != nil {
		t.Fatalf("BulkInsertGrantEvents failed: %v", err)
	}

	listed, err := repo.ListGrantEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListGrantEvents failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 events, got %d", len(listed))
	}
	for i := 1; i < len(listed); i++ {
		if listed[i].OccurredAt.After(listed[i-1].OccurredAt) {
			t.Errorf("events not ordered newest first at index %d", i)
		}
	}
}

func TestIntegrationGrantEventRepository_ListHonorsLimit(t *testing.T) {
	ctx, repo := newGrantEventTestEnv(t)

	var events []*model.GrantEvent
	for i := 0; i < 5; i++ {
		events = append(events, testutil.NewTestGrantEvent(t, "alice@example.com", "12345"))
		time.Sleep(1 * time.Millisecond)
	}
	if err := repo.BulkInsertGrantEvents(ctx, events); err != nil {
		t.Fatalf("BulkInsertGrantEvents failed: %v", err)
	}

	listed, err := repo.ListGrantEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListGrantEvents failed: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("expected 2 events with limit 2, got %d", len(listed))
	}

	// Out-of-range limits fall back to the default.
	listed, err = repo.ListGrantEvents(ctx, -1)
	if err != nil {
		t.Fatalf("ListGrantEvents with negative limit failed: %v", err)
	}
	if len(listed) != 5 {
		t.Errorf("expected 5 events with default limit, got %d", len(listed))
	}
}

func TestIntegrationGrantEventRepository_PersistsOptionalFields(t *testing.T) {
	ctx, repo := newGrantEventTestEnv(t)

	failure := testutil.NewTestGrantEvent(t, "carol@example.com", "12345")
	failure.Status = model.GrantError
	failure.UserID = nil
	failure.RoleID = nil
	failure.Error = "SOAP fault: PermissionError.PERMISSION_DENIED"

	if err := repo.BulkInsertGrantEvents(ctx, []*model.GrantEvent{failure}); err != nil {
		t.Fatalf("BulkInsertGrantEvents failed: %v", err)
	}

	listed, err := repo.ListGrantEvents(ctx, 1)
	if err != nil {
		t.Fatalf("ListGrantEvents failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 event, got %d", len(listed))
	}

	got := listed[0]
	if got.Status != model.GrantError {
		t.Errorf("Status = %q, want %q", got.Status, model.GrantError)
	}
	if got.UserID != nil || got.RoleID != nil {
		t.Error("UserID and RoleID should be nil for a failed grant")
	}
	if got.Error != failure.Error {
		t.Errorf("Error = %q, want %q", got.Error, failure.Error)
	}
	if got.RequestedBy != failure.RequestedBy {
		t.Errorf("RequestedBy = %q, want %q", got.RequestedBy, failure.RequestedBy)
	}
}

func newGrantEventTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetGrantEventsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset grant_events schema: %v", err)
	}

	return ctx, repo
}
