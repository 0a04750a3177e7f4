package prompts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jordanhubbard/promptvault/internal/database"
	"github.com/jordanhubbard/promptvault/internal/events"
	"github.com/jordanhubbard/promptvault/internal/metrics"
	"github.com/jordanhubbard/promptvault/pkg/cache"
	"github.com/jordanhubbard/promptvault/pkg/models"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bus := events.NewBus()
	t.Cleanup(bus.Close)

	c := cache.New(cache.DefaultConfig())
	return NewService(db, bus, c, metrics.NewMetrics()), bus
}

func createServicePrompt(t *testing.T, svc *Service) *models.PromptDetail {
	t.Helper()

	detail, err := svc.Create(context.Background(), &models.CreatePromptRequest{
		Title:       "Test Prompt",
		Description: "A prompt for testing",
		Category:    models.CategoryTaskExecution,
		Content:     "You are a helpful assistant.",
	})
	if err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}
	return detail
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), &models.CreatePromptRequest{
		Title:    "",
		Category: models.CategoryOrchestrator,
		Content:  "content",
	})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "title" {
		t.Errorf("expected title field error, got %q", verr.Field)
	}
}

func TestServiceCreatePublishesEvent(t *testing.T) {
	svc, bus := newTestService(t)

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub.ID)

	detail := createServicePrompt(t, svc)

	select {
	case ev := <-sub.Channel:
		if ev.Type != events.EventTypePromptCreated {
			t.Errorf("expected prompt.created, got %s", ev.Type)
		}
		if ev.PromptID != detail.ID {
			t.Errorf("expected prompt ID %s, got %s", detail.ID, ev.PromptID)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestServiceGetUsesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail := createServicePrompt(t, svc)

	first, err := svc.Get(ctx, detail.ID)
	if err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	second, err := svc.Get(ctx, detail.ID)
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if first.ID != second.ID || first.LockVersion != second.LockVersion {
		t.Error("cached get returned different prompt")
	}
}

func TestServiceUpdateInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail := createServicePrompt(t, svc)

	// Prime the cache.
	if _, err := svc.Get(ctx, detail.ID); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	title := "Renamed Prompt"
	updated, err := svc.Update(ctx, detail.ID, &models.UpdatePromptRequest{
		Title:       &title,
		LockVersion: detail.LockVersion,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.LockVersion != detail.LockVersion+1 {
		t.Errorf("expected lock_version %d, got %d", detail.LockVersion+1, updated.LockVersion)
	}

	after, err := svc.Get(ctx, detail.ID)
	if err != nil {
		t.Fatalf("get after update failed: %v", err)
	}
	if after.Title != "Renamed Prompt" {
		t.Errorf("stale cache served: title %q", after.Title)
	}
}

func TestServiceUpdateStaleLock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail := createServicePrompt(t, svc)

	content := "updated content"
	if _, err := svc.Update(ctx, detail.ID, &models.UpdatePromptRequest{
		Content:     &content,
		LockVersion: detail.LockVersion,
	}); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	other := "conflicting content"
	_, err := svc.Update(ctx, detail.ID, &models.UpdatePromptRequest{
		Content:     &other,
		LockVersion: detail.LockVersion,
	})
	if !errors.Is(err, database.ErrLockConflict) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestServiceDelete(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	detail := createServicePrompt(t, svc)

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub.ID)

	if err := svc.Delete(ctx, detail.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := svc.Get(ctx, detail.ID); !errors.Is(err, database.ErrPromptNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	select {
	case ev := <-sub.Channel:
		if ev.Type != events.EventTypePromptDeleted {
			t.Errorf("expected prompt.deleted, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestServiceRestoreVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail := createServicePrompt(t, svc)
	originalContent := detail.CurrentVersion.Content

	content := "revised content"
	updated, err := svc.Update(ctx, detail.ID, &models.UpdatePromptRequest{
		Content:     &content,
		LockVersion: detail.LockVersion,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.CurrentVersion.VersionNumber != 2 {
		t.Fatalf("expected version 2, got %d", updated.CurrentVersion.VersionNumber)
	}

	restored, err := svc.RestoreVersion(ctx, detail.ID, 1)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.VersionNumber != 3 {
		t.Errorf("expected restore to create version 3, got %d", restored.VersionNumber)
	}
	if restored.Content != originalContent {
		t.Errorf("restored content mismatch: %q", restored.Content)
	}

	versions, err := svc.ListVersions(ctx, detail.ID)
	if err != nil {
		t.Fatalf("list versions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Errorf("expected 3 versions, got %d", len(versions))
	}
}

func TestServiceListInvalidationAfterCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	createServicePrompt(t, svc)

	list, err := svc.List(ctx, &models.ListPromptsRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("expected 1 prompt, got %d", list.Total)
	}

	createServicePrompt(t, svc)

	list, err = svc.List(ctx, &models.ListPromptsRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.Total != 2 {
		t.Errorf("stale list cache: expected 2 prompts, got %d", list.Total)
	}
}
