package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestPrompt(t *testing.T, db *Database, title string, category models.PromptCategory) *models.PromptDetail {
	t.Helper()
	detail, err := db.CreatePrompt(&models.CreatePromptRequest{
		Title:       title,
		Description: "a test prompt",
		Content:     "You are a helpful assistant.",
		Category:    category,
	})
	if err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}
	return detail
}

func strPtr(s string) *string { return &s }

func TestCreatePrompt(t *testing.T) {
	db := newTestDB(t)

	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	if detail.LockVersion != 1 {
		t.Errorf("expected lock_version 1, got %d", detail.LockVersion)
	}
	if detail.VersionCount != 1 {
		t.Errorf("expected version_count 1, got %d", detail.VersionCount)
	}
	if detail.CurrentVersion == nil {
		t.Fatal("expected a current version")
	}
	if detail.CurrentVersion.VersionNumber != 1 {
		t.Errorf("expected version_number 1, got %d", detail.CurrentVersion.VersionNumber)
	}
	if detail.CurrentVersion.ChangeSummary != "Initial version" {
		t.Errorf("expected change_summary %q, got %q", "Initial version", detail.CurrentVersion.ChangeSummary)
	}
	if !detail.IsActive {
		t.Error("expected prompt to be active")
	}
}

func TestUpdatePromptSequentialVersionNumbers(t *testing.T) {
	db := newTestDB(t)
	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	lockVersion := detail.LockVersion
	for i := 2; i <= 5; i++ {
		updated, err := db.UpdatePrompt(detail.ID, &models.UpdatePromptRequest{
			Content:       strPtr(fmt.Sprintf("content revision %d", i)),
			ChangeSummary: "revision",
			LockVersion:   lockVersion,
		})
		if err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
		if updated.CurrentVersion.VersionNumber != i {
			t.Errorf("expected version_number %d, got %d", i, updated.CurrentVersion.VersionNumber)
		}
		if updated.LockVersion != lockVersion+1 {
			t.Errorf("expected lock_version %d, got %d", lockVersion+1, updated.LockVersion)
		}
		lockVersion = updated.LockVersion
	}

	versions, err := db.ListVersions(detail.ID)
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(versions) != 5 {
		t.Fatalf("expected 5 versions, got %d", len(versions))
	}
	// Newest first, strictly decreasing by 1 with no gaps.
	for i, v := range versions {
		want := 5 - i
		if v.VersionNumber != want {
			t.Errorf("versions[%d]: expected version_number %d, got %d", i, want, v.VersionNumber)
		}
	}
}

func TestUpdatePromptStaleLockVersion(t *testing.T) {
	db := newTestDB(t)
	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	// First writer wins.
	if _, err := db.UpdatePrompt(detail.ID, &models.UpdatePromptRequest{
		Title:       strPtr("Renamed"),
		LockVersion: detail.LockVersion,
	}); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Second writer carries the stale lock_version and must be rejected.
	_, err := db.UpdatePrompt(detail.ID, &models.UpdatePromptRequest{
		Title:       strPtr("Clobbered"),
		LockVersion: detail.LockVersion,
	})
	if !errors.Is(err, ErrLockConflict) {
		t.Fatalf("expected ErrLockConflict, got %v", err)
	}

	// The rejected attempt must not have changed stored state.
	current, err := db.GetPrompt(detail.ID)
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}
	if current.Title != "Renamed" {
		t.Errorf("expected title %q, got %q", "Renamed", current.Title)
	}
	if current.LockVersion != detail.LockVersion+1 {
		t.Errorf("expected lock_version %d, got %d", detail.LockVersion+1, current.LockVersion)
	}
}

func TestUpdatePromptUnchangedContentCreatesNoVersion(t *testing.T) {
	db := newTestDB(t)
	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	updated, err := db.UpdatePrompt(detail.ID, &models.UpdatePromptRequest{
		Content:     strPtr(detail.CurrentVersion.Content),
		LockVersion: detail.LockVersion,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.VersionCount != 1 {
		t.Errorf("expected version_count 1, got %d", updated.VersionCount)
	}
	// Metadata-only updates still increment the lock counter.
	if updated.LockVersion != detail.LockVersion+1 {
		t.Errorf("expected lock_version %d, got %d", detail.LockVersion+1, updated.LockVersion)
	}
}

func TestRestoreVersion(t *testing.T) {
	db := newTestDB(t)
	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)
	originalContent := detail.CurrentVersion.Content

	updated, err := db.UpdatePrompt(detail.ID, &models.UpdatePromptRequest{
		Content:       strPtr("totally different content"),
		ChangeSummary: "rewrite",
		LockVersion:   detail.LockVersion,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	restored, err := db.RestoreVersion(detail.ID, 1)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.VersionNumber != 3 {
		t.Errorf("expected restored version_number 3, got %d", restored.VersionNumber)
	}
	if restored.Content != originalContent {
		t.Errorf("restored content does not match version 1: got %q", restored.Content)
	}
	if restored.ChangeSummary != "Restored from version 1" {
		t.Errorf("unexpected change_summary %q", restored.ChangeSummary)
	}

	// Version 1 is untouched.
	v1, err := db.GetVersion(detail.ID, 1)
	if err != nil {
		t.Fatalf("failed to get version 1: %v", err)
	}
	if v1.Content != originalContent {
		t.Error("version 1 content was modified by restore")
	}

	// Restore goes through the same gate: lock_version advanced again.
	after, err := db.GetPrompt(detail.ID)
	if err != nil {
		t.Fatalf("failed to get prompt: %v", err)
	}
	if after.LockVersion != updated.LockVersion+1 {
		t.Errorf("expected lock_version %d, got %d", updated.LockVersion+1, after.LockVersion)
	}
	if after.CurrentVersion.VersionNumber != 3 {
		t.Errorf("expected current version 3, got %d", after.CurrentVersion.VersionNumber)
	}
}

func TestRestoreMissingVersion(t *testing.T) {
	db := newTestDB(t)
	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	if _, err := db.RestoreVersion(detail.ID, 42); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestSoftDeletePrompt(t *testing.T) {
	db := newTestDB(t)
	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	if err := db.SoftDeletePrompt(detail.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := db.GetPrompt(detail.ID); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound after delete, got %v", err)
	}

	// Deleting again reports not found.
	if err := db.SoftDeletePrompt(detail.ID); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound on second delete, got %v", err)
	}
}

func TestListPromptsPagination(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 25; i++ {
		createTestPrompt(t, db, fmt.Sprintf("Prompt %02d", i), models.CategoryTaskExecution)
	}

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantItems int
		wantTotal int
	}{
		{name: "first page", page: 1, pageSize: 20, wantItems: 20, wantTotal: 25},
		{name: "last partial page", page: 2, pageSize: 20, wantItems: 5, wantTotal: 25},
		{name: "beyond last page", page: 3, pageSize: 20, wantItems: 0, wantTotal: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := db.ListPrompts(&models.ListPromptsRequest{Page: tt.page, PageSize: tt.pageSize})
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(list.Items) != tt.wantItems {
				t.Errorf("expected %d items, got %d", tt.wantItems, len(list.Items))
			}
			if list.Total != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, list.Total)
			}
		})
	}
}

func TestListPromptsFilters(t *testing.T) {
	db := newTestDB(t)

	createTestPrompt(t, db, "Research Coordinator", models.CategoryOrchestrator)
	createTestPrompt(t, db, "SQL Generator", models.CategoryTaskExecution)
	deleted := createTestPrompt(t, db, "Old Research Helper", models.CategoryTaskExecution)
	if err := db.SoftDeletePrompt(deleted.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	byCategory, err := db.ListPrompts(&models.ListPromptsRequest{Category: models.CategoryOrchestrator})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if byCategory.Total != 1 || len(byCategory.Items) != 1 {
		t.Fatalf("expected 1 orchestrator prompt, got total=%d items=%d", byCategory.Total, len(byCategory.Items))
	}
	if byCategory.Items[0].Title != "Research Coordinator" {
		t.Errorf("unexpected item %q", byCategory.Items[0].Title)
	}

	// Search is case-insensitive and excludes soft-deleted prompts.
	bySearch, err := db.ListPrompts(&models.ListPromptsRequest{Search: "research"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if bySearch.Total != 1 {
		t.Fatalf("expected 1 search hit, got %d", bySearch.Total)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	db := newTestDB(t)
	detail := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	if _, err := db.GetVersion(detail.ID, 99); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
	if _, err := db.GetVersion("no-such-prompt", 1); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	db := newTestDB(t)

	if err := db.Seed(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	list, err := db.ListPrompts(&models.ListPromptsRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.Total != len(seedPrompts) {
		t.Fatalf("expected %d seeded prompts, got %d", len(seedPrompts), list.Total)
	}

	// Seeding twice is a no-op.
	if err := db.Seed(); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	list, err = db.ListPrompts(&models.ListPromptsRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.Total != len(seedPrompts) {
		t.Fatalf("expected seed to be idempotent, got %d prompts", list.Total)
	}
}
