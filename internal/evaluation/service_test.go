package evaluation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jordanhubbard/promptvault/internal/database"
	"github.com/jordanhubbard/promptvault/internal/events"
	"github.com/jordanhubbard/promptvault/internal/metrics"
	"github.com/jordanhubbard/promptvault/pkg/cache"
	"github.com/jordanhubbard/promptvault/pkg/models"
)

func newTestEvalService(t *testing.T, provider Provider) (*Service, *database.Database) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bus := events.NewBus()
	t.Cleanup(bus.Close)

	svc := NewService(db, NewEvaluator(provider, 3), bus, cache.New(cache.DefaultConfig()), metrics.NewMetrics())
	return svc, db
}

func createEvalTestPrompt(t *testing.T, db *database.Database) *models.PromptDetail {
	t.Helper()

	detail, err := db.CreatePrompt(&models.CreatePromptRequest{
		Title:    "SQL Generator",
		Category: models.CategoryTaskExecution,
		Content:  "You are a SQL expert. Return only the query in a code block. Do not explain.",
	})
	if err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}
	return detail
}

func TestTriggerCompletesEvaluation(t *testing.T) {
	svc, db := newTestEvalService(t, NewHeuristicProvider())
	ctx := context.Background()

	detail := createEvalTestPrompt(t, db)

	evaluation, err := svc.Trigger(ctx, detail.ID)
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	if evaluation.Status != models.EvaluationCompleted {
		t.Fatalf("expected completed, got %s", evaluation.Status)
	}
	if evaluation.OverallScore == nil {
		t.Fatal("completed evaluation missing overall score")
	}
	if *evaluation.OverallScore < 0 || *evaluation.OverallScore > 100 {
		t.Errorf("overall score %v out of range", *evaluation.OverallScore)
	}
	if len(evaluation.Criteria) != len(Criteria) {
		t.Errorf("expected %d criteria, got %d", len(Criteria), len(evaluation.Criteria))
	}
	if evaluation.PromptVersionID != detail.CurrentVersion.ID {
		t.Errorf("evaluation bound to wrong version")
	}
	if evaluation.CompletedAt == nil {
		t.Error("completed evaluation missing completed_at")
	}
}

func TestTriggerFailsWhenAllCriteriaFail(t *testing.T) {
	failures := make(map[string]error, len(Criteria))
	for _, c := range Criteria {
		failures[c.Name] = errors.New("provider unreachable")
	}
	svc, db := newTestEvalService(t, &errorProvider{failures: failures})
	ctx := context.Background()

	detail := createEvalTestPrompt(t, db)

	evaluation, err := svc.Trigger(ctx, detail.ID)
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	if evaluation.Status != models.EvaluationFailed {
		t.Fatalf("expected failed, got %s", evaluation.Status)
	}
	if evaluation.OverallScore != nil {
		t.Error("failed evaluation must not carry a score")
	}
	if evaluation.ErrorMessage == nil || *evaluation.ErrorMessage == "" {
		t.Error("failed evaluation missing error message")
	}
}

func TestTriggerUnknownPrompt(t *testing.T) {
	svc, _ := newTestEvalService(t, NewHeuristicProvider())

	_, err := svc.Trigger(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, database.ErrPromptNotFound) {
		t.Fatalf("expected prompt not found, got %v", err)
	}
}

func TestTriggerUpdatesPromptSummary(t *testing.T) {
	svc, db := newTestEvalService(t, NewHeuristicProvider())
	ctx := context.Background()

	detail := createEvalTestPrompt(t, db)

	if _, err := svc.Trigger(ctx, detail.ID); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	after, err := db.GetPrompt(detail.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if after.LatestEvaluation == nil {
		t.Fatal("prompt detail missing latest evaluation summary")
	}
	if after.LatestEvaluation.Status != models.EvaluationCompleted {
		t.Errorf("expected completed summary, got %s", after.LatestEvaluation.Status)
	}
}

func TestDashboardReflectsNewEvaluations(t *testing.T) {
	svc, db := newTestEvalService(t, NewHeuristicProvider())
	ctx := context.Background()

	detail := createEvalTestPrompt(t, db)

	empty, err := svc.Dashboard(ctx, "")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if empty.TotalEvaluations != 0 {
		t.Fatalf("expected 0 evaluations, got %d", empty.TotalEvaluations)
	}

	if _, err := svc.Trigger(ctx, detail.ID); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	after, err := svc.Dashboard(ctx, "")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if after.TotalEvaluations != 1 {
		t.Errorf("stale dashboard cache: expected 1 evaluation, got %d", after.TotalEvaluations)
	}
	if len(after.Categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(after.Categories))
	}
	if after.Categories[0].Category != models.CategoryTaskExecution {
		t.Errorf("unexpected category %s", after.Categories[0].Category)
	}
	if len(after.Categories[0].CriteriaBreakdown) != len(Criteria) {
		t.Errorf("expected %d breakdown rows, got %d", len(Criteria), len(after.Categories[0].CriteriaBreakdown))
	}
}
