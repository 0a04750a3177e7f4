package database

import (
	"errors"
	"testing"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

func completeTestEvaluation(t *testing.T, db *Database, versionID string, scores map[string]int) *models.Evaluation {
	t.Helper()
	eval, err := db.CreateEvaluation(versionID)
	if err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	criteria := []*models.EvaluationCriterion{}
	total := 0
	for name, score := range scores {
		c := &models.EvaluationCriterion{
			CriterionName: name,
			Score:         score,
			Feedback:      "feedback for " + name,
		}
		if score < improvementThreshold {
			c.ImprovementSuggestion = "improve " + name
		}
		criteria = append(criteria, c)
		total += score
	}
	overall := float64(total) / float64(len(scores))

	if err := db.CompleteEvaluation(eval.ID, overall, criteria); err != nil {
		t.Fatalf("failed to complete evaluation: %v", err)
	}

	eval, err = db.GetEvaluation(eval.ID)
	if err != nil {
		t.Fatalf("failed to get evaluation: %v", err)
	}
	return eval
}

func TestEvaluationLifecycle(t *testing.T) {
	db := newTestDB(t)
	prompt := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	eval, err := db.CreateEvaluation(prompt.CurrentVersion.ID)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if eval.Status != models.EvaluationPending {
		t.Errorf("expected pending status, got %s", eval.Status)
	}
	if eval.OverallScore != nil {
		t.Error("pending evaluation must not have an overall score")
	}

	criteria := []*models.EvaluationCriterion{
		{CriterionName: "clarity", Score: 85, Feedback: "clear"},
		{CriterionName: "structure", Score: 70, Feedback: "meandering", ImprovementSuggestion: "add headings"},
	}
	if err := db.CompleteEvaluation(eval.ID, 77.5, criteria); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	got, err := db.GetEvaluation(eval.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != models.EvaluationCompleted {
		t.Errorf("expected completed status, got %s", got.Status)
	}
	if got.OverallScore == nil || *got.OverallScore != 77.5 {
		t.Errorf("expected overall_score 77.5, got %v", got.OverallScore)
	}
	if len(got.Criteria) != 2 {
		t.Fatalf("expected 2 criteria, got %d", len(got.Criteria))
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if got.ErrorMessage != nil {
		t.Errorf("completed evaluation must not carry an error, got %q", *got.ErrorMessage)
	}
}

func TestFailEvaluation(t *testing.T) {
	db := newTestDB(t)
	prompt := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	eval, err := db.CreateEvaluation(prompt.CurrentVersion.ID)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db.FailEvaluation(eval.ID, "provider unavailable"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	got, err := db.GetEvaluation(eval.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != models.EvaluationFailed {
		t.Errorf("expected failed status, got %s", got.Status)
	}
	if got.OverallScore != nil {
		t.Error("failed evaluation must not have an overall score")
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "provider unavailable" {
		t.Errorf("unexpected error message %v", got.ErrorMessage)
	}
}

func TestGetEvaluationNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetEvaluation("no-such-id"); !errors.Is(err, ErrEvaluationNotFound) {
		t.Fatalf("expected ErrEvaluationNotFound, got %v", err)
	}
}

func TestLatestEvaluationInPromptDetail(t *testing.T) {
	db := newTestDB(t)
	prompt := createTestPrompt(t, db, "Router", models.CategoryOrchestrator)

	detail, err := db.GetPrompt(prompt.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.LatestEvaluation != nil {
		t.Fatal("expected no evaluation summary before evaluating")
	}

	eval := completeTestEvaluation(t, db, prompt.CurrentVersion.ID, map[string]int{"clarity": 90})

	detail, err = db.GetPrompt(prompt.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.LatestEvaluation == nil {
		t.Fatal("expected an evaluation summary")
	}
	if detail.LatestEvaluation.ID != eval.ID {
		t.Errorf("expected evaluation %s, got %s", eval.ID, detail.LatestEvaluation.ID)
	}
}

func TestDashboard(t *testing.T) {
	db := newTestDB(t)

	orch := createTestPrompt(t, db, "Coordinator", models.CategoryOrchestrator)
	task := createTestPrompt(t, db, "SQL Generator", models.CategoryTaskExecution)

	completeTestEvaluation(t, db, orch.CurrentVersion.ID, map[string]int{"clarity": 90, "structure": 60})
	completeTestEvaluation(t, db, orch.CurrentVersion.ID, map[string]int{"clarity": 80, "structure": 70})
	completeTestEvaluation(t, db, task.CurrentVersion.ID, map[string]int{"clarity": 95, "structure": 85})

	dash, err := db.Dashboard("")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if dash.TotalEvaluations != 3 {
		t.Errorf("expected 3 total evaluations, got %d", dash.TotalEvaluations)
	}
	if len(dash.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(dash.Categories))
	}

	var orchDash *models.CategoryDashboard
	for _, cd := range dash.Categories {
		if cd.Category == models.CategoryOrchestrator {
			orchDash = cd
		}
	}
	if orchDash == nil {
		t.Fatal("missing orchestrator category")
	}
	if orchDash.EvaluationCount != 2 {
		t.Errorf("expected 2 orchestrator evaluations, got %d", orchDash.EvaluationCount)
	}
	if len(orchDash.CriteriaBreakdown) != 2 {
		t.Errorf("expected 2 criteria in breakdown, got %d", len(orchDash.CriteriaBreakdown))
	}
	// structure scored 60 and 70, both below the improvement threshold.
	found := false
	for _, imp := range orchDash.CommonImprovements {
		if imp.CriterionName == "structure" && imp.OccurrenceCount == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected structure listed twice in common improvements, got %+v", orchDash.CommonImprovements)
	}

	// Category filter narrows the result.
	filtered, err := db.Dashboard(models.CategoryTaskExecution)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if len(filtered.Categories) != 1 || filtered.Categories[0].Category != models.CategoryTaskExecution {
		t.Fatalf("expected only task_execution in filtered dashboard, got %+v", filtered.Categories)
	}
}
