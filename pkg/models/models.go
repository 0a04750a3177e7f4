package models

import "time"

// PromptCategory classifies what role a prompt plays in an agent pipeline
type PromptCategory string

const (
	CategoryOrchestrator  PromptCategory = "orchestrator"
	CategoryTaskExecution PromptCategory = "task_execution"
)

// Valid reports whether c is a known category.
func (c PromptCategory) Valid() bool {
	return c == CategoryOrchestrator || c == CategoryTaskExecution
}

// Categories lists all known prompt categories.
func Categories() []PromptCategory {
	return []PromptCategory{CategoryOrchestrator, CategoryTaskExecution}
}

// Prompt represents a named, categorized, versioned unit of text content.
// LockVersion and VersionCount are owned by the store: clients only echo
// back the last value they observed.
type Prompt struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     PromptCategory `json:"category"`
	IsActive     bool           `json:"is_active"`
	LockVersion  int            `json:"lock_version"`
	VersionCount int            `json:"version_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// PromptVersion is an immutable content snapshot. Version numbers are
// 1-based and strictly increasing per prompt with no gaps.
type PromptVersion struct {
	ID            string    `json:"id"`
	PromptID      string    `json:"prompt_id"`
	VersionNumber int       `json:"version_number"`
	Content       string    `json:"content"`
	ChangeSummary string    `json:"change_summary"`
	CreatedAt     time.Time `json:"created_at"`
}

// PromptDetail is the full view of a prompt returned by create/get/update:
// the prompt itself plus its current version and, when one exists, a
// summary of the most recent evaluation of that version.
type PromptDetail struct {
	Prompt
	CurrentVersion   *PromptVersion     `json:"current_version"`
	LatestEvaluation *EvaluationSummary `json:"latest_evaluation,omitempty"`
}

// PromptList is the paginated list envelope.
type PromptList struct {
	Items    []*Prompt `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// EvaluationStatus is the lifecycle state of an evaluation.
type EvaluationStatus string

const (
	EvaluationPending   EvaluationStatus = "pending"
	EvaluationCompleted EvaluationStatus = "completed"
	EvaluationFailed    EvaluationStatus = "failed"
)

// EvaluationCriterion is a single scored criterion within an evaluation.
// ImprovementSuggestion is populated only when the score is below 80.
type EvaluationCriterion struct {
	CriterionName         string `json:"criterion_name"`
	Score                 int    `json:"score"`
	Feedback              string `json:"feedback"`
	ImprovementSuggestion string `json:"improvement_suggestion"`
}

// Evaluation is an AI-generated quality assessment of a prompt version.
// A completed evaluation carries OverallScore and a non-empty criteria
// list; a failed one carries ErrorMessage and no score.
type Evaluation struct {
	ID              string                 `json:"id"`
	PromptVersionID string                 `json:"prompt_version_id"`
	OverallScore    *float64               `json:"overall_score"`
	Status          EvaluationStatus       `json:"status"`
	ErrorMessage    *string                `json:"error_message,omitempty"`
	Criteria        []*EvaluationCriterion `json:"criteria"`
	CreatedAt       time.Time              `json:"created_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// EvaluationSummary is the trimmed evaluation view embedded in PromptDetail.
type EvaluationSummary struct {
	ID           string           `json:"id"`
	OverallScore *float64         `json:"overall_score"`
	Status       EvaluationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

// CriterionBreakdown is a per-criterion average within a dashboard category.
type CriterionBreakdown struct {
	CriterionName string  `json:"criterion_name"`
	AvgScore      float64 `json:"avg_score"`
}

// CommonImprovement counts criteria that scored below the improvement
// threshold, per category.
type CommonImprovement struct {
	CriterionName   string  `json:"criterion_name"`
	OccurrenceCount int     `json:"occurrence_count"`
	AvgScore        float64 `json:"avg_score"`
}

// CategoryDashboard aggregates completed evaluations for one category.
type CategoryDashboard struct {
	Category           PromptCategory        `json:"category"`
	AvgScore           float64               `json:"avg_score"`
	EvaluationCount    int                   `json:"evaluation_count"`
	CriteriaBreakdown  []*CriterionBreakdown `json:"criteria_breakdown"`
	CommonImprovements []*CommonImprovement  `json:"common_improvements"`
}

// Dashboard is the category-grouped evaluation summary.
type Dashboard struct {
	Categories       []*CategoryDashboard `json:"categories"`
	TotalEvaluations int                  `json:"total_evaluations"`
}
