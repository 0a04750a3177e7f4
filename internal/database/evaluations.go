package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

// improvementThreshold is the criterion score below which an improvement
// suggestion is expected and the criterion counts toward the dashboard's
// common-improvements list.
const improvementThreshold = 80

// CreateEvaluation inserts a pending evaluation for a prompt version.
func (d *Database) CreateEvaluation(promptVersionID string) (*models.Evaluation, error) {
	eval := &models.Evaluation{
		ID:              uuid.NewString(),
		PromptVersionID: promptVersionID,
		Status:          models.EvaluationPending,
		Criteria:        []*models.EvaluationCriterion{},
		CreatedAt:       time.Now().UTC(),
	}

	_, err := d.db.Exec(d.rebind(`
		INSERT INTO evaluations (id, prompt_version_id, status, created_at)
		VALUES (?, ?, ?, ?)`),
		eval.ID, eval.PromptVersionID, string(eval.Status), eval.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert evaluation: %w", err)
	}
	return eval, nil
}

// CompleteEvaluation records criterion results and marks the evaluation
// completed with the given overall score.
func (d *Database) CompleteEvaluation(id string, overallScore float64, criteria []*models.EvaluationCriterion) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range criteria {
		_, err := tx.Exec(d.rebind(`
			INSERT INTO evaluation_criteria (id, evaluation_id, criterion_name, score, feedback, improvement_suggestion)
			VALUES (?, ?, ?, ?, ?, ?)`),
			uuid.NewString(), id, c.CriterionName, c.Score, c.Feedback, c.ImprovementSuggestion,
		)
		if err != nil {
			return fmt.Errorf("failed to insert criterion: %w", err)
		}
	}

	result, err := tx.Exec(d.rebind(`
		UPDATE evaluations SET status = ?, overall_score = ?, completed_at = ? WHERE id = ?`),
		string(models.EvaluationCompleted), overallScore, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete evaluation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrEvaluationNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// FailEvaluation marks the evaluation failed with a human-readable message
// and no overall score.
func (d *Database) FailEvaluation(id string, errorMessage string) error {
	result, err := d.db.Exec(d.rebind(`
		UPDATE evaluations SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`),
		string(models.EvaluationFailed), errorMessage, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail evaluation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrEvaluationNotFound
	}
	return nil
}

// GetEvaluation returns an evaluation with its criterion results.
func (d *Database) GetEvaluation(id string) (*models.Evaluation, error) {
	eval := &models.Evaluation{Criteria: []*models.EvaluationCriterion{}}
	var status string
	var overallScore sql.NullFloat64
	var errorMessage sql.NullString
	var completedAt sql.NullTime

	err := d.db.QueryRow(d.rebind(`
		SELECT id, prompt_version_id, overall_score, status, error_message, created_at, completed_at
		FROM evaluations WHERE id = ?`), id,
	).Scan(&eval.ID, &eval.PromptVersionID, &overallScore, &status, &errorMessage, &eval.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	eval.Status = models.EvaluationStatus(status)
	if overallScore.Valid {
		eval.OverallScore = &overallScore.Float64
	}
	if errorMessage.Valid {
		eval.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		eval.CompletedAt = &completedAt.Time
	}

	rows, err := d.db.Query(d.rebind(`
		SELECT criterion_name, score, feedback, improvement_suggestion
		FROM evaluation_criteria
		WHERE evaluation_id = ?
		ORDER BY criterion_name`), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c := &models.EvaluationCriterion{}
		if err := rows.Scan(&c.CriterionName, &c.Score, &c.Feedback, &c.ImprovementSuggestion); err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		eval.Criteria = append(eval.Criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate criteria: %w", err)
	}

	return eval, nil
}

// latestEvaluationSummary returns the most recent evaluation of a prompt
// version, or nil when none exists.
func (d *Database) latestEvaluationSummary(promptVersionID string) (*models.EvaluationSummary, error) {
	summary := &models.EvaluationSummary{}
	var status string
	var overallScore sql.NullFloat64

	err := d.db.QueryRow(d.rebind(`
		SELECT id, overall_score, status, created_at
		FROM evaluations
		WHERE prompt_version_id = ?
		ORDER BY created_at DESC
		LIMIT 1`), promptVersionID,
	).Scan(&summary.ID, &overallScore, &status, &summary.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest evaluation: %w", err)
	}

	summary.Status = models.EvaluationStatus(status)
	if overallScore.Valid {
		summary.OverallScore = &overallScore.Float64
	}
	return summary, nil
}

// Dashboard aggregates completed evaluations of active prompts, grouped by
// category. An optional category narrows the result to that category.
func (d *Database) Dashboard(category models.PromptCategory) (*models.Dashboard, error) {
	dashboard := &models.Dashboard{Categories: []*models.CategoryDashboard{}}

	byCategory := map[models.PromptCategory]*models.CategoryDashboard{}

	where := `WHERE e.status = ? AND p.is_active = ?`
	args := []interface{}{string(models.EvaluationCompleted), true}
	if category != "" {
		where += ` AND p.category = ?`
		args = append(args, string(category))
	}

	rows, err := d.db.Query(d.rebind(`
		SELECT p.category, AVG(e.overall_score), COUNT(e.id)
		FROM evaluations e
		JOIN prompt_versions v ON e.prompt_version_id = v.id
		JOIN prompts p ON v.prompt_id = p.id
		`+where+`
		GROUP BY p.category
		ORDER BY p.category`), args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		cd := &models.CategoryDashboard{
			CriteriaBreakdown:  []*models.CriterionBreakdown{},
			CommonImprovements: []*models.CommonImprovement{},
		}
		var cat string
		if err := rows.Scan(&cat, &cd.AvgScore, &cd.EvaluationCount); err != nil {
			return nil, fmt.Errorf("failed to scan category aggregate: %w", err)
		}
		cd.Category = models.PromptCategory(cat)
		byCategory[cd.Category] = cd
		dashboard.Categories = append(dashboard.Categories, cd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category aggregates: %w", err)
	}

	breakdownRows, err := d.db.Query(d.rebind(`
		SELECT p.category, c.criterion_name, AVG(c.score)
		FROM evaluation_criteria c
		JOIN evaluations e ON c.evaluation_id = e.id
		JOIN prompt_versions v ON e.prompt_version_id = v.id
		JOIN prompts p ON v.prompt_id = p.id
		`+where+`
		GROUP BY p.category, c.criterion_name
		ORDER BY p.category, c.criterion_name`), args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate criteria: %w", err)
	}
	defer breakdownRows.Close()

	for breakdownRows.Next() {
		var cat, name string
		var avg float64
		if err := breakdownRows.Scan(&cat, &name, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan criteria breakdown: %w", err)
		}
		if cd, ok := byCategory[models.PromptCategory(cat)]; ok {
			cd.CriteriaBreakdown = append(cd.CriteriaBreakdown, &models.CriterionBreakdown{
				CriterionName: name,
				AvgScore:      avg,
			})
		}
	}
	if err := breakdownRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate criteria breakdown: %w", err)
	}

	improvementArgs := append([]interface{}{}, args...)
	improvementArgs = append(improvementArgs, improvementThreshold)
	improvementRows, err := d.db.Query(d.rebind(`
		SELECT p.category, c.criterion_name, COUNT(*), AVG(c.score)
		FROM evaluation_criteria c
		JOIN evaluations e ON c.evaluation_id = e.id
		JOIN prompt_versions v ON e.prompt_version_id = v.id
		JOIN prompts p ON v.prompt_id = p.id
		`+where+` AND c.score < ?
		GROUP BY p.category, c.criterion_name
		ORDER BY p.category, COUNT(*) DESC`), improvementArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate improvements: %w", err)
	}
	defer improvementRows.Close()

	for improvementRows.Next() {
		var cat, name string
		var count int
		var avg float64
		if err := improvementRows.Scan(&cat, &name, &count, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan improvement: %w", err)
		}
		if cd, ok := byCategory[models.PromptCategory(cat)]; ok {
			cd.CommonImprovements = append(cd.CommonImprovements, &models.CommonImprovement{
				CriterionName:   name,
				OccurrenceCount: count,
				AvgScore:        avg,
			})
		}
	}
	if err := improvementRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate improvements: %w", err)
	}

	if err := d.db.QueryRow(d.rebind(
		`SELECT COUNT(*) FROM evaluations WHERE status = ?`), string(models.EvaluationCompleted),
	).Scan(&dashboard.TotalEvaluations); err != nil {
		return nil, fmt.Errorf("failed to count evaluations: %w", err)
	}

	return dashboard, nil
}
