package evaluation

import (
	"context"
	"log"
	"time"

	"github.com/jordanhubbard/promptvault/internal/database"
	"github.com/jordanhubbard/promptvault/internal/events"
	"github.com/jordanhubbard/promptvault/internal/metrics"
	"github.com/jordanhubbard/promptvault/internal/prompts"
	"github.com/jordanhubbard/promptvault/pkg/cache"
	"github.com/jordanhubbard/promptvault/pkg/models"
)

// Service runs evaluations against prompt versions and serves the
// aggregate dashboard.
type Service struct {
	db        *database.Database
	evaluator *Evaluator
	bus       *events.Bus
	cache     *cache.Cache
	metrics   *metrics.Metrics
}

// NewService creates an evaluation service around the given evaluator.
func NewService(db *database.Database, evaluator *Evaluator, bus *events.Bus, c *cache.Cache, m *metrics.Metrics) *Service {
	return &Service{db: db, evaluator: evaluator, bus: bus, cache: c, metrics: m}
}

// Trigger evaluates a prompt's current version. The evaluation row is
// created pending before the run so a crash mid-run leaves an auditable
// record, then moved to completed or failed.
func (s *Service) Trigger(ctx context.Context, promptID string) (*models.Evaluation, error) {
	detail, err := s.db.GetPrompt(promptID)
	if err != nil {
		return nil, err
	}
	if detail.CurrentVersion == nil {
		return nil, database.ErrNoCurrentVersion
	}

	evaluation, err := s.db.CreateEvaluation(detail.CurrentVersion.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := s.evaluator.Run(ctx, detail.CurrentVersion.Content)
	s.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	if result.ErrorMessage != "" {
		if err := s.db.FailEvaluation(evaluation.ID, result.ErrorMessage); err != nil {
			return nil, err
		}
		s.metrics.EvaluationsTotal.WithLabelValues(string(models.EvaluationFailed)).Inc()
		s.bus.Publish(events.EventTypeEvaluationFailed, promptID, map[string]interface{}{
			"evaluation_id": evaluation.ID,
			"error":         result.ErrorMessage,
		})
		log.Printf("Evaluation %s failed: %s", evaluation.ID, result.ErrorMessage)
	} else {
		criteria := make([]*models.EvaluationCriterion, 0, len(result.CriterionResults))
		for _, cr := range result.CriterionResults {
			criteria = append(criteria, &models.EvaluationCriterion{
				CriterionName:         cr.CriterionName,
				Score:                 cr.Score,
				Feedback:              cr.Feedback,
				ImprovementSuggestion: cr.ImprovementSuggestion,
			})
			s.metrics.CriterionScores.WithLabelValues(cr.CriterionName).Observe(float64(cr.Score))
		}
		if err := s.db.CompleteEvaluation(evaluation.ID, result.OverallScore, criteria); err != nil {
			return nil, err
		}
		s.metrics.EvaluationsTotal.WithLabelValues(string(models.EvaluationCompleted)).Inc()
		s.bus.Publish(events.EventTypeEvaluationCompleted, promptID, map[string]interface{}{
			"evaluation_id": evaluation.ID,
			"overall_score": result.OverallScore,
		})
		log.Printf("Evaluation %s completed with overall score %.2f", evaluation.ID, result.OverallScore)
	}

	// The prompt detail embeds the latest evaluation summary and the
	// dashboard aggregates over evaluations, so both go stale here.
	s.cache.InvalidateKind(ctx, prompts.CacheKindPrompt)
	s.cache.InvalidateKind(ctx, prompts.CacheKindDashboard)

	return s.db.GetEvaluation(evaluation.ID)
}

// Get returns an evaluation with its criterion breakdown.
func (s *Service) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	return s.db.GetEvaluation(id)
}

// Dashboard returns per-category aggregates over completed evaluations,
// optionally filtered to one category.
func (s *Service) Dashboard(ctx context.Context, category models.PromptCategory) (*models.Dashboard, error) {
	key := cache.Key(prompts.CacheKindDashboard, string(category), nil)
	cached := &models.Dashboard{}
	if s.cache.Get(ctx, key, cached) {
		s.metrics.CacheHits.Inc()
		return cached, nil
	}
	s.metrics.CacheMisses.Inc()

	dashboard, err := s.db.Dashboard(category)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, dashboard, 0); err != nil {
		log.Printf("Failed to cache dashboard: %v", err)
	}
	return dashboard, nil
}
