package prompts

import (
	"context"
	"errors"
	"log"

	"github.com/jordanhubbard/promptvault/internal/database"
	"github.com/jordanhubbard/promptvault/internal/events"
	"github.com/jordanhubbard/promptvault/internal/metrics"
	"github.com/jordanhubbard/promptvault/pkg/cache"
	"github.com/jordanhubbard/promptvault/pkg/models"
)

// Cache kinds used for server-side response caching. Any prompt mutation
// invalidates all three: cached reads are discarded, never patched.
const (
	CacheKindPrompt     = "prompt"
	CacheKindPromptList = "prompt-list"
	CacheKindDashboard  = "dashboard"
)

// Service owns prompt CRUD and the version history on top of the store.
// It validates input before the store sees it, publishes mutation events
// and keeps the response cache coherent.
type Service struct {
	db      *database.Database
	bus     *events.Bus
	cache   *cache.Cache
	metrics *metrics.Metrics
}

// NewService creates a prompt service.
func NewService(db *database.Database, bus *events.Bus, c *cache.Cache, m *metrics.Metrics) *Service {
	return &Service{db: db, bus: bus, cache: c, metrics: m}
}

// Create validates and creates a prompt with version 1 as current.
func (s *Service) Create(ctx context.Context, req *models.CreatePromptRequest) (*models.PromptDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	detail, err := s.db.CreatePrompt(req)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.metrics.PromptsCreated.WithLabelValues(string(detail.Category)).Inc()
	s.metrics.VersionsCreated.WithLabelValues(string(detail.Category)).Inc()
	s.bus.Publish(events.EventTypePromptCreated, detail.ID, map[string]interface{}{
		"title":    detail.Title,
		"category": string(detail.Category),
	})
	log.Printf("Created prompt %s with version 1", detail.ID)

	return detail, nil
}

// Get returns a prompt with its current version, serving from cache when
// possible.
func (s *Service) Get(ctx context.Context, id string) (*models.PromptDetail, error) {
	key := cache.Key(CacheKindPrompt, id, nil)
	cached := &models.PromptDetail{}
	if s.cache.Get(ctx, key, cached) {
		s.metrics.CacheHits.Inc()
		return cached, nil
	}
	s.metrics.CacheMisses.Inc()

	detail, err := s.db.GetPrompt(id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, detail, 0); err != nil {
		log.Printf("Failed to cache prompt %s: %v", id, err)
	}
	return detail, nil
}

// List returns a page of prompts matching the filter.
func (s *Service) List(ctx context.Context, req *models.ListPromptsRequest) (*models.PromptList, error) {
	req.Normalize()

	key := cache.Key(CacheKindPromptList, "", req)
	cached := &models.PromptList{}
	if s.cache.Get(ctx, key, cached) {
		s.metrics.CacheHits.Inc()
		return cached, nil
	}
	s.metrics.CacheMisses.Inc()

	list, err := s.db.ListPrompts(req)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, list, 0); err != nil {
		log.Printf("Failed to cache prompt list: %v", err)
	}
	return list, nil
}

// Update applies a partial update through the optimistic concurrency
// gate. A stale lock_version surfaces as database.ErrLockConflict; the
// caller must re-fetch before retrying.
func (s *Service) Update(ctx context.Context, id string, req *models.UpdatePromptRequest) (*models.PromptDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	before, err := s.db.GetPrompt(id)
	if err != nil {
		return nil, err
	}

	detail, err := s.db.UpdatePrompt(id, req)
	if err != nil {
		if errors.Is(err, database.ErrLockConflict) {
			s.metrics.LockConflicts.Inc()
		}
		return nil, err
	}

	s.invalidate(ctx)
	s.metrics.PromptsUpdated.WithLabelValues(string(detail.Category)).Inc()
	if detail.VersionCount > before.VersionCount {
		s.metrics.VersionsCreated.WithLabelValues(string(detail.Category)).Inc()
	}
	s.bus.Publish(events.EventTypePromptUpdated, detail.ID, map[string]interface{}{
		"lock_version":  detail.LockVersion,
		"version_count": detail.VersionCount,
	})
	log.Printf("Updated prompt %s (lock_version %d)", id, detail.LockVersion)

	return detail, nil
}

// Delete soft-deletes a prompt. Version history is retained.
func (s *Service) Delete(ctx context.Context, id string) error {
	detail, err := s.db.GetPrompt(id)
	if err != nil {
		return err
	}

	if err := s.db.SoftDeletePrompt(id); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.metrics.PromptsDeleted.WithLabelValues(string(detail.Category)).Inc()
	s.bus.Publish(events.EventTypePromptDeleted, id, nil)
	log.Printf("Soft-deleted prompt %s", id)

	return nil
}

// ListVersions returns a prompt's versions, newest first.
func (s *Service) ListVersions(ctx context.Context, promptID string) ([]*models.PromptVersion, error) {
	return s.db.ListVersions(promptID)
}

// GetVersion returns one version by number.
func (s *Service) GetVersion(ctx context.Context, promptID string, versionNumber int) (*models.PromptVersion, error) {
	return s.db.GetVersion(promptID, versionNumber)
}

// RestoreVersion creates a new version carrying an old version's content
// and makes it current. History is never rewritten.
func (s *Service) RestoreVersion(ctx context.Context, promptID string, versionNumber int) (*models.PromptVersion, error) {
	restored, err := s.db.RestoreVersion(promptID, versionNumber)
	if err != nil {
		if errors.Is(err, database.ErrLockConflict) {
			s.metrics.LockConflicts.Inc()
		}
		return nil, err
	}

	detail, err := s.db.GetPrompt(promptID)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.metrics.VersionRestores.WithLabelValues(string(detail.Category)).Inc()
	s.metrics.VersionsCreated.WithLabelValues(string(detail.Category)).Inc()
	s.bus.Publish(events.EventTypeVersionRestored, promptID, map[string]interface{}{
		"restored_from":  versionNumber,
		"version_number": restored.VersionNumber,
	})
	log.Printf("Restored prompt %s to version %d (new version %d)", promptID, versionNumber, restored.VersionNumber)

	return restored, nil
}

// invalidate discards all prompt-derived cache entries after a mutation.
func (s *Service) invalidate(ctx context.Context) {
	s.cache.InvalidateKind(ctx, CacheKindPrompt)
	s.cache.InvalidateKind(ctx, CacheKindPromptList)
	s.cache.InvalidateKind(ctx, CacheKindDashboard)
}
