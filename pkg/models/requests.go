package models

import (
	"fmt"
	"strings"
)

// Field length limits enforced both in pkg/client before submission and
// server-side before the store. Limits are in runes, matching the
// database column definitions.
const (
	MaxTitleLen         = 200
	MaxDescriptionLen   = 2000
	MaxContentLen       = 50000
	MaxChangeSummaryLen = 500
)

// ValidationError describes a rejected field. It is surfaced to API
// callers with code VALIDATION_ERROR.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// CreatePromptRequest is the body of POST /api/prompts.
type CreatePromptRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Content     string         `json:"content"`
	Category    PromptCategory `json:"category"`
}

// Validate checks required fields and length bounds.
func (r *CreatePromptRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if len([]rune(r.Title)) > MaxTitleLen {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLen)}
	}
	if len([]rune(r.Description)) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", MaxDescriptionLen)}
	}
	if strings.TrimSpace(r.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if len([]rune(r.Content)) > MaxContentLen {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", MaxContentLen)}
	}
	if !r.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "must be one of: orchestrator, task_execution"}
	}
	return nil
}

// UpdatePromptRequest is the body of PUT /api/prompts/{id}. Nil fields are
// left unchanged. LockVersion is required: it must equal the store's
// current value or the update is rejected with code CONFLICT.
type UpdatePromptRequest struct {
	Title         *string         `json:"title,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Content       *string         `json:"content,omitempty"`
	Category      *PromptCategory `json:"category,omitempty"`
	ChangeSummary string          `json:"change_summary"`
	LockVersion   int             `json:"lock_version"`
}

// Validate checks bounds on whichever fields are present.
func (r *UpdatePromptRequest) Validate() error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		if len([]rune(*r.Title)) > MaxTitleLen {
			return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLen)}
		}
	}
	if r.Description != nil && len([]rune(*r.Description)) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", MaxDescriptionLen)}
	}
	if r.Content != nil {
		if strings.TrimSpace(*r.Content) == "" {
			return &ValidationError{Field: "content", Reason: "must not be empty"}
		}
		if len([]rune(*r.Content)) > MaxContentLen {
			return &ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", MaxContentLen)}
		}
	}
	if r.Category != nil && !r.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "must be one of: orchestrator, task_execution"}
	}
	if len([]rune(r.ChangeSummary)) > MaxChangeSummaryLen {
		return &ValidationError{Field: "change_summary", Reason: fmt.Sprintf("must be at most %d characters", MaxChangeSummaryLen)}
	}
	if r.LockVersion < 1 {
		return &ValidationError{Field: "lock_version", Reason: "is required and must be positive"}
	}
	return nil
}

// ListPromptsRequest carries the filter intent for GET /api/prompts.
// Zero values mean "no filter"; Page and PageSize are clamped by Normalize.
type ListPromptsRequest struct {
	Category PromptCategory
	Search   string
	Page     int
	PageSize int
}

// Normalize clamps pagination to valid ranges: page >= 1, 1 <= page_size <= 100.
func (r *ListPromptsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}
