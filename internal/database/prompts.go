package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

// CreatePrompt creates a prompt with version 1 as its current version.
// The store assigns the id, lock_version (always 1 on create) and
// timestamps; the caller has no say in any of them.
func (d *Database) CreatePrompt(req *models.CreatePromptRequest) (*models.PromptDetail, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	promptID := uuid.NewString()
	versionID := uuid.NewString()

	_, err = tx.Exec(d.rebind(`
		INSERT INTO prompts (id, title, description, category, is_active, lock_version, current_version_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)`),
		promptID, req.Title, req.Description, string(req.Category), true, versionID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert prompt: %w", err)
	}

	_, err = tx.Exec(d.rebind(`
		INSERT INTO prompt_versions (id, prompt_id, version_number, content, change_summary, created_at)
		VALUES (?, ?, 1, ?, ?, ?)`),
		versionID, promptID, req.Content, "Initial version", now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert initial version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return d.GetPrompt(promptID)
}

// GetPrompt returns an active prompt with its current version and the
// most recent evaluation of that version, if any.
func (d *Database) GetPrompt(id string) (*models.PromptDetail, error) {
	row := d.db.QueryRow(d.rebind(`
		SELECT id, title, description, category, is_active, lock_version, current_version_id, created_at, updated_at
		FROM prompts
		WHERE id = ? AND is_active = ?`),
		id, true,
	)

	detail, currentVersionID, err := scanPromptDetail(row)
	if err == sql.ErrNoRows {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}

	if err := d.db.QueryRow(d.rebind(
		`SELECT COUNT(*) FROM prompt_versions WHERE prompt_id = ?`), id,
	).Scan(&detail.VersionCount); err != nil {
		return nil, fmt.Errorf("failed to count versions: %w", err)
	}

	if currentVersionID != "" {
		version, err := d.getVersionByID(currentVersionID)
		if err != nil {
			return nil, err
		}
		detail.CurrentVersion = version

		summary, err := d.latestEvaluationSummary(currentVersionID)
		if err != nil {
			return nil, err
		}
		detail.LatestEvaluation = summary
	}

	return detail, nil
}

// ListPrompts returns active prompts matching the filter, most recently
// updated first, with a total count for pagination.
func (d *Database) ListPrompts(req *models.ListPromptsRequest) (*models.PromptList, error) {
	req.Normalize()

	where := `WHERE is_active = ?`
	args := []interface{}{true}

	if req.Category != "" {
		where += ` AND category = ?`
		args = append(args, string(req.Category))
	}
	if req.Search != "" {
		where += ` AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)`
		pattern := "%" + strings.ToLower(req.Search) + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM prompts ` + where
	if err := d.db.QueryRow(d.rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count prompts: %w", err)
	}

	query := `
		SELECT p.id, p.title, p.description, p.category, p.is_active, p.lock_version, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM prompt_versions v WHERE v.prompt_id = p.id) AS version_count
		FROM prompts p ` + where + `
		ORDER BY p.updated_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := d.db.Query(d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	items := []*models.Prompt{}
	for rows.Next() {
		p := &models.Prompt{}
		var category string
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &category, &p.IsActive,
			&p.LockVersion, &p.CreatedAt, &p.UpdatedAt, &p.VersionCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		p.Category = models.PromptCategory(category)
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prompts: %w", err)
	}

	return &models.PromptList{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// UpdatePrompt applies a partial update guarded by the optimistic
// concurrency gate. The submitted lock_version must equal the stored
// value; on success lock_version is incremented and, if the content
// changed, a new version is appended and becomes current. A stale
// lock_version returns ErrLockConflict and leaves the prompt untouched.
func (d *Database) UpdatePrompt(id string, req *models.UpdatePromptRequest) (*models.PromptDetail, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, currentVersionID, err := d.getPromptForUpdate(tx, id)
	if err != nil {
		return nil, err
	}
	if current.LockVersion != req.LockVersion {
		return nil, ErrLockConflict
	}

	title := current.Title
	if req.Title != nil {
		title = *req.Title
	}
	description := current.Description
	if req.Description != nil {
		description = *req.Description
	}
	category := current.Category
	if req.Category != nil {
		category = *req.Category
	}

	now := time.Now().UTC()
	newVersionID := currentVersionID

	if req.Content != nil {
		currentContent := ""
		if currentVersionID != "" {
			v, err := d.getVersionByIDTx(tx, currentVersionID)
			if err != nil {
				return nil, err
			}
			currentContent = v.Content
		}
		if *req.Content != currentContent {
			nextNum, err := d.nextVersionNumber(tx, id)
			if err != nil {
				return nil, err
			}
			newVersionID = uuid.NewString()
			_, err = tx.Exec(d.rebind(`
				INSERT INTO prompt_versions (id, prompt_id, version_number, content, change_summary, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`),
				newVersionID, id, nextNum, *req.Content, req.ChangeSummary, now,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert version: %w", err)
			}
		}
	}

	// The gate: check-and-increment in a single statement so a concurrent
	// update that slipped in after the read above still loses exactly one
	// of the two races.
	result, err := tx.Exec(d.rebind(`
		UPDATE prompts
		SET title = ?, description = ?, category = ?, current_version_id = ?, updated_at = ?, lock_version = lock_version + 1
		WHERE id = ? AND lock_version = ?`),
		title, description, string(category), newVersionID, now, id, req.LockVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrLockConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return d.GetPrompt(id)
}

// SoftDeletePrompt marks a prompt inactive. The version history is kept.
func (d *Database) SoftDeletePrompt(id string) error {
	result, err := d.db.Exec(d.rebind(
		`UPDATE prompts SET is_active = ?, updated_at = ? WHERE id = ? AND is_active = ?`),
		false, time.Now().UTC(), id, true,
	)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPromptNotFound
	}
	return nil
}

// ListVersions returns all versions of a prompt, newest first.
func (d *Database) ListVersions(promptID string) ([]*models.PromptVersion, error) {
	if err := d.promptExists(promptID); err != nil {
		return nil, err
	}

	rows, err := d.db.Query(d.rebind(`
		SELECT id, prompt_id, version_number, content, change_summary, created_at
		FROM prompt_versions
		WHERE prompt_id = ?
		ORDER BY version_number DESC`),
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []*models.PromptVersion{}
	for rows.Next() {
		v := &models.PromptVersion{}
		if err := rows.Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.Content, &v.ChangeSummary, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate versions: %w", err)
	}

	return versions, nil
}

// GetVersion returns one version of a prompt by its version number.
func (d *Database) GetVersion(promptID string, versionNumber int) (*models.PromptVersion, error) {
	if err := d.promptExists(promptID); err != nil {
		return nil, err
	}

	v := &models.PromptVersion{}
	err := d.db.QueryRow(d.rebind(`
		SELECT id, prompt_id, version_number, content, change_summary, created_at
		FROM prompt_versions
		WHERE prompt_id = ? AND version_number = ?`),
		promptID, versionNumber,
	).Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.Content, &v.ChangeSummary, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// RestoreVersion copies version N's content into a brand-new version with
// the next sequential number and makes it current. History is append-only:
// version N itself is never modified. The restore goes through the same
// concurrency gate as any edit, using the prompt's current lock_version.
func (d *Database) RestoreVersion(promptID string, versionNumber int) (*models.PromptVersion, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, _, err := d.getPromptForUpdate(tx, promptID)
	if err != nil {
		return nil, err
	}

	old := &models.PromptVersion{}
	err = tx.QueryRow(d.rebind(`
		SELECT id, prompt_id, version_number, content, change_summary, created_at
		FROM prompt_versions
		WHERE prompt_id = ? AND version_number = ?`),
		promptID, versionNumber,
	).Scan(&old.ID, &old.PromptID, &old.VersionNumber, &old.Content, &old.ChangeSummary, &old.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	nextNum, err := d.nextVersionNumber(tx, promptID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	restored := &models.PromptVersion{
		ID:            uuid.NewString(),
		PromptID:      promptID,
		VersionNumber: nextNum,
		Content:       old.Content,
		ChangeSummary: fmt.Sprintf("Restored from version %d", versionNumber),
		CreatedAt:     now,
	}

	_, err = tx.Exec(d.rebind(`
		INSERT INTO prompt_versions (id, prompt_id, version_number, content, change_summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		restored.ID, restored.PromptID, restored.VersionNumber, restored.Content, restored.ChangeSummary, restored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert restored version: %w", err)
	}

	result, err := tx.Exec(d.rebind(`
		UPDATE prompts
		SET current_version_id = ?, updated_at = ?, lock_version = lock_version + 1
		WHERE id = ? AND lock_version = ?`),
		restored.ID, now, promptID, current.LockVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrLockConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return restored, nil
}

// Internal helpers

func (d *Database) promptExists(id string) error {
	var one int
	err := d.db.QueryRow(d.rebind(
		`SELECT 1 FROM prompts WHERE id = ? AND is_active = ?`), id, true,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrPromptNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check prompt: %w", err)
	}
	return nil
}

// getPromptForUpdate reads a prompt row inside a mutation transaction.
// On PostgreSQL it takes a row lock so the lock_version read and the
// guarded UPDATE cannot interleave with a concurrent writer.
func (d *Database) getPromptForUpdate(tx *sql.Tx, id string) (*models.Prompt, string, error) {
	query := `
		SELECT id, title, description, category, is_active, lock_version, current_version_id, created_at, updated_at
		FROM prompts
		WHERE id = ? AND is_active = ?`
	if d.postgres {
		query += ` FOR UPDATE`
	}

	row := tx.QueryRow(d.rebind(query), id, true)
	detail, currentVersionID, err := scanPromptDetail(row)
	if err == sql.ErrNoRows {
		return nil, "", ErrPromptNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get prompt: %w", err)
	}
	return &detail.Prompt, currentVersionID, nil
}

func (d *Database) nextVersionNumber(tx *sql.Tx, promptID string) (int, error) {
	var maxNum int
	err := tx.QueryRow(d.rebind(
		`SELECT COALESCE(MAX(version_number), 0) FROM prompt_versions WHERE prompt_id = ?`), promptID,
	).Scan(&maxNum)
	if err != nil {
		return 0, fmt.Errorf("failed to get max version number: %w", err)
	}
	return maxNum + 1, nil
}

func (d *Database) getVersionByID(id string) (*models.PromptVersion, error) {
	return scanVersionRow(d.db.QueryRow(d.rebind(`
		SELECT id, prompt_id, version_number, content, change_summary, created_at
		FROM prompt_versions WHERE id = ?`), id))
}

func (d *Database) getVersionByIDTx(tx *sql.Tx, id string) (*models.PromptVersion, error) {
	return scanVersionRow(tx.QueryRow(d.rebind(`
		SELECT id, prompt_id, version_number, content, change_summary, created_at
		FROM prompt_versions WHERE id = ?`), id))
}

func scanVersionRow(row *sql.Row) (*models.PromptVersion, error) {
	v := &models.PromptVersion{}
	err := row.Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.Content, &v.ChangeSummary, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}
	return v, nil
}

func scanPromptDetail(row *sql.Row) (*models.PromptDetail, string, error) {
	detail := &models.PromptDetail{}
	var category string
	var currentVersionID sql.NullString
	err := row.Scan(
		&detail.ID, &detail.Title, &detail.Description, &category, &detail.IsActive,
		&detail.LockVersion, &currentVersionID, &detail.CreatedAt, &detail.UpdatedAt,
	)
	if err != nil {
		return nil, "", err
	}
	detail.Category = models.PromptCategory(category)
	return detail, currentVersionID.String, nil
}
