package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// rebindPostgres converts ? placeholders to $1, $2, ... for PostgreSQL.
func rebindPostgres(query string) string {
	n := 1
	out := strings.Builder{}
	for _, ch := range query {
		if ch == '?' {
			out.WriteString(fmt.Sprintf("$%d", n))
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// NewPostgres creates a PostgreSQL-backed database.
func NewPostgres(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	d := &Database{db: db, postgres: true}

	if err := d.initSchemaPostgres(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// initSchemaPostgres creates PostgreSQL-specific tables.
func (d *Database) initSchemaPostgres() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		lock_version INTEGER NOT NULL DEFAULT 1,
		current_version_id TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prompt_versions (
		id TEXT PRIMARY KEY,
		prompt_id TEXT NOT NULL REFERENCES prompts(id),
		version_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		change_summary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (prompt_id, version_number)
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		prompt_version_id TEXT NOT NULL REFERENCES prompt_versions(id),
		overall_score DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS evaluation_criteria (
		id TEXT PRIMARY KEY,
		evaluation_id TEXT NOT NULL REFERENCES evaluations(id),
		criterion_name TEXT NOT NULL,
		score INTEGER NOT NULL,
		feedback TEXT NOT NULL,
		improvement_suggestion TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_prompts_category ON prompts(category);
	CREATE INDEX IF NOT EXISTS idx_prompts_is_active ON prompts(is_active);
	CREATE INDEX IF NOT EXISTS idx_versions_prompt_id ON prompt_versions(prompt_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_version_id ON evaluations(prompt_version_id);
	CREATE INDEX IF NOT EXISTS idx_criteria_evaluation_id ON evaluation_criteria(evaluation_id);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
