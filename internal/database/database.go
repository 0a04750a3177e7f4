package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Database is the prompt store. It owns the versioning protocol: version
// numbers are assigned here and lock_version is checked and incremented
// atomically inside update transactions.
type Database struct {
	db       *sql.DB
	postgres bool
}

// New creates a SQLite-backed database and initializes the schema.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc sqlite allows one writer; serialize through a single conn
	// to avoid SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &Database{db: db}

	if err := d.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// initSchema creates the database tables.
func (d *Database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		lock_version INTEGER NOT NULL DEFAULT 1,
		current_version_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prompt_versions (
		id TEXT PRIMARY KEY,
		prompt_id TEXT NOT NULL REFERENCES prompts(id),
		version_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		change_summary TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		UNIQUE (prompt_id, version_number)
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		prompt_version_id TEXT NOT NULL REFERENCES prompt_versions(id),
		overall_score REAL,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
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

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL. SQLite
// queries pass through unchanged.
func (d *Database) rebind(query string) string {
	if !d.postgres {
		return query
	}
	return rebindPostgres(query)
}
