package store

import (
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		title              TEXT NOT NULL CHECK (title <> ''),
		description        TEXT NOT NULL DEFAULT '',
		created_at         INTEGER NOT NULL,
		last_activity      INTEGER NOT NULL,
		status             TEXT NOT NULL DEFAULT 'active',
		initial_enthusiasm INTEGER NOT NULL DEFAULT 10 CHECK (initial_enthusiasm BETWEEN 1 AND 10),
		abandonment_count  INTEGER NOT NULL DEFAULT 0 CHECK (abandonment_count >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_projects_activity ON projects(last_activity);

	CREATE TABLE IF NOT EXISTS conversations (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id       INTEGER NOT NULL REFERENCES projects(id),
		speaker          TEXT NOT NULL,
		message          TEXT NOT NULL CHECK (message <> ''),
		created_at       INTEGER NOT NULL,
		context_snapshot TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_conv_project ON conversations(project_id, created_at);

	CREATE TABLE IF NOT EXISTS tasks (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id     INTEGER NOT NULL REFERENCES projects(id),
		description    TEXT NOT NULL CHECK (description <> ''),
		size           TEXT NOT NULL DEFAULT 'tiny',
		completed      INTEGER NOT NULL DEFAULT 0,
		completed_at   INTEGER,
		dopamine_score INTEGER CHECK (dopamine_score IS NULL OR dopamine_score BETWEEN 1 AND 10),
		created_at     INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, completed);

	CREATE TABLE IF NOT EXISTS insights (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id   INTEGER NOT NULL REFERENCES projects(id),
		insight_type TEXT NOT NULL,
		content      TEXT NOT NULL CHECK (content <> ''),
		created_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_insights_project ON insights(project_id, created_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}

// migrateV2 moves the team marker out of message text into a thread column.
func (s *Store) migrateV2() error {
	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= "2" {
		return nil
	}

	// ALTER TABLE conversations ADD COLUMN thread (ignore if already exists)
	_, _ = s.db.Exec(`ALTER TABLE conversations ADD COLUMN thread TEXT NOT NULL DEFAULT 'regular'`)

	backfill := `
	UPDATE conversations
	SET thread = 'team', message = substr(message, length('` + TeamMarker + `') + 1)
	WHERE thread = 'regular' AND message LIKE '[TEAM] %' AND length(message) > length('` + TeamMarker + `')
	`
	if _, err := s.db.Exec(backfill); err != nil {
		return fmt.Errorf("failed to execute migration v2 (team backfill): %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '2')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}
