package storage

import (
	"context"
	"fmt"
	"time"

	"QuestionScanner/internal/config"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS question (
	    question_id BIGSERIAL PRIMARY KEY,
	    source_id BIGINT NOT NULL UNIQUE,
	    title TEXT NOT NULL,
	    q_description TEXT NOT NULL,
	    question_link TEXT NOT NULL,
	    votes BIGINT NOT NULL DEFAULT 0,
	    answers BIGINT NOT NULL DEFAULT 0,
	    views BIGINT NOT NULL DEFAULT 0,
	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tag (
	    tag_id BIGSERIAL PRIMARY KEY,
	    tag_title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tag_question (
	    tag_id BIGINT NOT NULL REFERENCES tag (tag_id) ON DELETE CASCADE,
	    question_id BIGINT NOT NULL REFERENCES question (question_id) ON DELETE CASCADE,
	    PRIMARY KEY (tag_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tag_question_question ON tag_question (question_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS question (
	    question_id INTEGER PRIMARY KEY AUTOINCREMENT,
	    source_id INTEGER NOT NULL UNIQUE,
	    title TEXT NOT NULL,
	    q_description TEXT NOT NULL,
	    question_link TEXT NOT NULL,
	    votes INTEGER NOT NULL DEFAULT 0,
	    answers INTEGER NOT NULL DEFAULT 0,
	    views INTEGER NOT NULL DEFAULT 0,
	    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tag (
	    tag_id INTEGER PRIMARY KEY AUTOINCREMENT,
	    tag_title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tag_question (
	    tag_id INTEGER NOT NULL REFERENCES tag (tag_id) ON DELETE CASCADE,
	    question_id INTEGER NOT NULL REFERENCES question (question_id) ON DELETE CASCADE,
	    PRIMARY KEY (tag_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tag_question_question ON tag_question (question_id)`,
}

// EnsureSchema creates the question, tag and tag_question tables if missing.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	stmts := postgresSchema
	if r.driver == config.DriverSQLite {
		stmts = sqliteSchema
	}

	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
