package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    username      TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    created_at    BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS progress (
    id              BIGINT PRIMARY KEY,
    username        TEXT NOT NULL,
    goal            TEXT NOT NULL,
    skills          TEXT NOT NULL,
    roadmap         TEXT NOT NULL,
    completed_steps TEXT NOT NULL,
    cv_assessment   TEXT NOT NULL,
    skill_gaps      TEXT NOT NULL,
    learning_path   TEXT NOT NULL,
    cv_tips         TEXT NOT NULL,
    updated_at      BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS progress_username_idx ON progress (username, updated_at);
`

// Migrate creates the development server's tables if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create server schema: %w", err)
	}
	return nil
}
