package store

import (
	"context"
	"fmt"
)

// Migrate applies the schema at startup. Statements are idempotent so the
// call is safe on every boot.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS staff (
			id            UUID PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'mentor',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			staff_id   UUID NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
			token      TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked    BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS formations (
			id          UUID PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_date  DATE NOT NULL,
			end_date    DATE NOT NULL,
			mentors     JSONB NOT NULL DEFAULT '[]',
			tags        JSONB NOT NULL DEFAULT '[]',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			id             UUID PRIMARY KEY,
			formation_id   UUID NOT NULL REFERENCES formations(id) ON DELETE CASCADE,
			email          TEXT NOT NULL,
			first_name     TEXT NOT NULL DEFAULT '',
			last_name      TEXT NOT NULL DEFAULT '',
			profile        JSONB NOT NULL DEFAULT '{}',
			photo_url      TEXT NOT NULL DEFAULT '',
			presence_state BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_formation ON candidates(formation_id)`,
		`CREATE TABLE IF NOT EXISTS candidate_sessions (
			candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
			session_date DATE NOT NULL,
			morning      BOOLEAN NOT NULL DEFAULT FALSE,
			afternoon    BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (candidate_id, session_date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
