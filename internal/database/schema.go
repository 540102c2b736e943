package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates the tables if they do not exist. Statements are
// idempotent so startup can run them unconditionally.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT,
			platform TEXT NOT NULL DEFAULT 'telegram',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS movies (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			year INT NOT NULL DEFAULT 0,
			director TEXT NOT NULL DEFAULT '',
			genres TEXT[] NOT NULL DEFAULT '{}',
			watched BOOLEAN NOT NULL DEFAULT FALSE,
			watched_at TIMESTAMPTZ,
			added_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS desire_ratings (
			movie_id INT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			rating INT NOT NULL CHECK (rating BETWEEN 0 AND 5),
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (movie_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS watchparties (
			message_id BIGINT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			party_date TEXT NOT NULL,
			organizer TEXT NOT NULL,
			is_open BOOLEAN NOT NULL DEFAULT TRUE,
			available TEXT[] NOT NULL DEFAULT '{}',
			unavailable TEXT[] NOT NULL DEFAULT '{}',
			maybe TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movies_unwatched ON movies (id) WHERE NOT watched`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_watchparties_one_open ON watchparties (channel_id) WHERE is_open`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
	}
	return nil
}
