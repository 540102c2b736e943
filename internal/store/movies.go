package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"reelpick/internal/models"
)

func (s *Store) CreateMovie(ctx context.Context, m *models.Movie) error {
	query := `
	INSERT INTO movies (title, year, director, genres, added_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`
	err := s.db.QueryRow(ctx, query, m.Title, m.Year, m.Director, m.Genres, m.AddedBy, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create movie: %w", err)
	}
	return nil
}

func (s *Store) GetMovie(ctx context.Context, id int) (*models.Movie, error) {
	query := `
	SELECT id, title, year, director, genres, watched, watched_at, added_by, created_at
	FROM movies
	WHERE id = $1
	`
	m, err := scanMovie(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return m, nil
}

func (s *Store) DeleteMovie(ctx context.Context, id int) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetWatched flips the watched flag. The timestamp is recorded when
// marking watched and cleared when unmarking.
func (s *Store) SetWatched(ctx context.Context, id int, watched bool, at time.Time) error {
	query := `
	UPDATE movies
	SET watched = $2, watched_at = CASE WHEN $2 THEN $3 ELSE NULL END
	WHERE id = $1
	`
	var ts *time.Time
	if watched {
		ts = &at
	}
	tag, err := s.db.Exec(ctx, query, id, watched, ts)
	if err != nil {
		return fmt.Errorf("failed to update watched flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnwatchedMovies returns unwatched movies in insertion order. That
// order is the stable tie-break for every downstream ranking.
func (s *Store) ListUnwatchedMovies(ctx context.Context) ([]models.Movie, error) {
	query := `
	SELECT id, title, year, director, genres, watched, watched_at, added_by, created_at
	FROM movies
	WHERE watched = false
	ORDER BY id
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unwatched movies: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie row: %w", err)
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movie rows: %w", err)
	}
	return movies, nil
}

func scanMovie(row pgx.Row) (*models.Movie, error) {
	var m models.Movie
	var watchedAt pgtype.Timestamptz
	err := row.Scan(&m.ID, &m.Title, &m.Year, &m.Director, &m.Genres, &m.Watched, &watchedAt, &m.AddedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if watchedAt.Valid {
		t := watchedAt.Time
		m.WatchedAt = &t
	}
	return &m, nil
}
