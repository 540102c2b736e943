package store

import (
	"context"
	"fmt"

	"reelpick/internal/models"
)

// UpsertDesireRating writes a user's desire rating for a movie,
// overwriting any previous score for the same (movie, user) pair.
func (s *Store) UpsertDesireRating(ctx context.Context, r models.DesireRating) error {
	query := `
	INSERT INTO desire_ratings (movie_id, user_id, rating, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (movie_id, user_id) DO UPDATE
	SET rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.Exec(ctx, query, r.MovieID, r.UserID, r.Rating, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert desire rating: %w", err)
	}
	return nil
}

func (s *Store) ListDesireRatings(ctx context.Context) ([]models.DesireRating, error) {
	query := `
	SELECT movie_id, user_id, rating, updated_at
	FROM desire_ratings
	`
	return s.queryRatings(ctx, query)
}

// ListDesireRatingsForUsers returns the ratings given by any of the
// listed users.
func (s *Store) ListDesireRatingsForUsers(ctx context.Context, userIDs []string) ([]models.DesireRating, error) {
	query := `
	SELECT movie_id, user_id, rating, updated_at
	FROM desire_ratings
	WHERE user_id = ANY($1)
	`
	return s.queryRatings(ctx, query, userIDs)
}

func (s *Store) queryRatings(ctx context.Context, query string, args ...any) ([]models.DesireRating, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query desire ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.DesireRating
	for rows.Next() {
		var r models.DesireRating
		if err := rows.Scan(&r.MovieID, &r.UserID, &r.Rating, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating rows: %w", err)
	}
	return ratings, nil
}
