package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"reelpick/internal/models"
	"reelpick/internal/rating"
	"reelpick/internal/store"
)

const (
	watchlistCacheKey = "watchlist:unwatched"
	watchlistCacheTTL = 10 * time.Minute
)

var ErrBadRating = errors.New("rating must be between 0 and 5")

// WatchlistService wraps the store with the movie/rating operations the
// command layer needs, caching the aggregated unwatched list in Redis.
type WatchlistService struct {
	store  *store.Store
	redis  *redis.Client
	logger *logrus.Logger
}

func NewWatchlistService(st *store.Store, redisClient *redis.Client, logger *logrus.Logger) *WatchlistService {
	return &WatchlistService{
		store:  st,
		redis:  redisClient,
		logger: logger,
	}
}

func (s *WatchlistService) AddMovie(ctx context.Context, title string, year int, director string, genres []string, addedBy string) (*models.Movie, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("movie title cannot be empty")
	}

	m := &models.Movie{
		Title:     title,
		Year:      year,
		Director:  strings.TrimSpace(director),
		Genres:    genres,
		AddedBy:   addedBy,
		CreatedAt: time.Now(),
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	if err := s.store.CreateMovie(ctx, m); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)

	s.logger.WithFields(logrus.Fields{
		"movie_id": m.ID,
		"title":    m.Title,
		"added_by": addedBy,
	}).Info("Movie added to watchlist")

	return m, nil
}

func (s *WatchlistService) RemoveMovie(ctx context.Context, id int) error {
	if err := s.store.DeleteMovie(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// ToggleWatched flips the movie's watched flag, stamping the watch time
// when it turns on.
func (s *WatchlistService) ToggleWatched(ctx context.Context, id int) (*models.Movie, error) {
	m, err := s.store.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	watched := !m.Watched
	now := time.Now()
	if err := s.store.SetWatched(ctx, id, watched, now); err != nil {
		return nil, err
	}
	m.Watched = watched
	if watched {
		m.WatchedAt = &now
	} else {
		m.WatchedAt = nil
	}
	s.invalidateCache(ctx)
	return m, nil
}

// RateMovie upserts the user's desire rating for the movie.
func (s *WatchlistService) RateMovie(ctx context.Context, movieID int, userID string, score int) (*models.Movie, error) {
	if score < 0 || score > 5 {
		return nil, ErrBadRating
	}
	m, err := s.store.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	err = s.store.UpsertDesireRating(ctx, models.DesireRating{
		MovieID:   movieID,
		UserID:    userID,
		Rating:    score,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	return m, nil
}

// UnwatchedSummaries returns the unwatched movies with aggregated desire
// ratings, serving from cache when possible.
func (s *WatchlistService) UnwatchedSummaries(ctx context.Context) ([]models.MovieSummary, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, watchlistCacheKey).Result()
		if err == nil {
			var summaries []models.MovieSummary
			if err := json.Unmarshal([]byte(cached), &summaries); err == nil {
				s.logger.Debug("Retrieved watchlist from cache")
				return summaries, nil
			}
			s.logger.WithError(err).Warn("Failed to unmarshal cached watchlist")
		} else if err != redis.Nil {
			s.logger.WithError(err).Warn("Failed to read watchlist from Redis")
		}
	}

	movies, err := s.store.ListUnwatchedMovies(ctx)
	if err != nil {
		return nil, err
	}
	ratings, err := s.store.ListDesireRatings(ctx)
	if err != nil {
		return nil, err
	}

	grouped := rating.ByMovie(ratings)
	summaries := make([]models.MovieSummary, len(movies))
	for i, m := range movies {
		rs := grouped[m.ID]
		summaries[i] = models.MovieSummary{
			Movie:       m,
			DesireCount: rating.Count(rs),
			DesireAvg:   rating.Average(rs),
		}
	}

	if s.redis != nil {
		if data, err := json.Marshal(summaries); err == nil {
			if err := s.redis.Set(ctx, watchlistCacheKey, data, watchlistCacheTTL).Err(); err != nil {
				s.logger.WithError(err).Warn("Failed to write watchlist to cache")
			}
		}
	}

	return summaries, nil
}

func (s *WatchlistService) invalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, watchlistCacheKey).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate watchlist cache")
	}
}
