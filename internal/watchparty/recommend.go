package watchparty

import (
	"context"
	"fmt"
	"sort"

	"reelpick/internal/models"
	"reelpick/internal/rating"
)

const DefaultPageSize = 5

type Recommendation struct {
	Movie models.Movie
	Score int
}

type RecommendPage struct {
	Party       *models.Watchparty
	Entries     []Recommendation
	Page        int
	PageSize    int
	TotalPages  int
	TotalMovies int
}

// Recommend ranks every unwatched movie by the summed desire ratings of
// the watchparty's available and maybe participants. A participant who
// never rated a movie contributes 0 to it; unavailable users are left out
// entirely. Ties keep the watchlist retrieval order. The requested page
// is clamped into [1, totalPages], so a page is only ever empty when
// there are no candidate movies at all.
func (e *Engine) Recommend(ctx context.Context, partyID, page, pageSize int) (*RecommendPage, error) {
	w, err := e.get(ctx, partyID)
	if err != nil {
		return nil, err
	}

	participants := append(append([]string{}, w.Available...), w.Maybe...)
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	movies, err := e.store.ListUnwatchedMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load unwatched movies: %w", err)
	}
	ratings, err := e.store.ListDesireRatingsForUsers(ctx, participants)
	if err != nil {
		return nil, fmt.Errorf("failed to load desire ratings: %w", err)
	}

	scores := rating.SumByMovie(ratings)
	entries := make([]Recommendation, len(movies))
	for i, m := range movies {
		entries[i] = Recommendation{Movie: m, Score: scores[m.ID]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (len(entries) + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(entries) {
		start = len(entries)
	}
	if end > len(entries) {
		end = len(entries)
	}

	return &RecommendPage{
		Party:       w,
		Entries:     entries[start:end],
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalMovies: len(entries),
	}, nil
}
