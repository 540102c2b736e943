package models

import "time"

type Movie struct {
	ID        int        `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Year      int        `json:"year" db:"year"`
	Director  string     `json:"director" db:"director"`
	Genres    []string   `json:"genres" db:"genres"`
	Watched   bool       `json:"watched" db:"watched"`
	WatchedAt *time.Time `json:"watched_at,omitempty" db:"watched_at"`
	AddedBy   string     `json:"added_by" db:"added_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// DesireRating is a 0-5 "want to watch" score, one per (movie, user).
// Re-rating overwrites the previous score.
type DesireRating struct {
	MovieID   int       `json:"movie_id" db:"movie_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MovieSummary is a movie together with its aggregated desire ratings,
// used by the watchlist listing.
type MovieSummary struct {
	Movie       Movie   `json:"movie"`
	DesireCount int     `json:"desire_count"`
	DesireAvg   float64 `json:"desire_avg"`
}
