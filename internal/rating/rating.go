// Package rating holds pure aggregation helpers over desire-rating records.
package rating

import "reelpick/internal/models"

func Sum(ratings []models.DesireRating) int {
	total := 0
	for _, r := range ratings {
		total += r.Rating
	}
	return total
}

func Count(ratings []models.DesireRating) int {
	return len(ratings)
}

// Average returns the mean rating, or 0 for an empty input.
func Average(ratings []models.DesireRating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	return float64(Sum(ratings)) / float64(len(ratings))
}

// ByMovie groups ratings by movie id.
func ByMovie(ratings []models.DesireRating) map[int][]models.DesireRating {
	grouped := make(map[int][]models.DesireRating)
	for _, r := range ratings {
		grouped[r.MovieID] = append(grouped[r.MovieID], r)
	}
	return grouped
}

// SumByMovie returns the total desire score per movie id. Movies nobody
// rated are simply absent; callers treat a missing entry as 0.
func SumByMovie(ratings []models.DesireRating) map[int]int {
	sums := make(map[int]int)
	for _, r := range ratings {
		sums[r.MovieID] += r.Rating
	}
	return sums
}
