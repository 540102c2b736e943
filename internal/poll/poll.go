// Package poll manages the lifecycle of timed, multi-select movie polls.
// Poll state lives in process memory only and is lost on restart.
package poll

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"reelpick/internal/clock"
	"reelpick/internal/models"
)

// Poll is a timed vote over a fixed snapshot of movies, scoped to one
// channel. Votes are keyed by the movie's position in the snapshot rather
// than its title, so two movies with the same title cannot collide.
type Poll struct {
	ID        uuid.UUID
	ChannelID string
	MessageID int
	CreatorID string
	Movies    []models.Movie
	StartTime time.Time
	Duration  time.Duration

	// votes maps userID -> set of movie indexes. Guarded by the engine lock.
	votes map[string]map[int]struct{}

	refresh clock.Handle
	closer  clock.Handle
}

// Deadline is the instant the poll stops being live.
func (p *Poll) Deadline() time.Time {
	return p.StartTime.Add(p.Duration)
}

// TallyEntry is the vote count for one movie of the snapshot.
type TallyEntry struct {
	MovieIndex int
	Title      string
	Count      int
	Voters     []string
}

type RankedEntry struct {
	TallyEntry
	Rank int
}

// Result is the published outcome of an ended poll.
type Result struct {
	Poll           *Poll
	Rankings       []RankedEntry
	Winners        []RankedEntry
	TotalVotes     int
	Forced         bool
	EndedBy        string
	EndedByCreator bool
}

// tally computes per-movie counts over the current vote sets. Zero-count
// movies are included so renderers show the full snapshot. Caller must
// hold the engine lock.
func tally(p *Poll) []TallyEntry {
	entries := make([]TallyEntry, len(p.Movies))
	for i, m := range p.Movies {
		entries[i] = TallyEntry{MovieIndex: i, Title: m.Title}
	}
	for userID, set := range p.votes {
		for idx := range set {
			entries[idx].Count++
			entries[idx].Voters = append(entries[idx].Voters, userID)
		}
	}
	for i := range entries {
		sort.Strings(entries[i].Voters)
	}
	return entries
}

// totalVotes is the sum of all users' vote-set sizes: a user supporting
// three movies contributes three.
func totalVotes(p *Poll) int {
	total := 0
	for _, set := range p.votes {
		total += len(set)
	}
	return total
}

// Rank orders tallies by count descending and assigns ranks where tied
// entries share a rank and the next distinct count resumes below the whole
// tie group (counts 5,5,2 rank as 1,1,3). Ties keep snapshot order.
func Rank(tallies []TallyEntry) []RankedEntry {
	sorted := make([]TallyEntry, len(tallies))
	copy(sorted, tallies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})

	ranked := make([]RankedEntry, len(sorted))
	for i, t := range sorted {
		rank := i + 1
		if i > 0 && t.Count == sorted[i-1].Count {
			rank = ranked[i-1].Rank
		}
		ranked[i] = RankedEntry{TallyEntry: t, Rank: rank}
	}
	return ranked
}

// Winners returns the leading tie group of a ranking.
func Winners(ranked []RankedEntry) []RankedEntry {
	var winners []RankedEntry
	for _, r := range ranked {
		if r.Rank != 1 {
			break
		}
		winners = append(winners, r)
	}
	return winners
}
