package render

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelpick/internal/models"
	"reelpick/internal/poll"
	"reelpick/internal/watchparty"
)

func TestPollPayload(t *testing.T) {
	p := &poll.Poll{
		ID:        uuid.New(),
		ChannelID: "chan-1",
		Movies:    []models.Movie{{Title: "Alien", Year: 1979}, {Title: "Dune", Year: 2021}},
		StartTime: time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC),
		Duration:  10 * time.Minute,
	}
	tallies := []poll.TallyEntry{
		{MovieIndex: 0, Title: "Alien", Count: 1},
		{MovieIndex: 1, Title: "Dune", Count: 0},
	}

	payload := Poll(p, tallies)
	assert.Contains(t, payload.Text, "Alien")
	assert.Contains(t, payload.Text, "(1979)")
	assert.Contains(t, payload.Text, "1 vote")
	assert.Contains(t, payload.Text, "0 votes")

	require.NotNil(t, payload.Keyboard)
	require.Len(t, payload.Keyboard.InlineKeyboard, 2)
	assert.Equal(t, VoteCallbackData(p.ID, 0), payload.Keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, VoteCallbackData(p.ID, 1), payload.Keyboard.InlineKeyboard[1][0].CallbackData)
}

func TestPollResultTie(t *testing.T) {
	ranked := poll.Rank([]poll.TallyEntry{
		{MovieIndex: 0, Title: "Alien", Count: 2},
		{MovieIndex: 1, Title: "Dune", Count: 2},
		{MovieIndex: 2, Title: "Heat", Count: 1},
	})
	res := poll.Result{Rankings: ranked, Winners: poll.Winners(ranked), TotalVotes: 5}

	payload := PollResult(res)
	assert.Contains(t, payload.Text, "It's a tie between")
	assert.Contains(t, payload.Text, "Alien")
	assert.Contains(t, payload.Text, "Dune")
	// tied leaders share the gold medal
	assert.Equal(t, 2, strings.Count(payload.Text, "🥇"))
	assert.Contains(t, payload.Text, "🥉")
}

func TestPollResultSingleWinner(t *testing.T) {
	ranked := poll.Rank([]poll.TallyEntry{
		{MovieIndex: 0, Title: "Alien", Count: 3},
		{MovieIndex: 1, Title: "Dune", Count: 1},
	})
	res := poll.Result{Rankings: ranked, Winners: poll.Winners(ranked), TotalVotes: 4}

	payload := PollResult(res)
	assert.Contains(t, payload.Text, "Winner: <b>Alien</b>")
	assert.NotContains(t, payload.Text, "ended early")
}

func TestPollResultForcedEndAttribution(t *testing.T) {
	ranked := poll.Rank([]poll.TallyEntry{
		{MovieIndex: 0, Title: "Alien", Count: 3},
		{MovieIndex: 1, Title: "Dune", Count: 1},
	})
	res := poll.Result{
		Rankings:       ranked,
		Winners:        poll.Winners(ranked),
		TotalVotes:     4,
		Forced:         true,
		EndedBy:        "creator",
		EndedByCreator: true,
	}
	assert.Contains(t, PollResult(res).Text, "ended early by its creator")

	res.EndedBy = "admin-1"
	res.EndedByCreator = false
	assert.Contains(t, PollResult(res).Text, "ended early by an admin")
}

func TestPollResultNoVotes(t *testing.T) {
	ranked := poll.Rank([]poll.TallyEntry{
		{MovieIndex: 0, Title: "Alien"},
		{MovieIndex: 1, Title: "Dune"},
	})
	res := poll.Result{Rankings: ranked, Winners: poll.Winners(ranked)}

	payload := PollResult(res)
	assert.Contains(t, payload.Text, "Nobody voted")
}

func TestWatchpartyPayload(t *testing.T) {
	w := &models.Watchparty{
		ID:        987,
		Date:      "2026-09-05",
		IsOpen:    true,
		Available: []string{"ada"},
		Maybe:     []string{"bob", "eve"},
	}

	payload := Watchparty(w)
	assert.Contains(t, payload.Text, "2026-09-05")
	assert.Contains(t, payload.Text, "✅ Available (1): ada")
	assert.Contains(t, payload.Text, "🤔 Maybe (2): bob, eve")

	require.NotNil(t, payload.Keyboard)
	row := payload.Keyboard.InlineKeyboard[0]
	require.Len(t, row, 3)
	assert.Equal(t, PartyCallbackData(987, models.CategoryAvailable), row[0].CallbackData)
	assert.Equal(t, PartyCallbackData(987, models.CategoryUnavailable), row[1].CallbackData)
	assert.Equal(t, PartyCallbackData(987, models.CategoryMaybe), row[2].CallbackData)

	w.IsOpen = false
	payload = Watchparty(w)
	assert.Contains(t, payload.Text, "finalized")
}

func TestRecommendationsPaging(t *testing.T) {
	page := &watchparty.RecommendPage{
		Party: &models.Watchparty{ID: 987, Date: "2026-09-05", Available: []string{"ada"}},
		Entries: []watchparty.Recommendation{
			{Movie: models.Movie{Title: "Heat", Year: 1995}, Score: 7},
		},
		Page:        2,
		PageSize:    5,
		TotalPages:  3,
		TotalMovies: 11,
	}

	payload := Recommendations(page)
	// numbering continues across pages
	assert.Contains(t, payload.Text, "6. Heat")
	assert.Contains(t, payload.Text, "Page 2 of 3")

	require.NotNil(t, payload.Keyboard)
	row := payload.Keyboard.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, RecommendCallbackData(987, 1), row[0].CallbackData)
	assert.Equal(t, RecommendCallbackData(987, 3), row[1].CallbackData)
}

func TestRecommendationsFirstAndLastPageButtons(t *testing.T) {
	page := &watchparty.RecommendPage{
		Party:       &models.Watchparty{ID: 987, Date: "2026-09-05"},
		Entries:     []watchparty.Recommendation{{Movie: models.Movie{Title: "Heat"}}},
		Page:        1,
		PageSize:    5,
		TotalPages:  1,
		TotalMovies: 1,
	}
	payload := Recommendations(page)
	assert.Nil(t, payload.Keyboard)
}

func TestMovieListEmpty(t *testing.T) {
	payload := MovieList(nil, 1, 1)
	assert.Contains(t, payload.Text, "/addmovie")
	assert.Nil(t, payload.Keyboard)
}
