// Package render turns engine state into display payloads: HTML message
// text plus inline keyboards. Engines emit data only; everything a user
// actually sees is assembled here.
package render

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"reelpick/internal/models"
	"reelpick/internal/poll"
	"reelpick/internal/watchparty"
)

// Callback-data prefixes. The bot boundary parses these back into typed
// actions, so emit and parse share the same constants.
const (
	CallbackVote      = "vote"
	CallbackParty     = "wp"
	CallbackRecommend = "rec"
)

type DisplayPayload struct {
	Text     string
	Keyboard *models.InlineKeyboardMarkup
}

func VoteCallbackData(pollID uuid.UUID, movieIndex int) string {
	return fmt.Sprintf("%s:%s:%d", CallbackVote, pollID, movieIndex)
}

func PartyCallbackData(partyID int, category models.AvailabilityCategory) string {
	return fmt.Sprintf("%s:%d:%s", CallbackParty, partyID, category)
}

func RecommendCallbackData(partyID, page int) string {
	return fmt.Sprintf("%s:%d:%d", CallbackRecommend, partyID, page)
}

// Poll renders the live poll message with one vote button per movie.
func Poll(p *poll.Poll, tallies []poll.TallyEntry) DisplayPayload {
	var b strings.Builder
	b.WriteString("<b>🎬 Movie Poll</b>\n")
	b.WriteString("Tap a button to vote. Tap again to take your vote back. You can vote for several movies.\n\n")

	for _, t := range tallies {
		m := p.Movies[t.MovieIndex]
		b.WriteString(fmt.Sprintf("<b>%d. %s</b>", t.MovieIndex+1, m.Title))
		if m.Year > 0 {
			b.WriteString(fmt.Sprintf(" (%d)", m.Year))
		}
		b.WriteString(fmt.Sprintf(" — %s\n", voteWord(t.Count)))
	}

	b.WriteString(fmt.Sprintf("\n⏰ Closes at %s", p.Deadline().Format("15:04 MST")))

	rows := make([][]models.InlineKeyboardButton, 0, len(p.Movies))
	for i, m := range p.Movies {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%d. %s", i+1, m.Title),
			CallbackData: VoteCallbackData(p.ID, i),
		}})
	}

	return DisplayPayload{
		Text:     b.String(),
		Keyboard: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	}
}

// PollResult renders the final ranking. Tied entries share a medal.
func PollResult(res poll.Result) DisplayPayload {
	var b strings.Builder
	b.WriteString("<b>🏁 Poll Results</b>\n\n")

	for _, r := range res.Rankings {
		b.WriteString(fmt.Sprintf("%s <b>%s</b> — %s\n", medal(r.Rank), r.Title, voteWord(r.Count)))
	}

	b.WriteString("\n")
	switch {
	case res.TotalVotes == 0:
		b.WriteString("Nobody voted. Tough crowd.\n")
	case len(res.Winners) > 1:
		titles := make([]string, len(res.Winners))
		for i, w := range res.Winners {
			titles[i] = w.Title
		}
		b.WriteString(fmt.Sprintf("🤝 It's a tie between <b>%s</b>!\n", strings.Join(titles, "</b> and <b>")))
	default:
		b.WriteString(fmt.Sprintf("🏆 Winner: <b>%s</b>\n", res.Winners[0].Title))
	}

	if res.Forced {
		if res.EndedByCreator {
			b.WriteString("<i>Poll ended early by its creator.</i>\n")
		} else {
			b.WriteString("<i>Poll ended early by an admin.</i>\n")
		}
	}

	return DisplayPayload{Text: b.String()}
}

// Watchparty renders the availability poll with the three category
// buttons.
func Watchparty(w *models.Watchparty) DisplayPayload {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>🍿 Watchparty — %s</b>\n", w.Date))
	if w.IsOpen {
		b.WriteString("Who's in? Tap a button below. Tap the same one again to clear your answer.\n\n")
	} else {
		b.WriteString("<i>This watchparty has been finalized.</i>\n\n")
	}

	writeParticipants(&b, "✅ Available", w.Available)
	writeParticipants(&b, "❌ Unavailable", w.Unavailable)
	writeParticipants(&b, "🤔 Maybe", w.Maybe)

	payload := DisplayPayload{Text: b.String()}
	payload.Keyboard = &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Available", CallbackData: PartyCallbackData(w.ID, models.CategoryAvailable)},
			{Text: "❌ Can't", CallbackData: PartyCallbackData(w.ID, models.CategoryUnavailable)},
			{Text: "🤔 Maybe", CallbackData: PartyCallbackData(w.ID, models.CategoryMaybe)},
		}},
	}
	return payload
}

// Recommendations renders one page of the ranked suggestions with
// previous/next paging buttons where they apply.
func Recommendations(page *watchparty.RecommendPage) DisplayPayload {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>🎯 Recommendations for %s</b>\n", page.Party.Date))
	b.WriteString(fmt.Sprintf("Based on %d interested participant(s).\n\n", len(page.Party.Available)+len(page.Party.Maybe)))

	if page.TotalMovies == 0 {
		b.WriteString("The watchlist has no unwatched movies. Add some with /addmovie.\n")
		return DisplayPayload{Text: b.String()}
	}

	offset := (page.Page - 1) * page.PageSize
	for i, e := range page.Entries {
		b.WriteString(fmt.Sprintf("<b>%d. %s</b>", offset+i+1, e.Movie.Title))
		if e.Movie.Year > 0 {
			b.WriteString(fmt.Sprintf(" (%d)", e.Movie.Year))
		}
		b.WriteString(fmt.Sprintf(" — desire score %d\n", e.Score))
	}
	b.WriteString(fmt.Sprintf("\nPage %d of %d", page.Page, page.TotalPages))

	var buttons []models.InlineKeyboardButton
	if page.Page > 1 {
		buttons = append(buttons, models.InlineKeyboardButton{
			Text:         "⬅️ Prev",
			CallbackData: RecommendCallbackData(page.Party.ID, page.Page-1),
		})
	}
	if page.Page < page.TotalPages {
		buttons = append(buttons, models.InlineKeyboardButton{
			Text:         "Next ➡️",
			CallbackData: RecommendCallbackData(page.Party.ID, page.Page+1),
		})
	}

	payload := DisplayPayload{Text: b.String()}
	if len(buttons) > 0 {
		payload.Keyboard = &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{buttons}}
	}
	return payload
}

// MovieList renders a page of the unwatched watchlist with aggregated
// desire ratings.
func MovieList(summaries []models.MovieSummary, page, totalPages int) DisplayPayload {
	if len(summaries) == 0 {
		return DisplayPayload{Text: "The watchlist is empty. Add a movie with /addmovie."}
	}

	var b strings.Builder
	b.WriteString("<b>📋 Watchlist</b>\n\n")
	for _, s := range summaries {
		b.WriteString(fmt.Sprintf("<b>%d. %s</b>", s.Movie.ID, s.Movie.Title))
		if s.Movie.Year > 0 {
			b.WriteString(fmt.Sprintf(" (%d)", s.Movie.Year))
		}
		b.WriteString("\n")
		if s.Movie.Director != "" {
			b.WriteString(fmt.Sprintf("Director: %s\n", s.Movie.Director))
		}
		if len(s.Movie.Genres) > 0 {
			b.WriteString(fmt.Sprintf("Genres: %s\n", strings.Join(s.Movie.Genres, ", ")))
		}
		if s.DesireCount > 0 {
			b.WriteString(fmt.Sprintf("Desire: %.1f/5 from %d rating(s)\n", s.DesireAvg, s.DesireCount))
		} else {
			b.WriteString("Desire: not rated yet\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Page %d of %d", page, totalPages))
	return DisplayPayload{Text: b.String()}
}

func writeParticipants(b *strings.Builder, label string, users []string) {
	b.WriteString(fmt.Sprintf("%s (%d)", label, len(users)))
	if len(users) > 0 {
		b.WriteString(": " + strings.Join(users, ", "))
	}
	b.WriteString("\n")
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", rank)
}

func voteWord(n int) string {
	if n == 1 {
		return "1 vote"
	}
	return fmt.Sprintf("%d votes", n)
}
