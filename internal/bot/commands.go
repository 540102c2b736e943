package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"reelpick/internal/models"
	"reelpick/internal/poll"
	"reelpick/internal/render"
	"reelpick/internal/services"
	"reelpick/internal/store"
	"reelpick/internal/watchparty"
)

const (
	listPageSize = 5

	defaultPollMovies = 5
	maxPollMovies     = 10
)

type commandFunc func(ctx context.Context, cmd Command)

// Handler routes parsed commands and callbacks to the engines and
// services, and turns their results (or their rejections) into replies.
type Handler struct {
	polls     *poll.Engine
	parties   *watchparty.Engine
	watchlist *services.WatchlistService
	users     *services.UserService
	tg        *services.TelegramClient
	logger    *logrus.Logger
	routes    map[string]commandFunc
}

func NewHandler(
	polls *poll.Engine,
	parties *watchparty.Engine,
	watchlist *services.WatchlistService,
	users *services.UserService,
	tg *services.TelegramClient,
	logger *logrus.Logger,
) *Handler {
	h := &Handler{
		polls:     polls,
		parties:   parties,
		watchlist: watchlist,
		users:     users,
		tg:        tg,
		logger:    logger,
	}
	h.routes = map[string]commandFunc{
		"/start":       h.handleHelp,
		"/help":        h.handleHelp,
		"/addmovie":    h.handleAddMovie,
		"/removemovie": h.handleRemoveMovie,
		"/watched":     h.handleWatched,
		"/rate":        h.handleRate,
		"/list":        h.handleList,
		"/pickfilms":   h.handlePickFilms,
		"/endpoll":     h.handleEndPoll,
		"/unvote":      h.handleUnvote,
		"/watchparty":  h.handleWatchparty,
		"/finalize":    h.handleFinalize,
		"/reopen":      h.handleReopen,
		"/cancelparty": h.handleCancelParty,
		"/recommend":   h.handleRecommend,
	}
	return h
}

func (h *Handler) ProcessUpdate(ctx context.Context, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.processCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.processMessage(ctx, update.Message)
	}
}

func (h *Handler) processMessage(ctx context.Context, msg *models.Message) {
	cmd, ok := ParseCommand(msg)
	if !ok {
		return
	}

	if err := h.users.EnsureUserExists(ctx, cmd.UserID, cmd.Username); err != nil {
		h.logger.WithError(err).Error("Failed to ensure user exists")
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": cmd.UserID,
		"command": cmd.Name,
		"args":    cmd.Args,
	}).Info("Processing command")

	fn := h.routes[cmd.Name]
	if fn == nil {
		h.reply(ctx, cmd.ChatID, "Unknown command. Use /help to see what I can do.")
		return
	}
	fn(ctx, cmd)
}

func (h *Handler) handleHelp(ctx context.Context, cmd Command) {
	helpMessage := `<b>🎬 Reelpick — plan movie nights together</b>

<b>Watchlist</b>
/addmovie Title | Year | Director | genre1, genre2
/removemovie id
/watched id — toggle the watched flag
/rate id 0-5 — how much do you want to watch it?
/list [page]

<b>Polls</b>
/pickfilms minutes [count] — timed poll over the most-wanted movies
/unvote — take back all your votes
/endpoll — end early (creator or admin)

<b>Watchparties</b>
/watchparty date — start availability voting
/finalize, /reopen, /cancelparty — organizer only
/recommend [page] — what should we watch, given who can come?`

	h.reply(ctx, cmd.ChatID, helpMessage)
}

func (h *Handler) handleAddMovie(ctx context.Context, cmd Command) {
	if len(cmd.Args) == 0 {
		h.reply(ctx, cmd.ChatID, "Usage: /addmovie Title | Year | Director | genre1, genre2 (only the title is required)")
		return
	}

	fields := strings.Split(strings.Join(cmd.Args, " "), "|")
	title := strings.TrimSpace(fields[0])
	if title == "" {
		h.reply(ctx, cmd.ChatID, "The movie title cannot be empty.")
		return
	}

	var year int
	if len(fields) > 1 {
		if y, err := strconv.Atoi(strings.TrimSpace(fields[1])); err == nil {
			year = y
		}
	}
	var director string
	if len(fields) > 2 {
		director = strings.TrimSpace(fields[2])
	}
	var genres []string
	if len(fields) > 3 {
		for _, g := range strings.Split(fields[3], ",") {
			if g = strings.TrimSpace(g); g != "" {
				genres = append(genres, g)
			}
		}
	}

	m, err := h.watchlist.AddMovie(ctx, title, year, director, genres, cmd.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to add movie")
		h.reply(ctx, cmd.ChatID, "Could not add the movie. Please try again later.")
		return
	}
	h.reply(ctx, cmd.ChatID, fmt.Sprintf("Added <b>%s</b> as #%d. Rate it with /rate %d 0-5.", m.Title, m.ID, m.ID))
}

func (h *Handler) handleRemoveMovie(ctx context.Context, cmd Command) {
	id, ok := h.movieIDArg(ctx, cmd, "/removemovie id")
	if !ok {
		return
	}
	if err := h.watchlist.RemoveMovie(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.reply(ctx, cmd.ChatID, fmt.Sprintf("There is no movie #%d on the watchlist.", id))
			return
		}
		h.logger.WithError(err).Error("Failed to remove movie")
		h.reply(ctx, cmd.ChatID, "Could not remove the movie. Please try again later.")
		return
	}
	h.reply(ctx, cmd.ChatID, fmt.Sprintf("Removed movie #%d from the watchlist.", id))
}

func (h *Handler) handleWatched(ctx context.Context, cmd Command) {
	id, ok := h.movieIDArg(ctx, cmd, "/watched id")
	if !ok {
		return
	}
	m, err := h.watchlist.ToggleWatched(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.reply(ctx, cmd.ChatID, fmt.Sprintf("There is no movie #%d on the watchlist.", id))
			return
		}
		h.logger.WithError(err).Error("Failed to toggle watched flag")
		h.reply(ctx, cmd.ChatID, "Could not update the movie. Please try again later.")
		return
	}
	if m.Watched {
		h.reply(ctx, cmd.ChatID, fmt.Sprintf("Marked <b>%s</b> as watched. 🎉", m.Title))
	} else {
		h.reply(ctx, cmd.ChatID, fmt.Sprintf("<b>%s</b> is back on the unwatched list.", m.Title))
	}
}

func (h *Handler) handleRate(ctx context.Context, cmd Command) {
	if len(cmd.Args) != 2 {
		h.reply(ctx, cmd.ChatID, "Usage: /rate id score — score is 0 (skip it) to 5 (must watch).")
		return
	}
	id, err1 := strconv.Atoi(cmd.Args[0])
	score, err2 := strconv.Atoi(cmd.Args[1])
	if err1 != nil || err2 != nil {
		h.reply(ctx, cmd.ChatID, "Both the movie id and the score must be numbers.")
		return
	}

	m, err := h.watchlist.RateMovie(ctx, id, cmd.UserID, score)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadRating):
			h.reply(ctx, cmd.ChatID, "The score must be between 0 and 5.")
		case errors.Is(err, store.ErrNotFound):
			h.reply(ctx, cmd.ChatID, fmt.Sprintf("There is no movie #%d on the watchlist.", id))
		default:
			h.logger.WithError(err).Error("Failed to rate movie")
			h.reply(ctx, cmd.ChatID, "Could not save your rating. Please try again later.")
		}
		return
	}
	h.reply(ctx, cmd.ChatID, fmt.Sprintf("Saved: <b>%s</b> — desire %d/5.", m.Title, score))
}

func (h *Handler) handleList(ctx context.Context, cmd Command) {
	summaries, err := h.watchlist.UnwatchedSummaries(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist")
		h.reply(ctx, cmd.ChatID, "Could not load the watchlist. Please try again later.")
		return
	}

	page := 1
	if len(cmd.Args) > 0 {
		if p, err := strconv.Atoi(cmd.Args[0]); err == nil {
			page = p
		}
	}
	totalPages := (len(summaries) + listPageSize - 1) / listPageSize
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	start := (page - 1) * listPageSize
	end := start + listPageSize
	if start > len(summaries) {
		start = len(summaries)
	}
	if end > len(summaries) {
		end = len(summaries)
	}

	payload := render.MovieList(summaries[start:end], page, totalPages)
	h.reply(ctx, cmd.ChatID, payload.Text)
}

func (h *Handler) handlePickFilms(ctx context.Context, cmd Command) {
	if len(cmd.Args) == 0 {
		h.reply(ctx, cmd.ChatID, "Usage: /pickfilms minutes [count] — e.g. /pickfilms 10 5")
		return
	}
	minutes, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		h.reply(ctx, cmd.ChatID, "The poll duration must be a number of minutes.")
		return
	}
	count := defaultPollMovies
	if len(cmd.Args) > 1 {
		if c, err := strconv.Atoi(cmd.Args[1]); err == nil && c > 0 {
			count = c
		}
	}
	if count > maxPollMovies {
		count = maxPollMovies
	}

	summaries, err := h.watchlist.UnwatchedSummaries(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist for poll")
		h.reply(ctx, cmd.ChatID, "Could not load the watchlist. Please try again later.")
		return
	}
	movies := topDesired(summaries, count)

	p, err := h.polls.Start(cmd.ChannelID, cmd.UserID, movies, time.Duration(minutes)*time.Minute)
	if err != nil {
		switch {
		case errors.Is(err, poll.ErrTooFewMovies):
			h.reply(ctx, cmd.ChatID, "A poll needs at least two unwatched movies. Add more with /addmovie.")
		case errors.Is(err, poll.ErrBadDuration):
			h.reply(ctx, cmd.ChatID, "The poll duration must be between 1 and 60 minutes.")
		case errors.Is(err, poll.ErrPollAlreadyActive):
			h.reply(ctx, cmd.ChatID, "A poll is already running in this channel. End it with /endpoll first.")
		default:
			h.logger.WithError(err).Error("Failed to start poll")
			h.reply(ctx, cmd.ChatID, "Could not start the poll. Please try again later.")
		}
		return
	}

	tallies, err := h.polls.Tally(p.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to tally fresh poll")
		return
	}
	payload := render.Poll(p, tallies)
	messageID, err := h.tg.SendMessage(ctx, cmd.ChatID, payload.Text, payload.Keyboard)
	if err != nil {
		h.logger.WithError(err).Error("Failed to post poll message")
		return
	}
	if err := h.polls.SetMessageID(p.ID, messageID); err != nil {
		// the poll closed in the instant between posting and recording
		h.logger.WithError(err).Warn("Poll vanished before message id was recorded")
	}
}

func (h *Handler) handleEndPoll(ctx context.Context, cmd Command) {
	p, err := h.polls.ByChannel(cmd.ChannelID)
	if err != nil {
		h.reply(ctx, cmd.ChatID, "There is no active poll in this channel.")
		return
	}
	if _, err := h.polls.End(p.ID, true, cmd.UserID); err != nil {
		switch {
		case errors.Is(err, poll.ErrNotAuthorized):
			h.reply(ctx, cmd.ChatID, "Only the poll creator or an admin can end the poll early.")
		case errors.Is(err, poll.ErrPollNotFound):
			// already closed under us; the results were published anyway
		default:
			h.logger.WithError(err).Error("Failed to end poll")
			h.reply(ctx, cmd.ChatID, "Could not end the poll. Please try again later.")
		}
	}
}

func (h *Handler) handleUnvote(ctx context.Context, cmd Command) {
	p, err := h.polls.ByChannel(cmd.ChannelID)
	if err != nil {
		h.reply(ctx, cmd.ChatID, "There is no active poll in this channel.")
		return
	}
	removed, err := h.polls.RemoveAllVotes(p.ID, cmd.UserID)
	if err != nil {
		if errors.Is(err, poll.ErrNoVotesToRemove) {
			h.reply(ctx, cmd.ChatID, "You have no votes in this poll.")
			return
		}
		h.reply(ctx, cmd.ChatID, "There is no active poll in this channel.")
		return
	}
	h.reply(ctx, cmd.ChatID, fmt.Sprintf("Removed your %s.", voteWord(removed)))
}

func (h *Handler) handleWatchparty(ctx context.Context, cmd Command) {
	date := strings.TrimSpace(strings.Join(cmd.Args, " "))
	if date == "" {
		h.reply(ctx, cmd.ChatID, "Usage: /watchparty date — e.g. /watchparty Friday 20:00")
		return
	}

	w, err := h.parties.Create(ctx, cmd.ChannelID, date, cmd.UserID)
	if err != nil {
		if errors.Is(err, watchparty.ErrWatchpartyAlreadyOpen) {
			h.reply(ctx, cmd.ChatID, "There is already an open watchparty in this channel. Finalize or cancel it first.")
			return
		}
		h.logger.WithError(err).Error("Failed to create watchparty")
		h.reply(ctx, cmd.ChatID, "Could not create the watchparty. Please try again later.")
		return
	}

	payload := render.Watchparty(w)
	messageID, err := h.tg.SendMessage(ctx, cmd.ChatID, payload.Text, payload.Keyboard)
	if err != nil {
		h.logger.WithError(err).Error("Failed to post watchparty message")
		return
	}
	if err := h.parties.Register(ctx, w, messageID); err != nil {
		h.logger.WithError(err).Error("Failed to persist watchparty")
		h.reply(ctx, cmd.ChatID, "Could not save the watchparty. Please try again later.")
	}
}

func (h *Handler) handleFinalize(ctx context.Context, cmd Command) {
	w, err := h.parties.OpenByChannel(ctx, cmd.ChannelID)
	if err != nil {
		h.reply(ctx, cmd.ChatID, "There is no open watchparty in this channel.")
		return
	}
	updated, err := h.parties.Finalize(ctx, w.ID, cmd.UserID)
	if err != nil {
		if errors.Is(err, watchparty.ErrNotAuthorized) {
			h.reply(ctx, cmd.ChatID, "Only the organizer can finalize the watchparty.")
			return
		}
		h.logger.WithError(err).Error("Failed to finalize watchparty")
		h.reply(ctx, cmd.ChatID, "Could not finalize the watchparty. Please try again later.")
		return
	}
	h.refreshPartyMessage(ctx, cmd.ChatID, updated)
	h.reply(ctx, cmd.ChatID, fmt.Sprintf("Watchparty for <b>%s</b> is finalized. See you there!", updated.Date))
}

func (h *Handler) handleReopen(ctx context.Context, cmd Command) {
	w, err := h.parties.LatestByChannel(ctx, cmd.ChannelID)
	if err != nil {
		h.reply(ctx, cmd.ChatID, "There is no watchparty in this channel yet.")
		return
	}
	updated, err := h.parties.Reopen(ctx, w.ID, cmd.UserID)
	if err != nil {
		switch {
		case errors.Is(err, watchparty.ErrNotAuthorized):
			h.reply(ctx, cmd.ChatID, "Only the organizer can reopen the watchparty.")
		case errors.Is(err, watchparty.ErrAlreadyOpen):
			h.reply(ctx, cmd.ChatID, "The watchparty is already open.")
		case errors.Is(err, watchparty.ErrAnotherPartyOpen):
			h.reply(ctx, cmd.ChatID, "Another watchparty is already open in this channel.")
		default:
			h.logger.WithError(err).Error("Failed to reopen watchparty")
			h.reply(ctx, cmd.ChatID, "Could not reopen the watchparty. Please try again later.")
		}
		return
	}
	h.refreshPartyMessage(ctx, cmd.ChatID, updated)
	h.reply(ctx, cmd.ChatID, fmt.Sprintf("Watchparty for <b>%s</b> is open again. Availability voting continues.", updated.Date))
}

func (h *Handler) handleCancelParty(ctx context.Context, cmd Command) {
	w, err := h.parties.LatestByChannel(ctx, cmd.ChannelID)
	if err != nil {
		h.reply(ctx, cmd.ChatID, "There is no watchparty in this channel yet.")
		return
	}
	if err := h.parties.Delete(ctx, w.ID, cmd.UserID); err != nil {
		if errors.Is(err, watchparty.ErrNotAuthorized) {
			h.reply(ctx, cmd.ChatID, "Only the organizer can cancel the watchparty.")
			return
		}
		h.logger.WithError(err).Error("Failed to delete watchparty")
		h.reply(ctx, cmd.ChatID, "Could not cancel the watchparty. Please try again later.")
		return
	}
	if err := h.tg.DeleteMessage(ctx, cmd.ChatID, w.ID); err != nil {
		h.logger.WithError(err).Warn("Failed to delete watchparty message")
	}
	h.reply(ctx, cmd.ChatID, fmt.Sprintf("The watchparty for <b>%s</b> has been cancelled.", w.Date))
}

func (h *Handler) handleRecommend(ctx context.Context, cmd Command) {
	w, err := h.parties.LatestByChannel(ctx, cmd.ChannelID)
	if err != nil {
		h.reply(ctx, cmd.ChatID, "There is no watchparty in this channel yet. Start one with /watchparty.")
		return
	}

	page := 1
	if len(cmd.Args) > 0 {
		if p, err := strconv.Atoi(cmd.Args[0]); err == nil {
			page = p
		}
	}

	rec, err := h.parties.Recommend(ctx, w.ID, page, watchparty.DefaultPageSize)
	if err != nil {
		if errors.Is(err, watchparty.ErrNoParticipants) {
			h.reply(ctx, cmd.ChatID, "Nobody is available or maybe yet, so there is nothing to recommend.")
			return
		}
		h.logger.WithError(err).Error("Failed to build recommendations")
		h.reply(ctx, cmd.ChatID, "Could not build recommendations. Please try again later.")
		return
	}

	payload := render.Recommendations(rec)
	if _, err := h.tg.SendMessage(ctx, cmd.ChatID, payload.Text, payload.Keyboard); err != nil {
		h.logger.WithError(err).Error("Failed to send recommendations")
	}
}

func (h *Handler) movieIDArg(ctx context.Context, cmd Command, usage string) (int, bool) {
	if len(cmd.Args) != 1 {
		h.reply(ctx, cmd.ChatID, "Usage: "+usage)
		return 0, false
	}
	id, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		h.reply(ctx, cmd.ChatID, "The movie id must be a number.")
		return 0, false
	}
	return id, true
}

func (h *Handler) reply(ctx context.Context, chatID int, text string) {
	if _, err := h.tg.SendMessage(ctx, chatID, text, nil); err != nil {
		h.logger.WithError(err).Error("Failed to send message")
	}
}

// topDesired picks up to count movies for a poll, best average desire
// first, watchlist order among equals.
func topDesired(summaries []models.MovieSummary, count int) []models.Movie {
	sorted := make([]models.MovieSummary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DesireAvg > sorted[j].DesireAvg
	})
	if count > len(sorted) {
		count = len(sorted)
	}
	movies := make([]models.Movie, count)
	for i := 0; i < count; i++ {
		movies[i] = sorted[i].Movie
	}
	return movies
}

func voteWord(n int) string {
	if n == 1 {
		return "1 vote"
	}
	return fmt.Sprintf("%d votes", n)
}
