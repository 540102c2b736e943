package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"reelpick/internal/models"
	"reelpick/internal/poll"
	"reelpick/internal/render"
	"reelpick/internal/watchparty"
)

func (h *Handler) processCallback(ctx context.Context, cq *models.CallbackQuery) {
	action, err := ParseCallback(cq.Data)
	if err != nil {
		h.answer(ctx, cq.Id, "This button is no longer valid.", false)
		return
	}

	userID := strconv.Itoa(cq.From.Id)
	if err := h.users.EnsureUserExists(ctx, userID, cq.From.Username); err != nil {
		h.logger.WithError(err).Error("Failed to ensure user exists")
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"data":    cq.Data,
	}).Info("Processing callback")

	switch action.Kind {
	case CallbackVote:
		h.handleVoteCallback(ctx, cq, action, userID)
	case CallbackAvailability:
		h.handleAvailabilityCallback(ctx, cq, action, userID)
	case CallbackRecommendPage:
		h.handleRecommendPageCallback(ctx, cq, action)
	}
}

func (h *Handler) handleVoteCallback(ctx context.Context, cq *models.CallbackQuery, action CallbackAction, userID string) {
	added, count, err := h.polls.ToggleVote(action.PollID, userID, action.MovieIndex)
	if err != nil {
		switch {
		case errors.Is(err, poll.ErrPollNotFound):
			h.answer(ctx, cq.Id, "This poll has already ended.", true)
		case errors.Is(err, poll.ErrBadMovieIndex):
			h.answer(ctx, cq.Id, "This button is no longer valid.", false)
		default:
			h.logger.WithError(err).Error("Failed to toggle vote")
			h.answer(ctx, cq.Id, "Something went wrong. Please try again.", false)
		}
		return
	}

	// the engine already pushed the refreshed tally to the poll message
	if added {
		h.answer(ctx, cq.Id, fmt.Sprintf("Vote added. You are backing %s.", voteWord(count)), false)
	} else {
		h.answer(ctx, cq.Id, fmt.Sprintf("Vote removed. You have %s left.", voteWord(count)), false)
	}
}

func (h *Handler) handleAvailabilityCallback(ctx context.Context, cq *models.CallbackQuery, action CallbackAction, userID string) {
	w, result, err := h.parties.SetAvailability(ctx, action.PartyID, userID, action.Category)
	if err != nil {
		if errors.Is(err, watchparty.ErrWatchpartyNotFound) {
			h.answer(ctx, cq.Id, "This watchparty no longer exists.", true)
			return
		}
		h.logger.WithError(err).Error("Failed to set availability")
		h.answer(ctx, cq.Id, "Something went wrong. Please try again.", false)
		return
	}

	if cq.Message != nil {
		h.refreshPartyMessage(ctx, cq.Message.Chat.Id, w)
	}
	if result == "" {
		h.answer(ctx, cq.Id, "Your answer has been cleared.", false)
	} else {
		h.answer(ctx, cq.Id, fmt.Sprintf("You are now marked as %s.", result), false)
	}
}

func (h *Handler) handleRecommendPageCallback(ctx context.Context, cq *models.CallbackQuery, action CallbackAction) {
	rec, err := h.parties.Recommend(ctx, action.PartyID, action.Page, watchparty.DefaultPageSize)
	if err != nil {
		if errors.Is(err, watchparty.ErrNoParticipants) {
			h.answer(ctx, cq.Id, "Nobody is available or maybe anymore.", true)
			return
		}
		h.logger.WithError(err).Error("Failed to page recommendations")
		h.answer(ctx, cq.Id, "Something went wrong. Please try again.", false)
		return
	}

	if cq.Message != nil {
		payload := render.Recommendations(rec)
		if err := h.tg.EditMessage(ctx, cq.Message.Chat.Id, cq.Message.MessageId, payload.Text, payload.Keyboard); err != nil {
			h.logger.WithError(err).Warn("Failed to update recommendations message")
		}
	}
	h.answer(ctx, cq.Id, "", false)
}

// refreshPartyMessage re-renders the watchparty display message in place.
func (h *Handler) refreshPartyMessage(ctx context.Context, chatID int, w *models.Watchparty) {
	payload := render.Watchparty(w)
	if err := h.tg.EditMessage(ctx, chatID, w.ID, payload.Text, payload.Keyboard); err != nil {
		h.logger.WithError(err).Warn("Failed to update watchparty message")
	}
}

func (h *Handler) answer(ctx context.Context, callbackQueryID, text string, showAlert bool) {
	if err := h.tg.AnswerCallback(ctx, callbackQueryID, text, showAlert); err != nil {
		h.logger.WithError(err).Error("Failed to answer callback query")
	}
}
