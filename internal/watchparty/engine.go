// Package watchparty manages availability polling for scheduled watch
// sessions and the recommendation ranking derived from participants'
// desire ratings.
package watchparty

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"reelpick/internal/clock"
	"reelpick/internal/models"
	"reelpick/internal/store"
)

var (
	ErrWatchpartyAlreadyOpen = errors.New("an open watchparty already exists in this channel")
	ErrWatchpartyNotFound    = errors.New("watchparty not found")
	ErrNotAuthorized         = errors.New("only the organizer can do that")
	ErrAlreadyOpen           = errors.New("the watchparty is already open")
	ErrAnotherPartyOpen      = errors.New("another watchparty is open in this channel")
	ErrBadCategory           = errors.New("unknown availability category")
	ErrNoParticipants        = errors.New("no participants are available yet")
)

// Store is the narrow persistence surface the engine needs.
type Store interface {
	GetWatchparty(ctx context.Context, id int) (*models.Watchparty, error)
	GetOpenWatchpartyByChannel(ctx context.Context, channelID string) (*models.Watchparty, error)
	GetLatestWatchpartyByChannel(ctx context.Context, channelID string) (*models.Watchparty, error)
	CreateWatchparty(ctx context.Context, w *models.Watchparty) error
	UpdateWatchparty(ctx context.Context, w *models.Watchparty) error
	DeleteWatchparty(ctx context.Context, id int) error
	ListUnwatchedMovies(ctx context.Context) ([]models.Movie, error)
	ListDesireRatingsForUsers(ctx context.Context, userIDs []string) ([]models.DesireRating, error)
}

type Engine struct {
	store  Store
	clock  clock.Clock
	logger *logrus.Logger
}

func NewEngine(st Store, clk clock.Clock, logger *logrus.Logger) *Engine {
	return &Engine{store: st, clock: clk, logger: logger}
}

// Create validates that the channel has no open watchparty and returns
// the new record. The record is keyed by its display-message id, so it is
// only persisted by Register once that message exists.
func (e *Engine) Create(ctx context.Context, channelID, date, organizerID string) (*models.Watchparty, error) {
	_, err := e.store.GetOpenWatchpartyByChannel(ctx, channelID)
	switch {
	case err == nil:
		return nil, ErrWatchpartyAlreadyOpen
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check for open watchparty: %w", err)
	}

	now := e.clock.Now()
	return &models.Watchparty{
		ChannelID:   channelID,
		Date:        date,
		Organizer:   organizerID,
		IsOpen:      true,
		Available:   []string{},
		Unavailable: []string{},
		Maybe:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Register persists a watchparty under its display-message id.
func (e *Engine) Register(ctx context.Context, w *models.Watchparty, messageID int) error {
	w.ID = messageID
	if err := e.store.CreateWatchparty(ctx, w); err != nil {
		return err
	}
	e.logger.WithFields(logrus.Fields{
		"watchparty_id": w.ID,
		"channel":       w.ChannelID,
		"organizer":     w.Organizer,
	}).Info("Watchparty created")
	return nil
}

// SetAvailability toggles the user's membership: a vote for the category
// they are already in removes them entirely, any other vote moves them
// into exactly that category. Votes are accepted even on a closed party.
// Returns the updated record and the user's resulting category ("" when
// the toggle removed them).
func (e *Engine) SetAvailability(ctx context.Context, partyID int, userID string, category models.AvailabilityCategory) (*models.Watchparty, models.AvailabilityCategory, error) {
	if !models.ValidCategory(string(category)) {
		return nil, "", ErrBadCategory
	}
	w, err := e.get(ctx, partyID)
	if err != nil {
		return nil, "", err
	}

	current, has := w.CategoryOf(userID)
	w.RemoveParticipant(userID)
	var result models.AvailabilityCategory
	if !has || current != category {
		w.AddParticipant(userID, category)
		result = category
	}
	w.UpdatedAt = e.clock.Now()

	if err := e.store.UpdateWatchparty(ctx, w); err != nil {
		return nil, "", fmt.Errorf("failed to save availability: %w", err)
	}
	return w, result, nil
}

// Finalize closes the availability poll. Organizer only.
func (e *Engine) Finalize(ctx context.Context, partyID int, requesterID string) (*models.Watchparty, error) {
	w, err := e.get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if w.Organizer != requesterID {
		return nil, ErrNotAuthorized
	}
	w.IsOpen = false
	w.UpdatedAt = e.clock.Now()
	if err := e.store.UpdateWatchparty(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to finalize watchparty: %w", err)
	}
	return w, nil
}

// Reopen brings a finalized watchparty back, provided no other open
// watchparty occupies the channel. Organizer only.
func (e *Engine) Reopen(ctx context.Context, partyID int, requesterID string) (*models.Watchparty, error) {
	w, err := e.get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if w.Organizer != requesterID {
		return nil, ErrNotAuthorized
	}
	if w.IsOpen {
		return nil, ErrAlreadyOpen
	}
	other, err := e.store.GetOpenWatchpartyByChannel(ctx, w.ChannelID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for open watchparty: %w", err)
	}
	if other != nil && other.ID != w.ID {
		return nil, ErrAnotherPartyOpen
	}
	w.IsOpen = true
	w.UpdatedAt = e.clock.Now()
	if err := e.store.UpdateWatchparty(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to reopen watchparty: %w", err)
	}
	return w, nil
}

// Delete hard-deletes the record. Organizer only, not reversible.
func (e *Engine) Delete(ctx context.Context, partyID int, requesterID string) error {
	w, err := e.get(ctx, partyID)
	if err != nil {
		return err
	}
	if w.Organizer != requesterID {
		return ErrNotAuthorized
	}
	if err := e.store.DeleteWatchparty(ctx, partyID); err != nil {
		return fmt.Errorf("failed to delete watchparty: %w", err)
	}
	e.logger.WithField("watchparty_id", partyID).Info("Watchparty deleted")
	return nil
}

// OpenByChannel returns the channel's open watchparty.
func (e *Engine) OpenByChannel(ctx context.Context, channelID string) (*models.Watchparty, error) {
	w, err := e.store.GetOpenWatchpartyByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWatchpartyNotFound
		}
		return nil, fmt.Errorf("failed to look up watchparty: %w", err)
	}
	return w, nil
}

// LatestByChannel returns the channel's most recent watchparty, open or
// closed.
func (e *Engine) LatestByChannel(ctx context.Context, channelID string) (*models.Watchparty, error) {
	w, err := e.store.GetLatestWatchpartyByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWatchpartyNotFound
		}
		return nil, fmt.Errorf("failed to look up watchparty: %w", err)
	}
	return w, nil
}

func (e *Engine) get(ctx context.Context, partyID int) (*models.Watchparty, error) {
	w, err := e.store.GetWatchparty(ctx, partyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWatchpartyNotFound
		}
		return nil, fmt.Errorf("failed to load watchparty: %w", err)
	}
	return w, nil
}
