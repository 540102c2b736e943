package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"reelpick/internal/models"
)

const watchpartyColumns = `message_id, channel_id, party_date, organizer, is_open, available, unavailable, maybe, created_at, updated_at`

func (s *Store) CreateWatchparty(ctx context.Context, w *models.Watchparty) error {
	query := `
	INSERT INTO watchparties (` + watchpartyColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.Exec(ctx, query,
		w.ID, w.ChannelID, w.Date, w.Organizer, w.IsOpen,
		w.Available, w.Unavailable, w.Maybe, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create watchparty: %w", err)
	}
	return nil
}

func (s *Store) GetWatchparty(ctx context.Context, id int) (*models.Watchparty, error) {
	query := `SELECT ` + watchpartyColumns + ` FROM watchparties WHERE message_id = $1`
	return s.scanWatchparty(s.db.QueryRow(ctx, query, id))
}

// GetOpenWatchpartyByChannel returns the channel's open watchparty, or
// ErrNotFound. The schema allows at most one.
func (s *Store) GetOpenWatchpartyByChannel(ctx context.Context, channelID string) (*models.Watchparty, error) {
	query := `SELECT ` + watchpartyColumns + ` FROM watchparties WHERE channel_id = $1 AND is_open ORDER BY created_at DESC LIMIT 1`
	return s.scanWatchparty(s.db.QueryRow(ctx, query, channelID))
}

// GetLatestWatchpartyByChannel returns the most recent watchparty in the
// channel, open or closed.
func (s *Store) GetLatestWatchpartyByChannel(ctx context.Context, channelID string) (*models.Watchparty, error) {
	query := `SELECT ` + watchpartyColumns + ` FROM watchparties WHERE channel_id = $1 ORDER BY created_at DESC LIMIT 1`
	return s.scanWatchparty(s.db.QueryRow(ctx, query, channelID))
}

// UpdateWatchparty writes the full record back. Last writer wins; the
// engine is the only writer in practice.
func (s *Store) UpdateWatchparty(ctx context.Context, w *models.Watchparty) error {
	query := `
	UPDATE watchparties
	SET party_date = $2, is_open = $3, available = $4, unavailable = $5, maybe = $6, updated_at = $7
	WHERE message_id = $1
	`
	tag, err := s.db.Exec(ctx, query,
		w.ID, w.Date, w.IsOpen, w.Available, w.Unavailable, w.Maybe, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update watchparty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteWatchparty(ctx context.Context, id int) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM watchparties WHERE message_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watchparty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanWatchparty(row pgx.Row) (*models.Watchparty, error) {
	var w models.Watchparty
	err := row.Scan(&w.ID, &w.ChannelID, &w.Date, &w.Organizer, &w.IsOpen,
		&w.Available, &w.Unavailable, &w.Maybe, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan watchparty: %w", err)
	}
	return &w, nil
}
