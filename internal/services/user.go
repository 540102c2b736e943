package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type UserService struct {
	db     *pgxpool.Pool
	logger *logrus.Logger
}

func NewUserService(db *pgxpool.Pool, logger *logrus.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

// EnsureUserExists creates the user on first contact and keeps the stored
// username current afterwards.
func (s *UserService) EnsureUserExists(ctx context.Context, userID, username string) error {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if user exists: %w", err)
	}

	now := time.Now()

	if !exists {
		insertQuery := `
		INSERT INTO users (id, username, platform, created_at, updated_at)
		VALUES ($1, $2, 'telegram', $3, $3)
		`
		_, err := s.db.Exec(ctx, insertQuery, userID, username, now)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"username": username,
		}).Info("A user has been created...")
		return nil
	}

	updateQuery := `
	UPDATE users
	SET username = $2, updated_at = $3
	WHERE id = $1 AND (username IS NULL OR username != $2)
	`
	_, err = s.db.Exec(ctx, updateQuery, userID, username, now)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
