// Package store is the pgx-backed persistence layer for movies, desire
// ratings and watchparties.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	db     *pgxpool.Pool
	logger *logrus.Logger
}

func New(db *pgxpool.Pool, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}
