package models

import "time"

type AvailabilityCategory string

const (
	CategoryAvailable   AvailabilityCategory = "available"
	CategoryUnavailable AvailabilityCategory = "unavailable"
	CategoryMaybe       AvailabilityCategory = "maybe"
)

// ValidCategory reports whether s names one of the three availability sets.
func ValidCategory(s string) bool {
	switch AvailabilityCategory(s) {
	case CategoryAvailable, CategoryUnavailable, CategoryMaybe:
		return true
	}
	return false
}

// Watchparty is a durable coordination record for a proposed viewing date.
// It is keyed by the id of the message that displays it. A user appears in
// at most one of the three participant sets at any time.
type Watchparty struct {
	ID          int       `json:"id" db:"message_id"`
	ChannelID   string    `json:"channel_id" db:"channel_id"`
	Date        string    `json:"date" db:"party_date"`
	Organizer   string    `json:"organizer" db:"organizer"`
	IsOpen      bool      `json:"is_open" db:"is_open"`
	Available   []string  `json:"available" db:"available"`
	Unavailable []string  `json:"unavailable" db:"unavailable"`
	Maybe       []string  `json:"maybe" db:"maybe"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryOf returns the set currently holding userID, if any.
func (w *Watchparty) CategoryOf(userID string) (AvailabilityCategory, bool) {
	for _, u := range w.Available {
		if u == userID {
			return CategoryAvailable, true
		}
	}
	for _, u := range w.Unavailable {
		if u == userID {
			return CategoryUnavailable, true
		}
	}
	for _, u := range w.Maybe {
		if u == userID {
			return CategoryMaybe, true
		}
	}
	return "", false
}

// RemoveParticipant drops userID from whichever set holds them.
func (w *Watchparty) RemoveParticipant(userID string) {
	w.Available = removeString(w.Available, userID)
	w.Unavailable = removeString(w.Unavailable, userID)
	w.Maybe = removeString(w.Maybe, userID)
}

// AddParticipant inserts userID into the given set. The caller is expected
// to have removed the user from the other sets first.
func (w *Watchparty) AddParticipant(userID string, c AvailabilityCategory) {
	switch c {
	case CategoryAvailable:
		w.Available = append(w.Available, userID)
	case CategoryUnavailable:
		w.Unavailable = append(w.Unavailable, userID)
	case CategoryMaybe:
		w.Maybe = append(w.Maybe, userID)
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
