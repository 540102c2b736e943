package bot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reelpick/internal/models"
	"reelpick/internal/render"
)

type CallbackKind int

const (
	CallbackUnknown CallbackKind = iota
	CallbackVote
	CallbackAvailability
	CallbackRecommendPage
)

// CallbackAction is a button press decoded into a typed action. The raw
// callback-data string is parsed exactly once, here; handlers never
// re-inspect it.
type CallbackAction struct {
	Kind       CallbackKind
	PollID     uuid.UUID
	MovieIndex int
	PartyID    int
	Category   models.AvailabilityCategory
	Page       int
}

var ErrUnknownCallback = errors.New("unknown callback action")

func ParseCallback(data string) (CallbackAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return CallbackAction{}, ErrUnknownCallback
	}

	switch parts[0] {
	case render.CallbackVote:
		pollID, err := uuid.Parse(parts[1])
		if err != nil {
			return CallbackAction{}, ErrUnknownCallback
		}
		idx, err := strconv.Atoi(parts[2])
		if err != nil {
			return CallbackAction{}, ErrUnknownCallback
		}
		return CallbackAction{Kind: CallbackVote, PollID: pollID, MovieIndex: idx}, nil

	case render.CallbackParty:
		partyID, err := strconv.Atoi(parts[1])
		if err != nil || !models.ValidCategory(parts[2]) {
			return CallbackAction{}, ErrUnknownCallback
		}
		return CallbackAction{
			Kind:     CallbackAvailability,
			PartyID:  partyID,
			Category: models.AvailabilityCategory(parts[2]),
		}, nil

	case render.CallbackRecommend:
		partyID, err := strconv.Atoi(parts[1])
		if err != nil {
			return CallbackAction{}, ErrUnknownCallback
		}
		page, err := strconv.Atoi(parts[2])
		if err != nil {
			return CallbackAction{}, ErrUnknownCallback
		}
		return CallbackAction{Kind: CallbackRecommendPage, PartyID: partyID, Page: page}, nil
	}

	return CallbackAction{}, ErrUnknownCallback
}
