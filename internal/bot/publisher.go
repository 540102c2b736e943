package bot

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"reelpick/internal/poll"
	"reelpick/internal/render"
	"reelpick/internal/services"
)

const publishTimeout = 10 * time.Second

// PollPublisher pushes poll state to the chat: it edits the live poll
// message on refresh and replaces it with a results message on close.
// Timer callbacks call into it, so every method carries its own timeout.
type PollPublisher struct {
	tg     *services.TelegramClient
	logger *logrus.Logger
}

func NewPollPublisher(tg *services.TelegramClient, logger *logrus.Logger) *PollPublisher {
	return &PollPublisher{tg: tg, logger: logger}
}

func (p *PollPublisher) PublishRefresh(pl *poll.Poll, messageID int, tallies []poll.TallyEntry) {
	if messageID == 0 {
		// display message not posted yet
		return
	}
	chatID, err := strconv.Atoi(pl.ChannelID)
	if err != nil {
		p.logger.WithField("channel", pl.ChannelID).Error("Invalid channel id on poll")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	payload := render.Poll(pl, tallies)
	if err := p.tg.EditMessage(ctx, chatID, messageID, payload.Text, payload.Keyboard); err != nil {
		p.logger.WithError(err).Warn("Failed to refresh poll message")
	}
}

func (p *PollPublisher) PublishResult(pl *poll.Poll, messageID int, res poll.Result) {
	chatID, err := strconv.Atoi(pl.ChannelID)
	if err != nil {
		p.logger.WithField("channel", pl.ChannelID).Error("Invalid channel id on poll")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if messageID != 0 {
		if err := p.tg.DeleteMessage(ctx, chatID, messageID); err != nil {
			p.logger.WithError(err).Warn("Failed to delete live poll message")
		}
	}

	payload := render.PollResult(res)
	if _, err := p.tg.SendMessage(ctx, chatID, payload.Text, payload.Keyboard); err != nil {
		p.logger.WithError(err).Error("Failed to post poll results")
	}
}
