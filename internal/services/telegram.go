package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"reelpick/internal/models"
)

const (
	telegramAPIURL  = "https://api.telegram.org/bot"
	telegramTimeout = 30 * time.Second

	// Telegram allows roughly 30 messages per second per bot; stay under it.
	sendRate  = 25
	sendBurst = 5

	maxResponseSize = 1 << 20
)

// TelegramClient talks to the Telegram Bot API. All outbound calls go
// through a shared rate limiter so a busy poll refresh cannot get the bot
// throttled.
type TelegramClient struct {
	botToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewTelegramClient(botToken string, logger *logrus.Logger) *TelegramClient {
	return &TelegramClient{
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: telegramTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		logger:  logger,
	}
}

// SendMessage posts an HTML message, optionally with an inline keyboard,
// and returns the id of the created message.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int, text string, keyboard *models.InlineKeyboardMarkup) (int, error) {
	body, err := c.call(ctx, "sendMessage", models.TelegramResponse{
		ChatId:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return 0, err
	}

	var result struct {
		Ok     bool `json:"ok"`
		Result struct {
			MessageId int `json:"message_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to decode sendMessage response: %w", err)
	}
	return result.Result.MessageId, nil
}

// EditMessage replaces the text and keyboard of an existing message.
func (c *TelegramClient) EditMessage(ctx context.Context, chatID, messageID int, text string, keyboard *models.InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	_, err := c.call(ctx, "editMessageText", payload)
	return err
}

func (c *TelegramClient) DeleteMessage(ctx context.Context, chatID, messageID int) error {
	_, err := c.call(ctx, "deleteMessage", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	})
	return err
}

// AnswerCallback acknowledges a button press, optionally popping up an
// alert with the given text.
func (c *TelegramClient) AnswerCallback(ctx context.Context, callbackQueryID, text string, showAlert bool) error {
	_, err := c.call(ctx, "answerCallbackQuery", models.AnswerCallbackQuery{
		CallbackQueryId: callbackQueryID,
		Text:            text,
		ShowAlert:       showAlert,
	})
	return err
}

// SetCommands registers the command menu shown by the chat client.
func (c *TelegramClient) SetCommands(ctx context.Context) error {
	commands := []models.BotCommandMenu{
		{Command: "addmovie", Description: "➕ Add a movie to the watchlist"},
		{Command: "removemovie", Description: "🗑 Remove a movie"},
		{Command: "watched", Description: "✅ Toggle a movie's watched flag"},
		{Command: "rate", Description: "⭐ Rate your desire to watch a movie (0-5)"},
		{Command: "list", Description: "📋 Show the watchlist"},
		{Command: "pickfilms", Description: "🗳 Start a timed movie poll"},
		{Command: "endpoll", Description: "🏁 End the channel's poll early"},
		{Command: "unvote", Description: "↩️ Remove all your poll votes"},
		{Command: "watchparty", Description: "🍿 Plan a watchparty"},
		{Command: "finalize", Description: "🔒 Finalize the watchparty"},
		{Command: "reopen", Description: "🔓 Reopen a finalized watchparty"},
		{Command: "cancelparty", Description: "❌ Delete the watchparty"},
		{Command: "recommend", Description: "🎯 Recommend movies for the watchparty"},
		{Command: "help", Description: "❓ Show help"},
	}
	_, err := c.call(ctx, "setMyCommands", map[string]interface{}{"commands": commands})
	return err
}

func (c *TelegramClient) call(ctx context.Context, method string, payload interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s%s/%s", telegramAPIURL, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"status": resp.StatusCode,
		}).Warn("Telegram API call failed")
		return nil, fmt.Errorf("telegram %s API error (status %d)", method, resp.StatusCode)
	}

	return body, nil
}

// ParseTelegramRequest parses an incoming Telegram webhook HTTP request
// and returns the decoded Update object.
func ParseTelegramRequest(r *http.Request) (*models.Update, error) {
	var update models.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		return nil, err
	}
	return &update, nil
}
