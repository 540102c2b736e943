package bot

import (
	"strconv"
	"strings"

	"reelpick/internal/models"
)

// Command is a slash command parsed once at the boundary.
type Command struct {
	Name      string
	Args      []string
	UserID    string
	Username  string
	ChatID    int
	ChannelID string
}

// ParseCommand extracts a typed command from an incoming message.
// Returns false for plain text that is not addressed to the bot.
func ParseCommand(msg *models.Message) (Command, bool) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	parts := strings.Fields(text)
	name := strings.ToLower(parts[0])
	// group chats address commands as /cmd@BotName
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}

	return Command{
		Name:      name,
		Args:      parts[1:],
		UserID:    strconv.Itoa(msg.From.Id),
		Username:  msg.From.Username,
		ChatID:    msg.Chat.Id,
		ChannelID: strconv.Itoa(msg.Chat.Id),
	}, true
}
