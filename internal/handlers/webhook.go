package handlers

import (
	"context"
	"net/http"
	"time"

	"reelpick/internal/container"
	"reelpick/internal/services"
)

// WebhookHandler accepts Telegram webhook updates and dispatches each one
// on its own goroutine, so a slow handler never blocks the webhook
// endpoint past Telegram's delivery timeout.
func WebhookHandler(c *container.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		update, err := services.ParseTelegramRequest(r)
		if err != nil {
			c.Logger.WithError(err).Error("Error parsing request")
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

		go func() {
			defer cancel()
			c.Bot.ProcessUpdate(ctx, update)
		}()

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
