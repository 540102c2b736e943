package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"reelpick/internal/config"
	"reelpick/internal/container"
	"reelpick/internal/handlers"
	"reelpick/internal/logger"
)

func main() {
	logger.Init()
	log := logger.Get()

	err := godotenv.Load(".env.local")
	if err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	botToken := config.BotToken()
	if botToken == "" {
		log.Fatal("BOT_TOKEN is required. Set it in .env file or as environment variable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	c, err := container.New(ctx, botToken)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer c.Close()

	if err := c.Telegram.SetCommands(context.Background()); err != nil {
		log.WithError(err).Warn("Failed to register command menu")
	}

	port := config.GetEnv("PORT", "8080")

	http.HandleFunc("/webhook", handlers.WebhookHandler(c))

	log.Infof("Bot starting on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
