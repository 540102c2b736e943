package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"reelpick/internal/bot"
	"reelpick/internal/clock"
	"reelpick/internal/config"
	"reelpick/internal/database"
	"reelpick/internal/logger"
	"reelpick/internal/poll"
	"reelpick/internal/services"
	"reelpick/internal/store"
	"reelpick/internal/watchparty"
)

// Container owns every long-lived dependency, including the poll
// registry, so nothing hangs off package-level globals.
type Container struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Logger    *logrus.Logger
	Store     *store.Store
	Polls     *poll.Engine
	Parties   *watchparty.Engine
	Watchlist *services.WatchlistService
	Users     *services.UserService
	Telegram  *services.TelegramClient
	Bot       *bot.Handler
}

func New(ctx context.Context, botToken string) (*Container, error) {
	// Initialize logger first
	log := logger.Get()

	// Initialize database
	db, err := database.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Initialize Redis
	redisClient, err := newRedis(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	st := store.New(db, log)
	tg := services.NewTelegramClient(botToken, log)
	watchlist := services.NewWatchlistService(st, redisClient, log)
	users := services.NewUserService(db, log)

	publisher := bot.NewPollPublisher(tg, log)
	polls := poll.NewEngine(
		poll.NewRegistry(),
		clock.System(),
		clock.NewScheduler(),
		publisher,
		config.AdminIDs(),
		log,
	)
	parties := watchparty.NewEngine(st, clock.System(), log)

	return &Container{
		DB:        db,
		Redis:     redisClient,
		Logger:    log,
		Store:     st,
		Polls:     polls,
		Parties:   parties,
		Watchlist: watchlist,
		Users:     users,
		Telegram:  tg,
		Bot:       bot.NewHandler(polls, parties, watchlist, users, tg, log),
	}, nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}

func newRedis(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Redis connection successful")
	return client, nil
}
