package container

import (
	"net/http"

	"msgcounter/internal/config"
	"msgcounter/internal/handler"
	"msgcounter/internal/platform/discord"
	"msgcounter/internal/repository"
	"msgcounter/internal/service"
	"msgcounter/internal/store"
	"msgcounter/pkg/logger"
	"msgcounter/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Store       *store.CounterStore
	Repository  repository.CountsRepository
	Snapshots   service.SnapshotService
	Leaderboard service.LeaderboardService
	Messages    *handler.MessageHandler
	Bot         *discord.Bot
	Router      http.Handler // nil when the ops API is disabled
}

// New creates a new dependency injection container. Nothing here opens the
// gateway or touches the snapshot files.
func New(cfg *config.Config, logger *logger.Logger) (*Container, error) {
	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding with files only")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding with files only")
	}

	counterStore := store.NewCounterStore(cfg.Cooldown)

	paths := repository.ResolveFilePaths(cfg.DataDir, cfg.CountsFile, cfg.BackupFile, cfg.DelayedFile)
	repo := repository.NewFileRepository(paths, logger)
	if redisClient != nil {
		repo = repository.NewMultiRepository(repo, logger, repository.NewRedisRepository(redisClient, counterStore.Cooldown(), logger))
	}

	session, err := discord.NewSession(cfg.DiscordToken, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	snapshots := service.NewSnapshotService(counterStore, repo, logger, cfg.SaveInterval)
	resolver := service.NewCachedResolver(discord.NewResolver(session), redisClient, cfg.NameCacheTTL, logger)
	leaderboard := service.NewLeaderboardService(counterStore, resolver, cfg.LookupTimeout, logger)

	router := handler.NewCommandRouter(cfg.CommandPrefix, cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit, leaderboard, logger)
	messages := handler.NewMessageHandler(counterStore, router, logger)
	bot := discord.NewBot(session, messages, logger)

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		RedisClient: redisClient,
		Store:       counterStore,
		Repository:  repo,
		Snapshots:   snapshots,
		Leaderboard: leaderboard,
		Messages:    messages,
		Bot:         bot,
	}

	if cfg.HTTPPort != "" {
		var pinger handler.Pinger
		if redisClient != nil {
			pinger = redisClient
		}
		c.Router = handler.NewRouter(
			handler.NewHealthHandler(counterStore, repo.Name(), pinger, logger),
			handler.NewCountsHandler(leaderboard, cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit, logger),
			logger,
		)
	}

	return c, nil
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasOpsAPI returns true if the ops HTTP API is configured
func (c *Container) HasOpsAPI() bool {
	return c.Router != nil
}
