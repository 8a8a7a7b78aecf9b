package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"msgcounter/internal/config"
	"msgcounter/internal/container"
	"msgcounter/internal/platform/discord"
	"msgcounter/internal/service"
	"msgcounter/pkg/logger"
	"msgcounter/pkg/redis"
	"msgcounter/pkg/server"
)

const developerPortal = "https://discord.com/developers/applications"

// Resources holds all resources that need cleanup
type Resources struct {
	bot         *discord.Bot
	snapshots   service.SnapshotService
	redisClient *redis.Client
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup disconnects from the gateway, saves a final snapshot and closes
// Redis. Only the first call does any work.
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Stop ingesting before the final save
	if r.bot != nil {
		if err := r.bot.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gateway close: %w", err))
		}
	}

	if r.snapshots != nil {
		r.log.Info("Saving all data...")
		if err := r.snapshots.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to save final snapshot")
			errs = append(errs, fmt.Errorf("snapshot service shutdown: %w", err))
		} else {
			r.log.Info("Data saved")
		}
	}

	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if len(errs) > 0 {
		r.log.WithField("error_count", len(errs)).Error("Cleanup completed with errors")
		return errors.Join(errs...)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		printConfigGuidance(err)
		return 1
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, logger.ForEnvironment(cfg.Environment))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	log.WithFields(map[string]interface{}{
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"data_dir":      cfg.DataDir,
		"cooldown":      cfg.Cooldown.String(),
		"save_interval": cfg.SaveInterval.String(),
	}).Info("Starting msgcounter bot")

	// Create dependency injection container
	c, err := container.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to create container")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resources := &Resources{
		snapshots:   c.Snapshots,
		redisClient: c.RedisClient,
		log:         log,
	}

	// Cleanup runs however the program exits, including on panic
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", fmt.Sprint(rec)).Error("Recovered from panic, shutting down")
			exitCode = 1
		}

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
			exitCode = 1
		}
	}()

	// Restore counters before the gateway delivers any message
	if err := c.Snapshots.Restore(ctx); err != nil {
		log.WithError(err).Error("Failed to restore counters")
		return 1
	}

	if err := c.Bot.Open(ctx); err != nil {
		printConnectGuidance(err)
		log.WithError(err).Error("Failed to connect to Discord")
		return 1
	}
	resources.bot = c.Bot

	// The save timer only runs once the gateway is up
	if err := c.Snapshots.Start(ctx); err != nil {
		log.WithError(err).Error("Failed to start snapshot service")
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)

	if c.HasOpsAPI() {
		srv := server.New(cfg.HTTPPort, c.Router)
		g.Go(func() error {
			if err := server.Run(gctx, srv, server.DefaultShutdownTimeout, log.Named("ops_server")); err != nil {
				return fmt.Errorf("ops server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info("Received shutdown signal")
		}
		return nil
	})

	log.Info("Bot is running, press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Shutting down after failure")
		exitCode = 1
	}

	return exitCode
}

func printConfigGuidance(err error) {
	fmt.Fprintf(os.Stderr, "\nERROR: %v\n", err)
	fmt.Fprintln(os.Stderr, "Make sure your .env file exists and contains 'DISCORD_SECRET=YOUR_BOT_TOKEN'.")
	fmt.Fprintf(os.Stderr, "Go to %s, select your bot, and copy its token.\n", developerPortal)
	fmt.Fprintln(os.Stderr, "Also enable 'Message Content Intent' and 'Server Members Intent' under the 'Bot' tab.")
}

func printConnectGuidance(err error) {
	switch {
	case errors.Is(err, discord.ErrInvalidToken):
		fmt.Fprintln(os.Stderr, "\nERROR: Invalid bot token. Check DISCORD_SECRET in your .env file. It may be old or incorrect.")
	case errors.Is(err, discord.ErrMissingIntents):
		fmt.Fprintf(os.Stderr, "\nERROR: Privileged intents are not enabled. Go to %s,\n", developerPortal)
		fmt.Fprintln(os.Stderr, "select your bot, open the 'Bot' tab, and enable 'Message Content Intent' and 'Server Members Intent'.")
	default:
		fmt.Fprintf(os.Stderr, "\nERROR: Could not connect to Discord: %v\n", err)
	}
}
