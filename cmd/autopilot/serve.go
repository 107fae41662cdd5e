package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jonathan/apply-autopilot/internal/automation"
	"github.com/jonathan/apply-autopilot/internal/config"
	"github.com/jonathan/apply-autopilot/internal/db"
	"github.com/jonathan/apply-autopilot/internal/scheduler"
	"github.com/jonathan/apply-autopilot/internal/server"
	"github.com/jonathan/apply-autopilot/internal/session"
)

var servePort int

// sessionTTL bounds how long Redis keeps an unused platform session.
const sessionTTL = 14 * 24 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that accepts automation runs and exposes their progress.

Settings come from the environment (JWT_SECRET is required). DATABASE_URL
enables PostgreSQL storage, REDIS_URL enables event publishing and shared
sessions, and SCRAPE_SCHEDULE enables periodic scraping.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store db.Store = db.NewMemoryStore()
		ping  func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		store, ping = database, database.Ping
	} else {
		logger.Warn().Msg("DATABASE_URL not set, listings are kept in memory")
	}

	opts := automation.Options{Store: store, Logger: logger, Retention: cfg.TaskRetention}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		opts.Publisher = db.NewRedisPublisher(rdb)
	}

	var blobs session.Blobs
	if rdb != nil {
		blobs = session.NewRedisStore(rdb, sessionTTL)
	}
	registry, err := newRegistry(&cfg.Browser, blobs, logger)
	if err != nil {
		return err
	}

	orch := automation.New(registry, opts)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := orch.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("workers did not stop in time")
		}
	}()

	sched := scheduler.New(orch, scheduler.Config{
		Spec:      cfg.ScrapeSchedule,
		Platforms: cfg.ScrapePlatforms,
		Keywords:  cfg.ScrapeKeywords,
		Pages:     cfg.ScrapePages,
		Sweep:     cfg.TaskRetention > 0,
	}, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	srv, err := server.New(server.Config{
		Port:         cfg.Port,
		Orchestrator: orch,
		Store:        store,
		JWT:          cfg.JWT,
		Logger:       logger,
		Ping:         ping,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
