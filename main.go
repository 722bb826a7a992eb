package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-ratings/internal/config"
	"github.com/mauv0809/pickup-ratings/internal/database"
	server "github.com/mauv0809/pickup-ratings/internal/http"
	"github.com/mauv0809/pickup-ratings/internal/metrics"
	"github.com/mauv0809/pickup-ratings/internal/notifier/slack"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/processor"
	"github.com/mauv0809/pickup-ratings/internal/pubsub"
	"github.com/mauv0809/pickup-ratings/internal/rating"
	"github.com/mauv0809/pickup-ratings/internal/skill"
	"github.com/redis/go-redis/v9"
)

const redisLockTTL = 30 * time.Second

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	store := pickup.New(db,
		pickup.WithCommitTimeout(cfg.Rating.CommitTimeout),
		pickup.WithCommitRetries(cfg.Rating.CommitRetries),
	)
	model, err := skill.New(cfg.Rating)
	if err != nil {
		log.Fatalf("Failed to initialize skill model: %s", err)
	}
	log.Info("Using skill model", "model", model.Name())

	var locker rating.Locker = rating.NewLocalLocker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %s", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		locker = rating.NewRedisLocker(redisClient, redisLockTTL)
		log.Info("Using Redis scope lock", "addr", opts.Addr)
	}

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	var ps pubsub.PubSubClient
	if cfg.ProjectID != "" {
		ps = pubsub.New(cfg.ProjectID)
		defer ps.Close()
	} else {
		log.Warn("GCP_PROJECT not set, ratings-updated events will not be published")
	}
	if cfg.Slack.Token == "" {
		log.Warn("SLACK_BOT_TOKEN not set, rating notifications will fail unless dry_run is used")
	}
	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)
	processor := processor.New(notifier, ps)
	ratings := rating.NewService(store, model, locker, metricsSvc, ps, cfg.Rating)

	s := server.NewServer(
		store,
		ratings,
		metricsSvc,
		metricsHandler,
		cfg,
		processor,
	)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// In-flight rate/unrate calls finish their commit before the server returns.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
