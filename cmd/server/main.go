package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/handler"
	"github.com/season-tracker/internal/kafka"
	"github.com/season-tracker/internal/postgres"
	"github.com/season-tracker/internal/redis"
	"github.com/season-tracker/internal/service"
	"github.com/season-tracker/internal/websocket"
	"github.com/season-tracker/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			logger.Warn("failed to apply environment overrides", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store adapter
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	st := redis.NewStore(redisClient, cfg.Season.StorePrefix, cfg.Season.StoreMaxRetries, logger)
	defer st.Close()
	logger.Info("connected to Redis", "prefix", cfg.Season.StorePrefix)

	// PostgreSQL holds recipes, the review ledger and snapshots. Without it
	// recipes live in the store and nothing is archived.
	var (
		repo    *postgres.Repository
		archive service.Archive
		recipes service.RecipeCatalog
	)
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err = postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer repo.Close()

		if err := repo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		archive = repo
		recipes = repo
		logger.Info("connected to PostgreSQL")
	}

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	seasonService := service.NewSeasonService(st, recipes, archive, &cfg.Season, logger)
	seasonService.SetNotifier(wsHub)

	var syncWorker *worker.SyncWorker
	if repo != nil {
		syncWorker = worker.NewSyncWorker(seasonService, repo, &cfg.Sync, logger)

		if err := syncWorker.RestoreTeams(ctx); err != nil {
			logger.Warn("failed to restore teams from snapshots", "error", err)
		}
		if cfg.Sync.Enabled {
			if err := syncWorker.Start(ctx); err != nil {
				logger.Error("failed to start sync worker", "error", err)
				os.Exit(1)
			}
		}
	}

	// Team records are pushed to browsers as they change
	teamSubs, err := seasonService.WatchTeams(ctx, wsHub.TeamChanged)
	if err != nil {
		logger.Error("failed to watch teams", "error", err)
		os.Exit(1)
	}

	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, seasonService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		}
	}

	httpHandler := handler.NewHandler(seasonService, wsHub, logger)
	httpHandler.AddReadinessCheck("redis", st.Ping)
	if repo != nil {
		httpHandler.AddReadinessCheck("postgres", repo.Ping)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	for _, sub := range teamSubs {
		_ = sub.Close()
	}
	wsHub.Stop()

	if syncWorker != nil {
		if err := syncWorker.Stop(); err != nil {
			logger.Error("failed to stop sync worker", "error", err)
		}
		// last snapshot so a restart restores the latest team records
		if err := syncWorker.RunOnce(shutdownCtx); err != nil {
			logger.Warn("final snapshot failed", "error", err)
		}
	}

	logger.Info("server stopped")
}
