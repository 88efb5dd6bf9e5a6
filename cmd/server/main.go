package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/broadcast"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/config"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/database"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/logging"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/persist"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/redis"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/server"
	"github.com/JAYDIPSINH27/BiasBreaker/internal/session"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, running without session cache")
		return nil
	}

	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub, pool *persist.Pool) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Producers are gone once the server is down; drain what was queued.
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer drainCancel()
		pool.Stop(drainCtx)

		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	db := setupDB(cfg)
	defer db.Close()

	redisClient := setupRedis(cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	store := database.NewSessionStore(db, clock)

	var cache session.Cache
	if redisClient != nil {
		cache = redis.NewSessionCache(redisClient.Underlying(), cfg.SessionCacheTTL)
	}
	registry := session.NewRegistry(store, cache)

	hub := broadcast.NewHub(clock, cfg.MaxSubscribers, cfg.FlushInterval)
	workers := persist.NewPool(store, registry, cfg.PersistQueueCapacity, cfg.PersistWorkers)

	// Pass nil explicitly to avoid a typed-nil interface on the health check
	var srv *server.Server
	if redisClient != nil {
		srv = server.NewServer(cfg, store, registry, hub, workers, db, redisClient, clock)
	} else {
		srv = server.NewServer(cfg, store, registry, hub, workers, db, nil, clock)
	}

	done := runGracefulShutdown(srv, hub, workers)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
