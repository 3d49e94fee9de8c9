// Package main is the entry point for the stockflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/config"
	"stockflow/internal/domain/auth"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/notify"
	"stockflow/internal/domain/workflow"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/redisstore"
	"stockflow/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Process:     "server",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting stockflow server", "version", version, "env", cfg.Env, "storage", cfg.Storage.Driver)

	// --- Storage ---
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer store.close()

	// --- Redis (optional) ---
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = rdb.Close() }()
		store.checks = append(store.checks, handlers.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Infow("redis connection established", "addr", cfg.Redis.Addr)
	}

	// --- Notifications ---
	notifier, err := setupNotifier(cfg, log, store, rdb)
	if err != nil {
		log.Fatalw("failed to configure notifications", "error", err)
	}

	// --- Ledger and workflow engine ---
	maxLevel, _ := cfg.Ledger.MaxLevel()
	ledgerService := ledger.NewService(store.accounts, store.items, store.txManager, ledger.Config{
		PlaceholderMaxLevel: maxLevel,
		BulkConcurrency:     cfg.Ledger.BulkConcurrency,
	})

	deps := workflow.Deps{
		Repo:      store.tickets,
		Ledger:    ledgerService,
		Catalog:   store.items,
		TxManager: store.txManager,
		Notifier:  notifier,
		Numbers:   store.numbers,
	}
	if rdb != nil {
		lockCfg := redisstore.DefaultLockerConfig()
		lockCfg.TTL = cfg.Redis.LockTTL
		lockCfg.Wait = cfg.Redis.LockWait
		deps.Locker = redisstore.NewLocker(rdb, lockCfg)
	}
	engine := workflow.NewEngine(deps)

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:       log,
		Debug:        cfg.Log.Development,
		Ledger:       ledgerService,
		Engine:       engine,
		Items:        store.items,
		TxManager:    store.txManager,
		Notifier:     notifier,
		Enums:        setupMetadataRegistry(engine),
		HealthChecks: store.checks,
		Info: map[string]any{
			"service": "stockflow",
			"version": version,
			"env":     cfg.Env,
			"storage": cfg.Storage.Driver,
		},
	}
	if !cfg.Auth.Disabled {
		routerCfg.TokenValidator = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		log.Warn("authentication is disabled; the actor is taken from X-Actor-ID")
	}
	if rdb != nil {
		routerCfg.Idempotency = redisstore.NewIdempotencyStore(rdb, cfg.HTTP.IdempotencyTTL)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// setupNotifier builds the status-change dispatcher. With the outbox enabled
// changes are queued in PostgreSQL and cmd/worker publishes them to Redis;
// otherwise they go to Redis directly.
func setupNotifier(cfg *config.Config, log *logger.Logger, store *storage, rdb *redis.Client) (notify.Notifier, error) {
	var filter *notify.Filter
	if cfg.Notify.Filter != "" {
		f, err := notify.NewFilter(cfg.Notify.Filter)
		if err != nil {
			return nil, err
		}
		filter = f
		log.Infow("notification filter enabled", "expr", f.String())
	}

	sinks := []notify.Sink{notify.NewLogSink(log)}
	switch {
	case cfg.Notify.Outbox && store.outbox != nil:
		sinks = append(sinks, store.outbox)
	case rdb != nil:
		sinks = append(sinks, redisstore.NewPubSubSink(rdb, ""))
	}
	return notify.NewDispatcher(filter, sinks...), nil
}
