// Package main is the entry point for the stockflow background worker.
// It relays queued status changes from sys_outbox to Redis pub/sub and
// purges delivered messages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stockflow/internal/config"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/domain/notify"
	"stockflow/internal/infrastructure/redisstore"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Process:     "worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	if cfg.Storage.Driver != config.StoragePostgres {
		log.Fatalw("the worker requires the postgres storage driver", "driver", cfg.Storage.Driver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockflow worker")

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN,
		postgres.WithConns(4, 1), postgres.WithApplicationName("stockflow-worker"))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	txManager := postgres.NewTxManager(pool)

	// Without Redis the relay only logs, which keeps the outbox drained.
	var sink notify.Sink = notify.NewLogSink(log)
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = rdb.Close() }()
		sink = redisstore.NewPubSubSink(rdb, "")
	} else {
		log.Warn("STOCKFLOW_REDIS_ADDR is not set; outbox messages are only logged")
	}

	relay := postgres.NewOutboxRelay(txManager, sink, postgres.RelayConfig{
		BatchSize:  cfg.Worker.BatchSize,
		MaxRetries: cfg.Worker.MaxRetries,
		Backoff:    time.Minute,
	})
	worker := NewOutboxWorker(relay, cfg.Worker, log)
	worker.stats = pool.LogStats

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// relay is the part of postgres.OutboxRelay the worker drives.
type relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// OutboxWorker polls the outbox until its context is cancelled.
type OutboxWorker struct {
	relay           relay
	pollInterval    time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	log             *logger.Logger

	// stats is called on every cleanup tick when set.
	stats func(ctx context.Context)
}

func NewOutboxWorker(r relay, cfg config.WorkerConfig, log *logger.Logger) *OutboxWorker {
	return &OutboxWorker{
		relay:           r,
		pollInterval:    cfg.PollInterval,
		cleanupInterval: time.Hour,
		retention:       cfg.OutboxRetention,
		log:             log.WithComponent("worker"),
	}
}

// Run drains the outbox every poll interval and purges old messages hourly.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-cleanupTicker.C:
			w.purge(ctx)
			if w.stats != nil {
				w.stats(ctx)
			}
		}
	}
}

// drain processes batches until one comes back short.
func (w *OutboxWorker) drain(ctx context.Context) {
	ctx = appctx.WithTrace(ctx, appctx.NewTrace(ctx, ""))
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Errorw("outbox batch failed", "error", err)
			}
			return
		}
		if n > 0 {
			w.log.Debugw("published outbox batch", "count", n)
		}
		if n == 0 {
			return
		}
	}
}

func (w *OutboxWorker) purge(ctx context.Context) {
	n, err := w.relay.Purge(ctx, w.retention)
	if err != nil {
		w.log.Errorw("outbox purge failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}
}
