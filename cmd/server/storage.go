package main

import (
	"context"
	"fmt"

	"stockflow/internal/config"
	"stockflow/internal/core/numerator"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/workflow"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/storage/memory"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/catalog_repo"
	"stockflow/internal/infrastructure/storage/postgres/ledger_repo"
	"stockflow/internal/infrastructure/storage/postgres/workflow_repo"
	"stockflow/pkg/logger"
	pgnumerator "stockflow/pkg/numerator"
)

// storage bundles the repositories of the selected driver.
type storage struct {
	accounts  ledger.Repository
	tickets   workflow.Repository
	items     catalog.Store
	txManager tx.Manager
	numbers   numerator.Generator

	// outbox is set for the postgres driver only.
	outbox *postgres.OutboxSink

	checks []handlers.HealthCheck
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		return openPostgres(ctx, cfg, log)
	default:
		store := memory.NewStore()
		log.Warn("using in-memory storage; data is lost on restart")
		return &storage{
			accounts:  store.Accounts(),
			tickets:   store.Tickets(),
			items:     catalog.NewStatic(),
			txManager: store,
			numbers:   numerator.NewMemoryGenerator(),
			close:     func() {},
		}, nil
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN,
		postgres.WithConns(cfg.Database.MaxConns, cfg.Database.MinConns))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	txm := postgres.NewTxManager(pool)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, txm); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("database schema is up to date")
	}

	notes, err := postgres.NewNoteCodec(cfg.Database.NoteCompress)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		accounts:  ledger_repo.NewAccountRepo(txm),
		tickets:   workflow_repo.NewTicketRepo(txm, notes),
		items:     catalog_repo.NewItemRepo(txm),
		txManager: txm,
		numbers:   pgnumerator.New(pool.Pool),
		outbox:    postgres.NewOutboxSink(txm),
		checks: []handlers.HealthCheck{
			{Name: "postgres", Ping: pool.Ping},
		},
		close: func() {
			notes.Close()
			pool.Close()
		},
	}, nil
}
