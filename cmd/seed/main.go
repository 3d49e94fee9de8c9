// Package main provides a CLI tool for seeding the database with demo items
// and stock accounts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"stockflow/internal/config"
	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/catalog_repo"
	"stockflow/internal/infrastructure/storage/postgres/ledger_repo"
	"stockflow/pkg/logger"
)

type seedConfig struct {
	DSN   string `envconfig:"DB_DSN" required:"true"`
	Actor string `envconfig:"SEED_ACTOR" default:"seed"`
}

type itemSeed struct {
	item     catalog.ItemRef
	name     string
	sku      string
	current  int64
	minAlert int64
	maxLevel int64
}

// Fixed IDs keep reruns idempotent.
var demoItems = []itemSeed{
	{material("7a1d0c43-8f0e-4a8e-9a57-0b7a0d4b1001"), "Steel sheet 2mm", "MAT-STL-2", 120, 20, 500},
	{material("7a1d0c43-8f0e-4a8e-9a57-0b7a0d4b1002"), "M6 bolt", "MAT-BLT-M6", 4000, 500, 20000},
	{material("7a1d0c43-8f0e-4a8e-9a57-0b7a0d4b1003"), "Powder coat, grey", "MAT-PWD-GRY", 8, 10, 60},
	{product("7a1d0c43-8f0e-4a8e-9a57-0b7a0d4b2001"), "Wall bracket", "PRD-BRK-01", 35, 10, 200},
	{product("7a1d0c43-8f0e-4a8e-9a57-0b7a0d4b2002"), "Shelf unit", "PRD-SHF-01", 0, 5, 50},
}

func material(s string) catalog.ItemRef {
	return catalog.ItemRef{Kind: catalog.KindMaterial, ID: id.MustParse(s)}
}

func product(s string) catalog.ItemRef {
	return catalog.ItemRef{Kind: catalog.KindProduct, ID: id.MustParse(s)}
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
		Process:     "seed",
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	var cfg seedConfig
	if err := envconfig.Process(config.Prefix, &cfg); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.DSN, postgres.WithApplicationName("stockflow-seed"))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	if err := postgres.Migrate(ctx, txManager); err != nil {
		log.Fatalw("failed to migrate", "error", err)
	}

	items := catalog_repo.NewItemRepo(txManager)
	svc := ledger.NewService(ledger_repo.NewAccountRepo(txManager), items, txManager, ledger.DefaultConfig())

	for _, s := range demoItems {
		if err := seedItem(ctx, items, svc, s, cfg.Actor); err != nil {
			log.Fatalw("failed to seed item", "sku", s.sku, "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedItem upserts the catalog entry and opens its account unless one exists.
func seedItem(ctx context.Context, items catalog.Store, svc *ledger.Service, s itemSeed, actor string) error {
	if err := items.Upsert(ctx, catalog.ItemState{Item: s.item, Name: s.name, SKU: s.sku}); err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}

	minAlert := decimal.NewFromInt(s.minAlert)
	maxLevel := decimal.NewFromInt(s.maxLevel)
	res, err := svc.CreateAccount(ctx, ledger.CreateAccountInput{
		Item:           s.item,
		InitialCurrent: decimal.NewFromInt(s.current),
		MinAlert:       &minAlert,
		MaxLevel:       &maxLevel,
		Note:           "seed",
		Actor:          actor,
	})
	if apperror.Is(err, apperror.CodeAlreadyExists) {
		logger.Info(ctx, "stock account already exists", "sku", s.sku)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	logger.Info(ctx, "stock account seeded",
		"sku", s.sku,
		"account_id", res.Account.ID,
		"status", res.Account.Status,
	)
	return nil
}
