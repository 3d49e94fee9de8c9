package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain/catalog"
	"stockflow/pkg/logger"
)

// Config tunes the ledger service.
type Config struct {
	// PlaceholderMaxLevel is the max stock level of lazily created accounts.
	// Zero leaves the level unbounded.
	PlaceholderMaxLevel decimal.Decimal

	// BulkConcurrency bounds parallel per-item attempts in bulk operations.
	BulkConcurrency int
}

// DefaultConfig returns the defaults used by cmd/server.
func DefaultConfig() Config {
	return Config{
		PlaceholderMaxLevel: decimal.NewFromInt(1_000_000),
		BulkConcurrency:     8,
	}
}

// Result is returned by every mutation.
type Result struct {
	Account        Account      `json:"account"`
	Transaction    *Transaction `json:"transaction,omitempty"`
	PreviousStatus StockStatus  `json:"previousStatus"`
}

// StatusChanged reports whether the mutation changed the account status.
// Callers use it to decide whether to notify.
func (r Result) StatusChanged() bool {
	return r.PreviousStatus != r.Account.Status
}

// CreateAccountInput is the input of CreateAccount.
type CreateAccountInput struct {
	Item           catalog.ItemRef
	InitialCurrent decimal.Decimal
	MinAlert       *decimal.Decimal
	MaxLevel       *decimal.Decimal
	Note           string
	Actor          string
}

// SetInput is the input of SetCurrentStock.
type SetInput struct {
	Quantity        decimal.Decimal
	Note            string
	Reference       *Reference
	Actor           string
	CreateIfMissing bool
}

// Movement is the input of relative mutations.
// Source defaults to ADJUSTMENT when empty.
type Movement struct {
	Quantity  decimal.Decimal
	Source    SourceType
	Note      string
	Reference *Reference
	Actor     string
}

// TicketRef builds the reference of a ticket-driven movement.
func TicketRef(ticketType string, ticketID id.ID) *Reference {
	return &Reference{Type: ticketType, ID: ticketID}
}

// Service exposes the InventoryAccount operations keyed by item-variant.
// Every mutation runs in a transaction (joining the caller's when present) with
// the account row locked, appends exactly one log entry and re-derives status.
type Service struct {
	repo      Repository
	catalog   catalog.ItemCatalog
	txManager tx.Manager
	cfg       Config
	now       func() time.Time
}

// NewService creates a new ledger service.
func NewService(repo Repository, items catalog.ItemCatalog, txManager tx.Manager, cfg Config) *Service {
	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = 1
	}
	return &Service{
		repo:      repo,
		catalog:   items,
		txManager: txManager,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccount opens an account with an initial SET entry (before = 0).
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Result, error) {
	if err := in.Item.Validate(); err != nil {
		return Result{}, err
	}
	if err := validateThresholds(in.MinAlert, in.MaxLevel); err != nil {
		return Result{}, err
	}
	if in.InitialCurrent.IsNegative() {
		return Result{}, apperror.NewInvalidQuantity(in.InitialCurrent, "Initial stock must not be negative")
	}

	var res Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := catalog.EnsureAvailable(ctx, s.catalog, in.Item); err != nil {
			return err
		}
		acc, entry, err := s.open(ctx, in)
		if err != nil {
			return err
		}
		res = Result{Account: *acc, Transaction: entry, PreviousStatus: acc.Status}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info(ctx, "stock account created",
		"item", in.Item.String(),
		"account_id", res.Account.ID,
		"current", res.Account.CurrentStock.String(),
		"actor", in.Actor,
	)
	return res, nil
}

// EnsureAccount returns the account of item, creating it with zero balances and
// the placeholder max level if none exists. created reports which happened.
func (s *Service) EnsureAccount(ctx context.Context, item catalog.ItemRef, actor string) (acc *Account, created bool, err error) {
	if err := item.Validate(); err != nil {
		return nil, false, err
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, created, err = s.loadForUpdate(ctx, item, actor, true)
		return err
	})
	return acc, created, err
}

// SetCurrentStock replaces current stock outright (physical recount).
// Safe to retry: the same absolute value yields the same state.
func (s *Service) SetCurrentStock(ctx context.Context, item catalog.ItemRef, in SetInput) (Result, error) {
	m := entryMeta{source: SourceRecount, note: in.Note, ref: in.Reference, actor: in.Actor}
	return s.mutate(ctx, item, in.Actor, in.CreateIfMissing, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applySet(in.Quantity, m)
	}, m)
}

// AddToCurrentStock records an IN movement on current stock.
func (s *Service) AddToCurrentStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applyAdd(DimensionCurrent, mv.Quantity, m)
	})
}

// SubtractFromCurrentStock records an OUT movement on current stock.
// Current stock is the floor; allocation does not block it.
func (s *Service) SubtractFromCurrentStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applySubtract(DimensionCurrent, mv.Quantity, m)
	})
}

// AddToFutureStock records quantity promised by an in-flight line.
func (s *Service) AddToFutureStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applyAdd(DimensionFuture, mv.Quantity, m)
	})
}

// RemoveFromFutureStock withdraws a promise.
func (s *Service) RemoveFromFutureStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applySubtract(DimensionFuture, mv.Quantity, m)
	})
}

// MoveFutureToCurrentStock receives promised goods in one entry.
func (s *Service) MoveFutureToCurrentStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applyMoveFutureToCurrent(mv.Quantity, m)
	})
}

// AddToAllocatedStock reserves current stock against a sale.
func (s *Service) AddToAllocatedStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applyAllocate(mv.Quantity, m)
	})
}

// RemoveFromAllocatedStock releases a reservation.
func (s *Service) RemoveFromAllocatedStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applySubtract(DimensionAllocated, mv.Quantity, m)
	})
}

// RemoveFromAllocatedAndCurrentStock ships reserved goods.
func (s *Service) RemoveFromAllocatedAndCurrentStock(ctx context.Context, item catalog.ItemRef, mv Movement) (Result, error) {
	return s.relative(ctx, item, mv, func(acc *Account, m entryMeta) (Transaction, error) {
		return acc.applyFulfil(mv.Quantity, m)
	})
}

// IsEnough reports whether current − allocated covers planned.
// An item without an account has nothing available.
func (s *Service) IsEnough(ctx context.Context, item catalog.ItemRef, planned decimal.Decimal) (bool, error) {
	if planned.IsNegative() {
		return false, apperror.NewInvalidQuantity(planned, "Planned quantity must not be negative")
	}
	acc, err := s.repo.Get(ctx, item)
	if err != nil {
		if apperror.IsNotFound(err) {
			return planned.IsZero(), nil
		}
		return false, err
	}
	return acc.Available().GreaterThanOrEqual(planned), nil
}

// GetAccount returns the account of item.
func (s *Service) GetAccount(ctx context.Context, item catalog.ItemRef) (*Account, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, item)
}

// History returns the transaction log of item.
func (s *Service) History(ctx context.Context, item catalog.ItemRef, filter TransactionFilter) ([]Transaction, error) {
	acc, err := s.GetAccount(ctx, item)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListTransactions(ctx, acc.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return entries, nil
}

// UpdateThresholds replaces min alert and max level and re-derives status.
// Thresholds are not quantities, so no log entry is written.
func (s *Service) UpdateThresholds(ctx context.Context, item catalog.ItemRef, minAlert, maxLevel *decimal.Decimal, actor string) (Result, error) {
	if err := item.Validate(); err != nil {
		return Result{}, err
	}
	if err := validateThresholds(minAlert, maxLevel); err != nil {
		return Result{}, err
	}

	var res Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, _, err := s.loadForUpdate(ctx, item, actor, false)
		if err != nil {
			return err
		}
		prev := acc.Status
		acc.MinAlertStock = minAlert
		acc.MaxStockLevel = maxLevel
		acc.Status = DeriveStatus(acc.Levels())
		acc.Stamp(actor, s.now())
		if err := s.repo.Update(ctx, acc); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		res = Result{Account: *acc, PreviousStatus: prev}
		return nil
	})
	return res, err
}

// Invalidate deactivates the account of an item deleted upstream.
// Later mutations fail with ItemUnavailable.
func (s *Service) Invalidate(ctx context.Context, item catalog.ItemRef, actor string) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, _, err := s.loadForUpdate(ctx, item, actor, false)
		if err != nil {
			return err
		}
		if !acc.Active {
			return nil
		}
		acc.Active = false
		acc.Stamp(actor, s.now())
		return s.repo.Update(ctx, acc)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "stock account invalidated", "item", item.String(), "actor", actor)
	return nil
}

// --- internals ---

type applyFunc func(acc *Account, m entryMeta) (Transaction, error)

func (s *Service) relative(ctx context.Context, item catalog.ItemRef, mv Movement, apply applyFunc) (Result, error) {
	source := mv.Source
	if source == "" {
		source = SourceAdjustment
	}
	if !source.AppliesTo(item.Kind) {
		return Result{}, apperror.NewValidation("source type does not apply to item kind").
			WithDetail("source", string(source)).
			WithDetail("kind", string(item.Kind))
	}
	m := entryMeta{source: source, note: mv.Note, ref: mv.Reference, actor: mv.Actor}
	return s.mutate(ctx, item, mv.Actor, false, apply, m)
}

func (s *Service) mutate(ctx context.Context, item catalog.ItemRef, actor string, lazy bool, apply applyFunc, m entryMeta) (Result, error) {
	if err := item.Validate(); err != nil {
		return Result{}, err
	}

	var res Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, _, err := s.loadForUpdate(ctx, item, actor, lazy)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(ctx, acc); err != nil {
			return err
		}

		prev := acc.Status
		m.at = s.now()
		entry, err := apply(acc, m)
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, acc); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if err := s.repo.AppendTransaction(ctx, &entry); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}

		res = Result{Account: *acc, Transaction: &entry, PreviousStatus: prev}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Debug(ctx, "stock mutated",
		"item", item.String(),
		"kind", res.Transaction.Kind,
		"dimension", res.Transaction.Dimension,
		"quantity", res.Transaction.Quantity.String(),
		"status", res.Account.Status,
	)
	return res, nil
}

// loadForUpdate locks the account, optionally creating it on first use.
func (s *Service) loadForUpdate(ctx context.Context, item catalog.ItemRef, actor string, lazy bool) (*Account, bool, error) {
	acc, err := s.repo.GetForUpdate(ctx, item)
	if err == nil {
		return acc, false, nil
	}
	if !lazy || !apperror.IsNotFound(err) {
		return nil, false, err
	}

	if err := catalog.EnsureAvailable(ctx, s.catalog, item); err != nil {
		return nil, false, err
	}

	in := CreateAccountInput{Item: item, Actor: actor, Note: "created on first use"}
	if !s.cfg.PlaceholderMaxLevel.IsZero() {
		maxLevel := s.cfg.PlaceholderMaxLevel
		in.MaxLevel = &maxLevel
	}
	acc, _, err = s.open(ctx, in)
	if apperror.Is(err, apperror.CodeAlreadyExists) {
		// Lost a creation race; the winner's row is committed by now.
		acc, err = s.repo.GetForUpdate(ctx, item)
		return acc, false, err
	}
	if err != nil {
		return nil, false, err
	}

	logger.Info(ctx, "stock account created on first use", "item", item.String(), "account_id", acc.ID)
	return acc, true, nil
}

func (s *Service) open(ctx context.Context, in CreateAccountInput) (*Account, *Transaction, error) {
	now := s.now()
	acc := &Account{
		BaseEntity:    entity.NewBaseEntity(),
		Item:          in.Item,
		MinAlertStock: in.MinAlert,
		MaxStockLevel: in.MaxLevel,
		Active:        true,
		Audit:         entity.NewAudit(in.Actor, now),
	}

	entry, err := acc.applySet(in.InitialCurrent, entryMeta{
		source: SourceInitial,
		note:   in.Note,
		actor:  in.Actor,
		at:     now,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, nil, err
	}
	if err := s.repo.AppendTransaction(ctx, &entry); err != nil {
		return nil, nil, fmt.Errorf("append transaction: %w", err)
	}
	return acc, &entry, nil
}

func (s *Service) ensureMutable(ctx context.Context, acc *Account) error {
	if !acc.Active {
		return apperror.NewItemUnavailable(acc.Item.String()).WithDetail("account_id", acc.ID)
	}
	return catalog.EnsureAvailable(ctx, s.catalog, acc.Item)
}

func validateThresholds(minAlert, maxLevel *decimal.Decimal) error {
	if minAlert != nil && minAlert.IsNegative() {
		return apperror.NewInvalidQuantity(*minAlert, "Minimum alert stock must not be negative")
	}
	if maxLevel != nil && maxLevel.IsNegative() {
		return apperror.NewInvalidQuantity(*maxLevel, "Maximum stock level must not be negative")
	}
	if minAlert != nil && maxLevel != nil && minAlert.GreaterThan(*maxLevel) {
		return apperror.NewValidation("minimum alert stock exceeds maximum stock level").
			WithDetail("min_alert_stock", minAlert.String()).
			WithDetail("max_stock_level", maxLevel.String())
	}
	return nil
}
