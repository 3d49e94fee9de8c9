// Package ledger_repo stores stock accounts and their transaction log in PostgreSQL.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	accountsTable     = "stock_accounts"
	transactionsTable = "stock_transactions"
)

type accountRow struct {
	entity.BaseEntity
	ItemKind       string              `db:"item_kind"`
	ItemID         id.ID               `db:"item_id"`
	CurrentStock   decimal.Decimal     `db:"current_stock"`
	FutureStock    decimal.Decimal     `db:"future_stock"`
	AllocatedStock decimal.Decimal     `db:"allocated_stock"`
	MinAlertStock  decimal.NullDecimal `db:"min_alert_stock"`
	MaxStockLevel  decimal.NullDecimal `db:"max_stock_level"`
	Status         string              `db:"status"`
	Active         bool                `db:"active"`
	entity.Audit
}

type transactionRow struct {
	ID               id.ID               `db:"id"`
	AccountID        id.ID               `db:"account_id"`
	Kind             string              `db:"kind"`
	Source           string              `db:"source"`
	Dimension        string              `db:"dimension"`
	Quantity         decimal.Decimal     `db:"quantity"`
	Before           decimal.Decimal     `db:"before_qty"`
	After            decimal.Decimal     `db:"after_qty"`
	CounterDimension *string             `db:"counter_dimension"`
	CounterBefore    decimal.NullDecimal `db:"counter_before"`
	CounterAfter     decimal.NullDecimal `db:"counter_after"`
	Note             string              `db:"note"`
	RefType          *string             `db:"ref_type"`
	RefID            *id.ID              `db:"ref_id"`
	ActorID          string              `db:"actor_id"`
	CreatedAt        time.Time           `db:"created_at"`
}

var (
	accountColumns     = postgres.ExtractDBColumns[accountRow]()
	transactionColumns = postgres.ExtractDBColumns[transactionRow]()
)

// AccountRepo implements ledger.Repository.
type AccountRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ ledger.Repository = (*AccountRepo)(nil)

// NewAccountRepo creates a new account repository.
func NewAccountRepo(txManager *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the account of item.
func (r *AccountRepo) Get(ctx context.Context, item catalog.ItemRef) (*ledger.Account, error) {
	return r.get(ctx, item, false)
}

// GetForUpdate returns the account of item locked until the transaction ends.
func (r *AccountRepo) GetForUpdate(ctx context.Context, item catalog.ItemRef) (*ledger.Account, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetForUpdate requires transaction context")
	}
	return r.get(ctx, item, true)
}

func (r *AccountRepo) get(ctx context.Context, item catalog.ItemRef, forUpdate bool) (*ledger.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"item_kind": string(item.Kind), "item_id": item.ID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row accountRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock account", item.String())
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return row.toDomain(), nil
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, acc *ledger.Account) error {
	q := r.builder.Insert(accountsTable).
		SetMap(postgres.StructToMap(fromAccount(acc))).
		Suffix("ON CONFLICT (item_kind, item_id) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewAlreadyExists("stock account", acc.Item.String()).WithCause(err)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewAlreadyExists("stock account", acc.Item.String())
	}
	return nil
}

// Update saves the account if its version still matches and bumps the version.
func (r *AccountRepo) Update(ctx context.Context, acc *ledger.Account) error {
	row := fromAccount(acc)
	q := r.builder.Update(accountsTable).
		Set("current_stock", row.CurrentStock).
		Set("future_stock", row.FutureStock).
		Set("allocated_stock", row.AllocatedStock).
		Set("min_alert_stock", row.MinAlertStock).
		Set("max_stock_level", row.MaxStockLevel).
		Set("status", row.Status).
		Set("active", row.Active).
		Set("updated_at", row.UpdatedAt).
		Set("updated_by", row.UpdatedBy).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": acc.ID, "version": acc.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return apperror.NewInvalidQuantity(decimal.Zero, "Stock quantities cannot be negative").WithCause(err)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock account", acc.ID)
	}
	acc.Version++
	return nil
}

// AppendTransaction writes one log entry.
func (r *AccountRepo) AppendTransaction(ctx context.Context, entry *ledger.Transaction) error {
	q := r.builder.Insert(transactionsTable).
		SetMap(postgres.StructToMap(fromTransaction(entry)))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("stock account", entry.AccountID).WithCause(err)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListTransactions returns log entries of an account in creation order.
func (r *AccountRepo) ListTransactions(ctx context.Context, accountID id.ID, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at", "id")

	if filter.Dimension != nil {
		d := string(*filter.Dimension)
		q = q.Where(squirrel.Or{
			squirrel.Eq{"dimension": d},
			squirrel.Eq{"counter_dimension": d},
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []transactionRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	out := make([]ledger.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func fromAccount(a *ledger.Account) accountRow {
	return accountRow{
		BaseEntity:     a.BaseEntity,
		ItemKind:       string(a.Item.Kind),
		ItemID:         a.Item.ID,
		CurrentStock:   a.CurrentStock,
		FutureStock:    a.FutureStock,
		AllocatedStock: a.AllocatedStock,
		MinAlertStock:  nullDecimal(a.MinAlertStock),
		MaxStockLevel:  nullDecimal(a.MaxStockLevel),
		Status:         string(a.Status),
		Active:         a.Active,
		Audit:          a.Audit,
	}
}

func (r accountRow) toDomain() *ledger.Account {
	return &ledger.Account{
		BaseEntity:     r.BaseEntity,
		Item:           catalog.ItemRef{Kind: catalog.VariantKind(r.ItemKind), ID: r.ItemID},
		CurrentStock:   r.CurrentStock,
		FutureStock:    r.FutureStock,
		AllocatedStock: r.AllocatedStock,
		MinAlertStock:  decimalPtr(r.MinAlertStock),
		MaxStockLevel:  decimalPtr(r.MaxStockLevel),
		Status:         ledger.StockStatus(r.Status),
		Active:         r.Active,
		Audit:          r.Audit,
	}
}

func fromTransaction(t *ledger.Transaction) transactionRow {
	row := transactionRow{
		ID:        t.ID,
		AccountID: t.AccountID,
		Kind:      string(t.Kind),
		Source:    string(t.Source),
		Dimension: string(t.Dimension),
		Quantity:  t.Quantity,
		Before:    t.Before,
		After:     t.After,
		Note:      t.Note,
		ActorID:   t.ActorID,
		CreatedAt: t.CreatedAt,
	}
	if t.Counter != nil {
		d := string(t.Counter.Dimension)
		row.CounterDimension = &d
		row.CounterBefore = decimal.NewNullDecimal(t.Counter.Before)
		row.CounterAfter = decimal.NewNullDecimal(t.Counter.After)
	}
	if t.Reference != nil {
		row.RefType = &t.Reference.Type
		row.RefID = id.Ptr(t.Reference.ID)
	}
	return row
}

func (r transactionRow) toDomain() ledger.Transaction {
	t := ledger.Transaction{
		ID:        r.ID,
		AccountID: r.AccountID,
		Kind:      ledger.MutationKind(r.Kind),
		Source:    ledger.SourceType(r.Source),
		Dimension: ledger.Dimension(r.Dimension),
		Quantity:  r.Quantity,
		Before:    r.Before,
		After:     r.After,
		Note:      r.Note,
		ActorID:   r.ActorID,
		CreatedAt: r.CreatedAt,
	}
	if r.CounterDimension != nil {
		t.Counter = &ledger.Leg{
			Dimension: ledger.Dimension(*r.CounterDimension),
			Before:    r.CounterBefore.Decimal,
			After:     r.CounterAfter.Decimal,
		}
	}
	if r.RefType != nil && r.RefID != nil {
		t.Reference = &ledger.Reference{Type: *r.RefType, ID: *r.RefID}
	}
	return t
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}

func decimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
