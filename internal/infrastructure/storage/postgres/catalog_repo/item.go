// Package catalog_repo reads and maintains the item-variant master data the
// ledger checks before it opens or mutates accounts.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/infrastructure/storage/postgres"
)

const itemsTable = "cat_items"

type itemRow struct {
	Kind         string    `db:"kind"`
	ID           id.ID     `db:"id"`
	Name         string    `db:"name"`
	SKU          string    `db:"sku"`
	DeletionMark bool      `db:"deletion_mark"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var itemColumns = postgres.ExtractDBColumns[itemRow]()

// ItemRepo implements catalog.Store over cat_items.
type ItemRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ catalog.Store = (*ItemRepo)(nil)

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Lookup implements catalog.ItemCatalog.
func (r *ItemRepo) Lookup(ctx context.Context, item catalog.ItemRef) (catalog.ItemState, error) {
	sql, args, err := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"kind": string(item.Kind), "id": item.ID}).
		ToSql()
	if err != nil {
		return catalog.ItemState{}, fmt.Errorf("build query: %w", err)
	}

	var row itemRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return catalog.ItemState{}, apperror.NewNotFound(string(item.Kind)+" variant", item.ID)
		}
		return catalog.ItemState{}, fmt.Errorf("lookup item: %w", err)
	}

	return catalog.ItemState{
		Item:    item,
		Name:    row.Name,
		SKU:     row.SKU,
		Deleted: row.DeletionMark,
	}, nil
}

// Upsert creates or renames an item and clears its deletion mark.
func (r *ItemRepo) Upsert(ctx context.Context, state catalog.ItemState) error {
	if err := state.Item.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	sql, args, err := r.builder.Insert(itemsTable).
		SetMap(postgres.StructToMap(itemRow{
			Kind:      string(state.Item.Kind),
			ID:        state.Item.ID,
			Name:      state.Name,
			SKU:       state.SKU,
			CreatedAt: now,
			UpdatedAt: now,
		})).
		Suffix("ON CONFLICT (kind, id) DO UPDATE SET name = EXCLUDED.name, sku = EXCLUDED.sku, " +
			"deletion_mark = FALSE, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// SetDeletionMark sets or clears the soft-delete mark of an item.
func (r *ItemRepo) SetDeletionMark(ctx context.Context, item catalog.ItemRef, marked bool) error {
	sql, args, err := r.builder.Update(itemsTable).
		Set("deletion_mark", marked).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"kind": string(item.Kind), "id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(string(item.Kind)+" variant", item.ID)
	}
	return nil
}
