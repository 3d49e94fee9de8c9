package ledger

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
)

// Repository persists accounts and their transaction log.
// Methods participate in the transaction carried by ctx.
type Repository interface {
	// Get returns the account of item or a NotFound AppError.
	Get(ctx context.Context, item catalog.ItemRef) (*Account, error)

	// GetForUpdate is Get with the account locked until the transaction ends.
	GetForUpdate(ctx context.Context, item catalog.ItemRef) (*Account, error)

	// Create inserts a new account. Returns AlreadyExists if the item already has one.
	Create(ctx context.Context, acc *Account) error

	// Update saves quantities, status, thresholds and audit fields.
	// acc.Version must match the stored version; it is incremented on success.
	Update(ctx context.Context, acc *Account) error

	// AppendTransaction writes one immutable log entry.
	AppendTransaction(ctx context.Context, entry *Transaction) error

	// ListTransactions returns entries of an account in creation order.
	ListTransactions(ctx context.Context, accountID id.ID, filter TransactionFilter) ([]Transaction, error)
}
