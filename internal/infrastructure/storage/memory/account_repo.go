package memory

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
)

// AccountRepo implements ledger.Repository.
type AccountRepo struct {
	s *Store
}

func (r *AccountRepo) Get(ctx context.Context, item catalog.ItemRef) (*ledger.Account, error) {
	var out *ledger.Account
	err := r.s.do(ctx, func() error {
		acc, ok := r.s.accounts[item]
		if !ok {
			return apperror.NewNotFound("stock account", item.String())
		}
		out = acc.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock: transactions already hold the store lock.
func (r *AccountRepo) GetForUpdate(ctx context.Context, item catalog.ItemRef) (*ledger.Account, error) {
	return r.Get(ctx, item)
}

func (r *AccountRepo) Create(ctx context.Context, acc *ledger.Account) error {
	return r.s.do(ctx, func() error {
		if _, ok := r.s.accounts[acc.Item]; ok {
			return apperror.NewAlreadyExists("stock account", acc.Item.String())
		}
		r.s.accounts[acc.Item] = acc.Clone()
		return nil
	})
}

func (r *AccountRepo) Update(ctx context.Context, acc *ledger.Account) error {
	return r.s.do(ctx, func() error {
		stored, ok := r.s.accounts[acc.Item]
		if !ok {
			return apperror.NewNotFound("stock account", acc.Item.String())
		}
		if stored.Version != acc.Version {
			return apperror.NewConcurrentModification("stock account", acc.ID)
		}
		acc.Version++
		r.s.accounts[acc.Item] = acc.Clone()
		return nil
	})
}

func (r *AccountRepo) AppendTransaction(ctx context.Context, entry *ledger.Transaction) error {
	return r.s.do(ctx, func() error {
		r.s.entries[entry.AccountID] = append(r.s.entries[entry.AccountID], *entry)
		return nil
	})
}

func (r *AccountRepo) ListTransactions(ctx context.Context, accountID id.ID, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	err := r.s.do(ctx, func() error {
		for _, e := range r.s.entries[accountID] {
			if filter.Dimension != nil {
				if _, _, ok := e.Touches(*filter.Dimension); !ok {
					continue
				}
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page(out, filter.Offset, filter.Limit), nil
}

func page[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return []T{}
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	if in == nil {
		return []T{}
	}
	return in
}

var _ ledger.Repository = (*AccountRepo)(nil)
