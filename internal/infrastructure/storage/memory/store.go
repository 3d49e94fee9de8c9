// Package memory is an in-process storage driver. Transactions are serialised
// through one store-wide lock and rolled back by restoring a snapshot, which
// gives serializable isolation for tests and single-process deployments.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/workflow"
)

// Store holds all data and implements tx.Manager.
type Store struct {
	mu sync.Mutex

	accounts    map[catalog.ItemRef]*ledger.Account
	entries     map[id.ID][]ledger.Transaction
	tickets     map[id.ID]*workflow.Ticket
	detailOwner map[id.ID]id.ID
	audits      map[id.ID][]workflow.StatusAudit
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[catalog.ItemRef]*ledger.Account),
		entries:     make(map[id.ID][]ledger.Transaction),
		tickets:     make(map[id.ID]*workflow.Ticket),
		detailOwner: make(map[id.ID]id.ID),
		audits:      make(map[id.ID][]workflow.StatusAudit),
	}
}

type txKey struct{}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn under the store lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

type snapshot struct {
	accounts    map[catalog.ItemRef]*ledger.Account
	entries     map[id.ID][]ledger.Transaction
	tickets     map[id.ID]*workflow.Ticket
	detailOwner map[id.ID]id.ID
	audits      map[id.ID][]workflow.StatusAudit
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		accounts:    make(map[catalog.ItemRef]*ledger.Account, len(s.accounts)),
		entries:     make(map[id.ID][]ledger.Transaction, len(s.entries)),
		tickets:     make(map[id.ID]*workflow.Ticket, len(s.tickets)),
		detailOwner: maps.Clone(s.detailOwner),
		audits:      make(map[id.ID][]workflow.StatusAudit, len(s.audits)),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v.Clone()
	}
	for k, v := range s.entries {
		snap.entries[k] = slices.Clone(v)
	}
	for k, v := range s.tickets {
		snap.tickets[k] = v.Clone()
	}
	for k, v := range s.audits {
		snap.audits[k] = slices.Clone(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.entries = snap.entries
	s.tickets = snap.tickets
	s.detailOwner = snap.detailOwner
	s.audits = snap.audits
}

// Accounts returns the ledger repository view of the store.
func (s *Store) Accounts() *AccountRepo {
	return &AccountRepo{s: s}
}

// Tickets returns the workflow repository view of the store.
func (s *Store) Tickets() *TicketRepo {
	return &TicketRepo{s: s}
}

var _ tx.Manager = (*Store)(nil)
