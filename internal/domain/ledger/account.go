package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
)

// entryMeta is the descriptive part of a log entry.
type entryMeta struct {
	source SourceType
	note   string
	ref    *Reference
	actor  string
	at     time.Time
}

// The apply* methods are the account's mutation primitives. Each one validates
// first and only then assigns, so a rejected mutation leaves the account untouched.
// On success the status is re-derived and the matching log entry is returned.

func (a *Account) applySet(qty decimal.Decimal, m entryMeta) (Transaction, error) {
	if qty.IsNegative() {
		return Transaction{}, apperror.NewInvalidQuantity(qty, "Quantity must not be negative")
	}
	before := a.CurrentStock
	a.CurrentStock = qty
	return a.finish(m, KindSet, DimensionCurrent, qty.Sub(before), before, qty, nil), nil
}

func (a *Account) applyAdd(d Dimension, qty decimal.Decimal, m entryMeta) (Transaction, error) {
	if err := requirePositive(qty); err != nil {
		return Transaction{}, err
	}
	before := a.quantity(d)
	after := before.Add(qty)
	a.setQuantity(d, after)
	return a.finish(m, KindIn, d, qty, before, after, nil), nil
}

func (a *Account) applySubtract(d Dimension, qty decimal.Decimal, m entryMeta) (Transaction, error) {
	if err := requirePositive(qty); err != nil {
		return Transaction{}, err
	}
	before := a.quantity(d)
	if before.LessThan(qty) {
		return Transaction{}, a.insufficient(d, qty, before)
	}
	after := before.Sub(qty)
	a.setQuantity(d, after)
	return a.finish(m, KindOut, d, qty, before, after, nil), nil
}

// applyAllocate reserves current stock. Reservations may not exceed what is on hand.
func (a *Account) applyAllocate(qty decimal.Decimal, m entryMeta) (Transaction, error) {
	if err := requirePositive(qty); err != nil {
		return Transaction{}, err
	}
	if available := a.Available(); available.LessThan(qty) {
		return Transaction{}, a.insufficient(DimensionCurrent, qty, available)
	}
	before := a.AllocatedStock
	after := before.Add(qty)
	a.AllocatedStock = after
	return a.finish(m, KindIn, DimensionAllocated, qty, before, after, nil), nil
}

// applyMoveFutureToCurrent receives promised stock.
func (a *Account) applyMoveFutureToCurrent(qty decimal.Decimal, m entryMeta) (Transaction, error) {
	if err := requirePositive(qty); err != nil {
		return Transaction{}, err
	}
	if a.FutureStock.LessThan(qty) {
		return Transaction{}, a.insufficient(DimensionFuture, qty, a.FutureStock)
	}
	counter := &Leg{
		Dimension: DimensionFuture,
		Before:    a.FutureStock,
		After:     a.FutureStock.Sub(qty),
	}
	before := a.CurrentStock
	after := before.Add(qty)

	a.FutureStock = counter.After
	a.CurrentStock = after
	return a.finish(m, KindIn, DimensionCurrent, qty, before, after, counter), nil
}

// applyFulfil removes shipped goods from both allocated and current stock.
func (a *Account) applyFulfil(qty decimal.Decimal, m entryMeta) (Transaction, error) {
	if err := requirePositive(qty); err != nil {
		return Transaction{}, err
	}
	if a.AllocatedStock.LessThan(qty) {
		return Transaction{}, a.insufficient(DimensionAllocated, qty, a.AllocatedStock)
	}
	if a.CurrentStock.LessThan(qty) {
		return Transaction{}, a.insufficient(DimensionCurrent, qty, a.CurrentStock)
	}
	counter := &Leg{
		Dimension: DimensionAllocated,
		Before:    a.AllocatedStock,
		After:     a.AllocatedStock.Sub(qty),
	}
	before := a.CurrentStock
	after := before.Sub(qty)

	a.AllocatedStock = counter.After
	a.CurrentStock = after
	return a.finish(m, KindOut, DimensionCurrent, qty, before, after, counter), nil
}

func (a *Account) finish(m entryMeta, kind MutationKind, d Dimension, qty, before, after decimal.Decimal, counter *Leg) Transaction {
	a.Status = DeriveStatus(a.Levels())
	a.Stamp(m.actor, m.at)

	return Transaction{
		ID:        id.New(),
		AccountID: a.ID,
		Kind:      kind,
		Source:    m.source,
		Dimension: d,
		Quantity:  qty,
		Before:    before,
		After:     after,
		Counter:   counter,
		Note:      m.note,
		Reference: m.ref,
		ActorID:   m.actor,
		CreatedAt: m.at,
	}
}

func (a *Account) insufficient(d Dimension, requested, available decimal.Decimal) error {
	return apperror.NewInsufficientStock(a.Item.String(), strings.ToLower(string(d)), requested, available).
		WithDetail("account_id", a.ID)
}

func requirePositive(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity(qty, "Quantity must be positive")
	}
	return nil
}
