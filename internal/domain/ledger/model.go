// Package ledger maintains per-item stock accounts with current, future and
// allocated quantities, derives their health status and keeps an append-only
// transaction log of every mutation.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
)

// MutationKind is the direction of a log entry.
type MutationKind string

const (
	KindIn  MutationKind = "IN"
	KindOut MutationKind = "OUT"
	KindSet MutationKind = "SET"
)

// Dimension names one of the three tracked quantities.
type Dimension string

const (
	DimensionCurrent   Dimension = "CURRENT"
	DimensionFuture    Dimension = "FUTURE"
	DimensionAllocated Dimension = "ALLOCATED"
)

// Account is the stock ledger of one item-variant.
type Account struct {
	entity.BaseEntity

	Item catalog.ItemRef `json:"item"`

	CurrentStock   decimal.Decimal `json:"currentStock"`
	FutureStock    decimal.Decimal `json:"futureStock"`
	AllocatedStock decimal.Decimal `json:"allocatedStock"`

	MinAlertStock *decimal.Decimal `json:"minAlertStock,omitempty"`
	MaxStockLevel *decimal.Decimal `json:"maxStockLevel,omitempty"`

	Status StockStatus `json:"status"`

	// Active is cleared when the item is deleted upstream.
	Active bool `json:"active"`

	entity.Audit
}

// Levels returns the inputs of DeriveStatus.
func (a *Account) Levels() Levels {
	return Levels{
		Current:   a.CurrentStock,
		Future:    a.FutureStock,
		Allocated: a.AllocatedStock,
		Min:       a.MinAlertStock,
		Max:       a.MaxStockLevel,
	}
}

// Available is current minus allocated.
func (a *Account) Available() decimal.Decimal {
	return a.CurrentStock.Sub(a.AllocatedStock)
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	if a.MinAlertStock != nil {
		v := *a.MinAlertStock
		c.MinAlertStock = &v
	}
	if a.MaxStockLevel != nil {
		v := *a.MaxStockLevel
		c.MaxStockLevel = &v
	}
	return &c
}

func (a *Account) quantity(d Dimension) decimal.Decimal {
	switch d {
	case DimensionFuture:
		return a.FutureStock
	case DimensionAllocated:
		return a.AllocatedStock
	default:
		return a.CurrentStock
	}
}

func (a *Account) setQuantity(d Dimension, v decimal.Decimal) {
	switch d {
	case DimensionFuture:
		a.FutureStock = v
	case DimensionAllocated:
		a.AllocatedStock = v
	default:
		a.CurrentStock = v
	}
}

// Reference points at the document that caused a mutation, usually a ticket.
type Reference struct {
	Type string `json:"type"`
	ID   id.ID  `json:"id"`
}

// Leg is the second quantity touched by a compound mutation
// (future → current, allocated + current fulfilment).
type Leg struct {
	Dimension Dimension       `json:"dimension"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
}

// Transaction is an immutable log entry.
// After = Before + Quantity for IN and SET, Before - Quantity for OUT.
type Transaction struct {
	ID        id.ID           `json:"id"`
	AccountID id.ID           `json:"accountId"`
	Kind      MutationKind    `json:"kind"`
	Source    SourceType      `json:"source"`
	Dimension Dimension       `json:"dimension"`
	Quantity  decimal.Decimal `json:"quantity"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
	Counter   *Leg            `json:"counter,omitempty"`
	Note      string          `json:"note,omitempty"`
	Reference *Reference      `json:"reference,omitempty"`
	ActorID   string          `json:"actorId"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Touches reports the before/after pair of dimension d in this entry, if any.
func (t Transaction) Touches(d Dimension) (before, after decimal.Decimal, ok bool) {
	if t.Dimension == d {
		return t.Before, t.After, true
	}
	if t.Counter != nil && t.Counter.Dimension == d {
		return t.Counter.Before, t.Counter.After, true
	}
	return decimal.Zero, decimal.Zero, false
}

// TransactionFilter narrows History queries.
type TransactionFilter struct {
	Dimension *Dimension
	Limit     int
	Offset    int
}
