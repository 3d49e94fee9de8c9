package workflow

import (
	"context"

	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
)

// Ledger is the part of ledger.Service the state machine drives.
type Ledger interface {
	EnsureAccount(ctx context.Context, item catalog.ItemRef, actor string) (*ledger.Account, bool, error)
	AddToCurrentStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
	SubtractFromCurrentStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
	AddToFutureStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
	RemoveFromFutureStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
	MoveFutureToCurrentStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
	AddToAllocatedStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
	RemoveFromAllocatedStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
	RemoveFromAllocatedAndCurrentStock(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)
}

var _ Ledger = (*ledger.Service)(nil)

type ledgerOp func(Ledger, context.Context, catalog.ItemRef, ledger.Movement) (ledger.Result, error)

// Mutation is the ledger effect of one transition.
type Mutation struct {
	// Operation names the ledger operation, e.g. "AddToFutureStock".
	Operation string
	Source    ledger.SourceType

	op ledgerOp
}

// Apply runs the mutation against l.
func (m Mutation) Apply(ctx context.Context, l Ledger, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error) {
	mv.Source = m.Source
	return m.op(l, ctx, item, mv)
}

type transitionKey struct {
	domain   Domain
	from, to Status
}

var (
	addFuture     = Mutation{Operation: "AddToFutureStock", op: Ledger.AddToFutureStock}
	removeFuture  = Mutation{Operation: "RemoveFromFutureStock", op: Ledger.RemoveFromFutureStock}
	receiveFuture = Mutation{Operation: "MoveFutureToCurrentStock", op: Ledger.MoveFutureToCurrentStock}
	addCurrent    = Mutation{Operation: "AddToCurrentStock", op: Ledger.AddToCurrentStock}
	removeCurrent = Mutation{Operation: "SubtractFromCurrentStock", op: Ledger.SubtractFromCurrentStock}
	allocate      = Mutation{Operation: "AddToAllocatedStock", op: Ledger.AddToAllocatedStock}
	release       = Mutation{Operation: "RemoveFromAllocatedStock", op: Ledger.RemoveFromAllocatedStock}
	fulfil        = Mutation{Operation: "RemoveFromAllocatedAndCurrentStock", op: Ledger.RemoveFromAllocatedAndCurrentStock}
)

func (m Mutation) from(source ledger.SourceType) Mutation {
	m.Source = source
	return m
}

// mutations maps (domain, old, new) to the ledger effect.
// Pairs not listed leave stock untouched. Production output is received into
// current stock at COMPLETE -> READY, the only path into READY; future stock
// promised at approval is withdrawn again by a cancel from APPROVAL or COMPLETE.
var mutations = map[transitionKey]Mutation{
	{DomainProduction, StatusNew, StatusApproval}:       addFuture.from(ledger.SourceProductionPlanned),
	{DomainProduction, StatusComplete, StatusReady}:     receiveFuture.from(ledger.SourceProductionOutput),
	{DomainProduction, StatusApproval, StatusCancelled}: removeFuture.from(ledger.SourceProductionCancelled),
	{DomainProduction, StatusComplete, StatusCancelled}: removeFuture.from(ledger.SourceProductionCancelled),
	{DomainProduction, StatusReady, StatusCancelled}:    removeCurrent.from(ledger.SourceProductionCancelled),

	{DomainPurchasing, StatusNew, StatusApproval}:         addFuture.from(ledger.SourcePurchasePlanned),
	{DomainPurchasing, StatusShipping, StatusReady}:       receiveFuture.from(ledger.SourcePurchaseReceipt),
	{DomainPurchasing, StatusApproval, StatusCancelled}:   removeFuture.from(ledger.SourcePurchaseCancelled),
	{DomainPurchasing, StatusSuccessful, StatusCancelled}: removeFuture.from(ledger.SourcePurchaseCancelled),
	{DomainPurchasing, StatusShipping, StatusCancelled}:   removeFuture.from(ledger.SourcePurchaseCancelled),
	{DomainPurchasing, StatusReady, StatusCancelled}:      removeCurrent.from(ledger.SourcePurchaseCancelled),

	{DomainSale, StatusNew, StatusAllocated}:       allocate.from(ledger.SourceSaleAllocation),
	{DomainSale, StatusAllocated, StatusPacked}:    fulfil.from(ledger.SourceSaleShipment),
	{DomainSale, StatusAllocated, StatusCancelled}: release.from(ledger.SourceSaleRelease),
	{DomainSale, StatusPacked, StatusCancelled}:    addCurrent.from(ledger.SourceSaleReversal),
}

// MutationFor returns the ledger effect of a transition, if any.
func MutationFor(domain Domain, from, to Status) (Mutation, bool) {
	m, ok := mutations[transitionKey{domain, from, to}]
	return m, ok
}
