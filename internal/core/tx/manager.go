// Package tx defines the unit of work shared by the ledger and the workflow
// engine. The postgres and memory stores implement it.
package tx

import "context"

// Manager runs fn atomically: every write made through ctx inside fn commits
// together or not at all. A call made with a ctx that already carries a
// transaction joins it, so a ticket transition and the ledger mutation it
// triggers share one commit, and a failed ledger effect aborts the transition.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
