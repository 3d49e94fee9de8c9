package workflow

import (
	"context"

	"stockflow/internal/core/id"
)

// Repository persists tickets, details and the status audit trail.
// Methods participate in the transaction carried by ctx.
type Repository interface {
	// Create inserts a ticket with its details and BOM lines.
	Create(ctx context.Context, t *Ticket) error

	// Get loads a ticket with details, BOM lines and both audit trails.
	Get(ctx context.Context, ticketID id.ID) (*Ticket, error)

	// GetForUpdate loads a ticket with details and BOM lines and locks it.
	// Audit trails are not loaded.
	GetForUpdate(ctx context.Context, ticketID id.ID) (*Ticket, error)

	// FindDetailOwner returns the ticket a detail belongs to.
	FindDetailOwner(ctx context.Context, detailID id.ID) (id.ID, error)

	// Save writes status and audit fields of the ticket and its details.
	// Audit trails are written through AppendAudit.
	Save(ctx context.Context, t *Ticket) error

	// SaveConsumption writes the actual quantities of d's BOM lines.
	SaveConsumption(ctx context.Context, d *Detail) error

	// AppendAudit appends status audit entries.
	AppendAudit(ctx context.Context, entries ...StatusAudit) error
}
