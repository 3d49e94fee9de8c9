package workflow

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
)

// Ticket is a production, purchasing or sale document made of detail lines.
type Ticket struct {
	entity.BaseEntity

	Domain    Domain   `json:"domain"`
	Number    string   `json:"number"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	Active    bool     `json:"active"`
	Assignees []string `json:"assignees,omitempty"`

	entity.Audit

	Details []*Detail     `json:"details"`
	History []StatusAudit `json:"history,omitempty"`
}

// Detail is one line of a ticket.
type Detail struct {
	ID       id.ID           `json:"id"`
	TicketID id.ID           `json:"ticketId"`
	Item     catalog.ItemRef `json:"item"`
	Quantity decimal.Decimal `json:"quantity"`
	Status   Status          `json:"status"`
	Active   bool            `json:"active"`

	entity.Audit

	// BOM lists planned material consumption of production details.
	// It is metadata only; materials are not stocked through it.
	BOM []BOMLine `json:"bom,omitempty"`

	History []StatusAudit `json:"history,omitempty"`
}

// BOMLine is one material consumed by a production detail. Actual stays nil
// until RecordConsumption sets it.
type BOMLine struct {
	ID       id.ID            `json:"id"`
	Material catalog.ItemRef  `json:"material"`
	Planned  decimal.Decimal  `json:"planned"`
	Actual   *decimal.Decimal `json:"actual,omitempty"`
}

// StatusAudit is an append-only status change record.
// DetailID is nil for ticket-level entries, OldStatus is nil at creation.
type StatusAudit struct {
	ID        id.ID     `json:"id"`
	TicketID  id.ID     `json:"ticketId"`
	DetailID  *id.ID    `json:"detailId,omitempty"`
	OldStatus *Status   `json:"oldStatus,omitempty"`
	NewStatus Status    `json:"newStatus"`
	Note      string    `json:"note,omitempty"`
	ActorID   string    `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Detail returns the detail with the given id.
func (t *Ticket) Detail(detailID id.ID) (*Detail, bool) {
	for _, d := range t.Details {
		if d.ID == detailID {
			return d, true
		}
	}
	return nil, false
}

// ActiveStatuses returns the statuses of active details in line order.
func (t *Ticket) ActiveStatuses() []Status {
	out := make([]Status, 0, len(t.Details))
	for _, d := range t.Details {
		if d.Active {
			out = append(out, d.Status)
		}
	}
	return out
}

// AffectedUsers returns the creator and assignees, without duplicates.
func (t *Ticket) AffectedUsers() []string {
	users := make([]string, 0, len(t.Assignees)+1)
	if t.CreatedBy != "" {
		users = append(users, t.CreatedBy)
	}
	for _, u := range t.Assignees {
		if u != "" && !slices.Contains(users, u) {
			users = append(users, u)
		}
	}
	return users
}

// Clone returns a deep copy.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.Assignees = slices.Clone(t.Assignees)
	c.History = cloneAudits(t.History)
	c.Details = make([]*Detail, len(t.Details))
	for i, d := range t.Details {
		c.Details[i] = d.Clone()
	}
	return &c
}

func (d *Detail) bomLine(lineID id.ID) *BOMLine {
	for i := range d.BOM {
		if d.BOM[i].ID == lineID {
			return &d.BOM[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Detail) Clone() *Detail {
	c := *d
	c.History = cloneAudits(d.History)
	c.BOM = make([]BOMLine, len(d.BOM))
	for i, l := range d.BOM {
		c.BOM[i] = l
		if l.Actual != nil {
			v := *l.Actual
			c.BOM[i].Actual = &v
		}
	}
	return &c
}

func cloneAudits(in []StatusAudit) []StatusAudit {
	if in == nil {
		return nil
	}
	out := make([]StatusAudit, len(in))
	for i, a := range in {
		out[i] = a
		if a.DetailID != nil {
			out[i].DetailID = id.Ptr(*a.DetailID)
		}
		if a.OldStatus != nil {
			s := *a.OldStatus
			out[i].OldStatus = &s
		}
	}
	return out
}

func newAudit(ticketID id.ID, detailID *id.ID, old *Status, next Status, note, actor string, at time.Time) StatusAudit {
	return StatusAudit{
		ID:        id.New(),
		TicketID:  ticketID,
		DetailID:  detailID,
		OldStatus: old,
		NewStatus: next,
		Note:      note,
		ActorID:   actor,
		CreatedAt: at,
	}
}

func statusPtr(s Status) *Status {
	return &s
}
