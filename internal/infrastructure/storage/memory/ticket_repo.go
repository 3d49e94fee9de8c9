package memory

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/workflow"
)

// TicketRepo implements workflow.Repository.
type TicketRepo struct {
	s *Store
}

func (r *TicketRepo) Create(ctx context.Context, t *workflow.Ticket) error {
	return r.s.do(ctx, func() error {
		if _, ok := r.s.tickets[t.ID]; ok {
			return apperror.NewAlreadyExists("ticket", t.ID)
		}
		for _, d := range t.Details {
			if _, ok := r.s.detailOwner[d.ID]; ok {
				return apperror.NewAlreadyExists("ticket detail", d.ID)
			}
		}
		r.s.tickets[t.ID] = stripHistory(t)
		for _, d := range t.Details {
			r.s.detailOwner[d.ID] = t.ID
		}
		return nil
	})
}

func (r *TicketRepo) Get(ctx context.Context, ticketID id.ID) (*workflow.Ticket, error) {
	var out *workflow.Ticket
	err := r.s.do(ctx, func() error {
		t, ok := r.s.tickets[ticketID]
		if !ok {
			return apperror.NewNotFound("ticket", ticketID)
		}
		out = t.Clone()
		for _, a := range r.s.audits[ticketID] {
			if a.DetailID == nil {
				out.History = append(out.History, a)
				continue
			}
			if d, ok := out.Detail(*a.DetailID); ok {
				d.History = append(d.History, a)
			}
		}
		return nil
	})
	return out, err
}

func (r *TicketRepo) GetForUpdate(ctx context.Context, ticketID id.ID) (*workflow.Ticket, error) {
	var out *workflow.Ticket
	err := r.s.do(ctx, func() error {
		t, ok := r.s.tickets[ticketID]
		if !ok {
			return apperror.NewNotFound("ticket", ticketID)
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *TicketRepo) FindDetailOwner(ctx context.Context, detailID id.ID) (id.ID, error) {
	var owner id.ID
	err := r.s.do(ctx, func() error {
		t, ok := r.s.detailOwner[detailID]
		if !ok {
			return apperror.NewNotFound("ticket detail", detailID)
		}
		owner = t
		return nil
	})
	return owner, err
}

func (r *TicketRepo) Save(ctx context.Context, t *workflow.Ticket) error {
	return r.s.do(ctx, func() error {
		stored, ok := r.s.tickets[t.ID]
		if !ok {
			return apperror.NewNotFound("ticket", t.ID)
		}
		if stored.Version != t.Version {
			return apperror.NewConcurrentModification("ticket", t.ID)
		}
		t.Version++
		r.s.tickets[t.ID] = stripHistory(t)
		return nil
	})
}

func (r *TicketRepo) SaveConsumption(ctx context.Context, d *workflow.Detail) error {
	return r.s.do(ctx, func() error {
		stored, ok := r.s.tickets[d.TicketID]
		if !ok {
			return apperror.NewNotFound("ticket", d.TicketID)
		}
		sd, ok := stored.Detail(d.ID)
		if !ok {
			return apperror.NewNotFound("ticket detail", d.ID)
		}
		sd.BOM = d.Clone().BOM
		return nil
	})
}

func (r *TicketRepo) AppendAudit(ctx context.Context, entries ...workflow.StatusAudit) error {
	return r.s.do(ctx, func() error {
		for _, e := range entries {
			r.s.audits[e.TicketID] = append(r.s.audits[e.TicketID], e)
		}
		return nil
	})
}

// stripHistory stores audit trails separately, as the postgres driver does.
func stripHistory(t *workflow.Ticket) *workflow.Ticket {
	c := t.Clone()
	c.History = nil
	for _, d := range c.Details {
		d.History = nil
	}
	return c
}

var _ workflow.Repository = (*TicketRepo)(nil)
