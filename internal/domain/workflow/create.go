package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/pkg/logger"
)

// NewTicket is the input of CreateTicket.
type NewTicket struct {
	Domain    Domain
	Name      string
	Assignees []string
	Details   []NewDetail
	Note      string
	Actor     string
}

// NewDetail is one requested line.
type NewDetail struct {
	Item     catalog.ItemRef
	Quantity decimal.Decimal
	BOM      []NewBOMLine
}

// NewBOMLine is one planned material of a production line.
type NewBOMLine struct {
	Material catalog.ItemRef
	Planned  decimal.Decimal
}

// Validate checks the request against the domain definition.
func (in NewTicket) Validate(def Definition) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperror.NewValidation("ticket name is required").WithDetail("field", "name")
	}
	if in.Actor == "" {
		return apperror.NewValidation("acting user is required")
	}
	if len(in.Details) == 0 {
		return apperror.NewValidation("ticket must have at least one detail").WithDetail("field", "details")
	}

	for i, d := range in.Details {
		field := fmt.Sprintf("details[%d]", i)
		if err := d.Item.Validate(); err != nil {
			return err
		}
		if !def.AcceptsItem(d.Item) {
			return apperror.NewValidation("item kind is not accepted by this ticket domain").
				WithDetail("field", field+".item").
				WithDetail("kind", string(d.Item.Kind)).
				WithDetail("domain", string(def.Domain))
		}
		if !d.Quantity.IsPositive() {
			return apperror.NewInvalidQuantity(d.Quantity, "Quantity must be positive").WithDetail("field", field+".quantity")
		}
		if len(d.BOM) > 0 && def.Domain != DomainProduction {
			return apperror.NewValidation("bill of materials is only allowed on production lines").
				WithDetail("field", field+".bom")
		}
		for j, l := range d.BOM {
			bomField := fmt.Sprintf("%s.bom[%d]", field, j)
			if l.Material.Kind != catalog.KindMaterial {
				return apperror.NewValidation("bill of materials must reference materials").WithDetail("field", bomField)
			}
			if err := l.Material.Validate(); err != nil {
				return err
			}
			if !l.Planned.IsPositive() {
				return apperror.NewInvalidQuantity(l.Planned, "Planned quantity must be positive").WithDetail("field", bomField)
			}
		}
	}
	return nil
}

// CreateTicket creates a ticket and its details in status NEW, writes the
// creation audit entries and opens stock accounts for items that have none.
func (e *Engine) CreateTicket(ctx context.Context, in NewTicket) (*Ticket, error) {
	def, err := e.defs.Get(in.Domain)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(def); err != nil {
		return nil, err
	}

	number, err := e.numbers.GetNextNumber(ctx, def.numbering(), nil, e.now())
	if err != nil {
		return nil, fmt.Errorf("ticket number: %w", err)
	}

	t := e.build(def, in)
	t.Number = number

	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		seen := make(map[catalog.ItemRef]struct{}, len(t.Details))
		for _, d := range t.Details {
			if _, ok := seen[d.Item]; ok {
				continue
			}
			seen[d.Item] = struct{}{}
			if err := catalog.EnsureAvailable(ctx, e.catalog, d.Item); err != nil {
				return err
			}
			if _, _, err := e.ledger.EnsureAccount(ctx, d.Item, in.Actor); err != nil {
				return err
			}
		}

		if err := e.repo.Create(ctx, t); err != nil {
			return err
		}

		audits := make([]StatusAudit, 0, len(t.Details)+1)
		audits = append(audits, t.History...)
		for _, d := range t.Details {
			audits = append(audits, d.History...)
		}
		return e.repo.AppendAudit(ctx, audits...)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ticket created",
		"ticket_id", t.ID,
		"number", t.Number,
		"domain", t.Domain,
		"details", len(t.Details),
		"actor", in.Actor,
	)
	return t.Clone(), nil
}

func (e *Engine) build(def Definition, in NewTicket) *Ticket {
	now := e.now()
	initial := def.Stages[0]

	t := &Ticket{
		BaseEntity: entity.NewBaseEntity(),
		Domain:     def.Domain,
		Name:       strings.TrimSpace(in.Name),
		Status:     initial,
		Active:     true,
		Assignees:  in.Assignees,
		Audit:      entity.NewAudit(in.Actor, now),
	}
	t.History = []StatusAudit{newAudit(t.ID, nil, nil, initial, in.Note, in.Actor, now)}

	for _, nd := range in.Details {
		d := &Detail{
			ID:       id.New(),
			TicketID: t.ID,
			Item:     nd.Item,
			Quantity: nd.Quantity,
			Status:   initial,
			Active:   true,
			Audit:    entity.NewAudit(in.Actor, now),
		}
		for _, l := range nd.BOM {
			d.BOM = append(d.BOM, BOMLine{ID: id.New(), Material: l.Material, Planned: l.Planned})
		}
		d.History = []StatusAudit{newAudit(t.ID, id.Ptr(d.ID), nil, initial, in.Note, in.Actor, now)}
		t.Details = append(t.Details, d)
	}
	return t
}
