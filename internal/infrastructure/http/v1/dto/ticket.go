package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/workflow"
)

// --- Requests ---

// CreateTicketRequest creates a ticket with its lines.
type CreateTicketRequest struct {
	Domain    string                `json:"domain" binding:"required,oneof=production purchasing sale"`
	Name      string                `json:"name" binding:"required,max=255"`
	Assignees []string              `json:"assignees" binding:"omitempty,dive,required,max=128"`
	Details   []CreateDetailRequest `json:"details" binding:"required,min=1,max=500,dive"`
	Note      string                `json:"note" binding:"max=1000"`
}

// CreateDetailRequest is one requested line.
type CreateDetailRequest struct {
	Kind     string           `json:"kind" binding:"required,itemkind"`
	ItemID   string           `json:"itemId" binding:"required,uuid"`
	Quantity decimal.Decimal  `json:"quantity" binding:"gt=0"`
	BOM      []BOMLineRequest `json:"bom" binding:"omitempty,dive"`
}

// BOMLineRequest is one planned material.
type BOMLineRequest struct {
	MaterialID string          `json:"materialId" binding:"required,uuid"`
	Planned    decimal.Decimal `json:"planned" binding:"gt=0"`
}

// ToNewTicket converts the request. Ids are validated by binding.
func (r CreateTicketRequest) ToNewTicket(actor string) workflow.NewTicket {
	in := workflow.NewTicket{
		Domain:    workflow.Domain(r.Domain),
		Name:      r.Name,
		Assignees: r.Assignees,
		Note:      r.Note,
		Actor:     actor,
		Details:   make([]workflow.NewDetail, len(r.Details)),
	}
	for i, d := range r.Details {
		nd := workflow.NewDetail{
			Item:     catalog.ItemRef{Kind: catalog.VariantKind(d.Kind), ID: id.MustParse(d.ItemID)},
			Quantity: d.Quantity,
		}
		for _, l := range d.BOM {
			nd.BOM = append(nd.BOM, workflow.NewBOMLine{
				Material: catalog.Material(id.MustParse(l.MaterialID)),
				Planned:  l.Planned,
			})
		}
		in.Details[i] = nd
	}
	return in
}

// TransitionRequest asks for a detail status change.
type TransitionRequest struct {
	Status string `json:"status" binding:"required,max=64"`
	Note   string `json:"note" binding:"max=1000"`
}

// ConsumptionRequest records the actual use of one BOM line.
type ConsumptionRequest struct {
	Actual decimal.Decimal `json:"actual" binding:"gte=0"`
}

// CancelRequest carries an optional cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// --- Responses ---

// AuditResponse is one status audit entry.
type AuditResponse struct {
	ID        string    `json:"id"`
	OldStatus *string   `json:"oldStatus,omitempty"`
	NewStatus string    `json:"newStatus"`
	Note      string    `json:"note,omitempty"`
	ActorID   string    `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// BOMLineResponse is one planned material.
type BOMLineResponse struct {
	ID         string           `json:"id"`
	MaterialID string           `json:"materialId"`
	Planned    decimal.Decimal  `json:"planned"`
	Actual     *decimal.Decimal `json:"actual,omitempty"`
}

// DetailResponse is one ticket line.
type DetailResponse struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	ItemID      string            `json:"itemId"`
	Quantity    decimal.Decimal   `json:"quantity"`
	Status      string            `json:"status"`
	StatusLabel string            `json:"statusLabel"`
	Active      bool              `json:"active"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	UpdatedBy   string            `json:"updatedBy"`
	BOM         []BOMLineResponse `json:"bom,omitempty"`
	History     []AuditResponse   `json:"history,omitempty"`
}

// TicketResponse is a ticket with its lines.
type TicketResponse struct {
	ID          string           `json:"id"`
	Domain      string           `json:"domain"`
	Number      string           `json:"number"`
	Name        string           `json:"name"`
	Status      string           `json:"status"`
	StatusLabel string           `json:"statusLabel"`
	Assignees   []string         `json:"assignees"`
	Version     int              `json:"version"`
	CreatedAt   time.Time        `json:"createdAt"`
	CreatedBy   string           `json:"createdBy"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	UpdatedBy   string           `json:"updatedBy"`
	Details     []DetailResponse `json:"details"`
	History     []AuditResponse  `json:"history,omitempty"`
}

// FromTicket converts a ticket.
func FromTicket(t *workflow.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID.String(),
		Domain:      string(t.Domain),
		Number:      t.Number,
		Name:        t.Name,
		Status:      string(t.Status),
		StatusLabel: workflow.Label(t.Status),
		Assignees:   t.Assignees,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		CreatedBy:   t.CreatedBy,
		UpdatedAt:   t.UpdatedAt,
		UpdatedBy:   t.UpdatedBy,
		Details:     make([]DetailResponse, 0, len(t.Details)),
		History:     fromAudits(t.History),
	}
	if resp.Assignees == nil {
		resp.Assignees = []string{}
	}
	for _, d := range t.Details {
		resp.Details = append(resp.Details, FromDetail(d))
	}
	return resp
}

// FromDetail converts a ticket line.
func FromDetail(d *workflow.Detail) DetailResponse {
	resp := DetailResponse{
		ID:          d.ID.String(),
		Kind:        string(d.Item.Kind),
		ItemID:      d.Item.ID.String(),
		Quantity:    d.Quantity,
		Status:      string(d.Status),
		StatusLabel: workflow.Label(d.Status),
		Active:      d.Active,
		UpdatedAt:   d.UpdatedAt,
		UpdatedBy:   d.UpdatedBy,
		History:     fromAudits(d.History),
	}
	for _, l := range d.BOM {
		resp.BOM = append(resp.BOM, BOMLineResponse{
			ID:         l.ID.String(),
			MaterialID: l.Material.ID.String(),
			Planned:    l.Planned,
			Actual:     l.Actual,
		})
	}
	return resp
}

func fromAudits(in []workflow.StatusAudit) []AuditResponse {
	if len(in) == 0 {
		return nil
	}
	out := make([]AuditResponse, len(in))
	for i, a := range in {
		out[i] = AuditResponse{
			ID:        a.ID.String(),
			NewStatus: string(a.NewStatus),
			Note:      a.Note,
			ActorID:   a.ActorID,
			CreatedAt: a.CreatedAt,
		}
		if a.OldStatus != nil {
			s := string(*a.OldStatus)
			out[i].OldStatus = &s
		}
	}
	return out
}

// TransitionResponse is returned by detail transitions.
type TransitionResponse struct {
	Ticket               TicketResponse       `json:"ticket"`
	Detail               DetailResponse       `json:"detail"`
	PreviousStatus       string               `json:"previousStatus"`
	PreviousTicketStatus string               `json:"previousTicketStatus"`
	TicketChanged        bool                 `json:"ticketChanged"`
	Stock                *StockResultResponse `json:"stock,omitempty"`
}

// FromTransition converts a transition result.
func FromTransition(r *workflow.TransitionResult, label StatusLabeler) TransitionResponse {
	resp := TransitionResponse{
		Ticket:               FromTicket(r.Ticket),
		Detail:               FromDetail(r.Detail),
		PreviousStatus:       string(r.PreviousStatus),
		PreviousTicketStatus: string(r.PreviousTicketStatus),
		TicketChanged:        r.TicketChanged,
	}
	if r.Stock != nil {
		s := FromResult(*r.Stock, label)
		resp.Stock = &s
	}
	return resp
}

// RecomputeResponse reports whether the ticket status moved.
type RecomputeResponse struct {
	Changed bool           `json:"changed"`
	Ticket  TicketResponse `json:"ticket"`
}

// RuleResponse is one row of a transition table.
type RuleResponse struct {
	Status    string   `json:"status"`
	Label     string   `json:"label"`
	Allowed   []string `json:"allowed"`
	Terminal  bool     `json:"terminal"`
	Rationale string   `json:"rationale"`
}

// FromRule converts a rule row.
func FromRule(r workflow.Rule) RuleResponse {
	resp := RuleResponse{
		Status:    string(r.Status),
		Label:     workflow.Label(r.Status),
		Allowed:   make([]string, len(r.Allowed)),
		Terminal:  r.Terminal(),
		Rationale: r.Rationale,
	}
	for i, s := range r.Allowed {
		resp.Allowed[i] = string(s)
	}
	return resp
}
