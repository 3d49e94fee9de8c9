package handlers

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/workflow"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// TicketHandler handles HTTP requests for tickets and their detail lines.
type TicketHandler struct {
	*BaseHandler
	engine *workflow.Engine
}

// NewTicketHandler creates a new ticket handler.
func NewTicketHandler(base *BaseHandler, engine *workflow.Engine) *TicketHandler {
	return &TicketHandler{
		BaseHandler: base,
		engine:      engine,
	}
}

// Create handles POST /tickets
func (h *TicketHandler) Create(c *gin.Context) {
	var req dto.CreateTicketRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.engine.CreateTicket(c.Request.Context(), req.ToNewTicket(h.Actor(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromTicket(t))
}

// Get handles GET /tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	ticketID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	t, err := h.engine.Ticket(c.Request.Context(), ticketID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTicket(t))
}

// Transition handles POST /tickets/:id/details/:detailId/transitions
func (h *TicketHandler) Transition(c *gin.Context) {
	ticketID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	detailID, ok := h.ParamID(c, "detailId")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.RequestTransition(c.Request.Context(), workflow.TransitionRequest{
		TicketID: ticketID,
		DetailID: detailID,
		Status:   workflow.Status(req.Status),
		Note:     req.Note,
		Actor:    h.Actor(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTransition(res, h.Label()))
}

// CancelDetail handles POST /tickets/:id/details/:detailId/cancel
func (h *TicketHandler) CancelDetail(c *gin.Context) {
	ticketID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	detailID, ok := h.ParamID(c, "detailId")
	if !ok {
		return
	}
	var req dto.CancelRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.CancelTicketDetail(c.Request.Context(), workflow.CancelDetailRequest{
		TicketID: ticketID,
		DetailID: detailID,
		Reason:   req.Reason,
		Actor:    h.Actor(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTransition(res, h.Label()))
}

// RecordConsumption handles PUT /tickets/:id/details/:detailId/bom/:lineId
func (h *TicketHandler) RecordConsumption(c *gin.Context) {
	ticketID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	detailID, ok := h.ParamID(c, "detailId")
	if !ok {
		return
	}
	lineID, ok := h.ParamID(c, "lineId")
	if !ok {
		return
	}
	var req dto.ConsumptionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	d, err := h.engine.RecordConsumption(c.Request.Context(), workflow.ConsumptionRequest{
		TicketID: ticketID,
		DetailID: detailID,
		LineID:   lineID,
		Actual:   req.Actual,
		Actor:    h.Actor(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDetail(d))
}

// Cancel handles POST /tickets/:id/cancel
func (h *TicketHandler) Cancel(c *gin.Context) {
	ticketID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	t, err := h.engine.CancelTicket(c.Request.Context(), workflow.CancelRequest{
		TicketID: ticketID,
		Reason:   req.Reason,
		Actor:    h.Actor(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTicket(t))
}

// Recompute handles POST /tickets/:id/recompute
func (h *TicketHandler) Recompute(c *gin.Context) {
	ticketID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	changed, err := h.engine.Recompute(ctx, ticketID, h.Actor(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	t, err := h.engine.Ticket(ctx, ticketID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.RecomputeResponse{Changed: changed, Ticket: dto.FromTicket(t)})
}

// WorkflowHandler publishes the transition tables.
type WorkflowHandler struct {
	*BaseHandler
	engine *workflow.Engine
}

// NewWorkflowHandler creates a new workflow handler.
func NewWorkflowHandler(base *BaseHandler, engine *workflow.Engine) *WorkflowHandler {
	return &WorkflowHandler{BaseHandler: base, engine: engine}
}

// Rules handles GET /workflows/:domain/rules
func (h *WorkflowHandler) Rules(c *gin.Context) {
	domain, err := workflow.ParseDomain(c.Param("domain"))
	if err != nil {
		h.Error(c, err)
		return
	}
	rows, err := h.engine.Rules(domain)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.RuleResponse, len(rows))
	for i, r := range rows {
		out[i] = dto.FromRule(r)
	}
	h.OK(c, out)
}

// Describe handles GET /workflows/:domain/rules/:status
func (h *WorkflowHandler) Describe(c *gin.Context) {
	domain, err := workflow.ParseDomain(c.Param("domain"))
	if err != nil {
		h.Error(c, err)
		return
	}
	rule, err := h.engine.Describe(domain, workflow.Status(c.Param("status")))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRule(rule))
}
