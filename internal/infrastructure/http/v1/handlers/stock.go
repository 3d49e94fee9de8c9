package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/notify"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// movementFunc is a relative ledger mutation.
type movementFunc func(ctx context.Context, item catalog.ItemRef, mv ledger.Movement) (ledger.Result, error)

// StockHandler handles HTTP requests for stock accounts.
type StockHandler struct {
	*BaseHandler
	service  *ledger.Service
	notifier notify.Notifier
}

// NewStockHandler creates a new stock handler. Status changes caused by
// direct mutations are reported to notifier, which may be nil.
func NewStockHandler(base *BaseHandler, service *ledger.Service, notifier notify.Notifier) *StockHandler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &StockHandler{
		BaseHandler: base,
		service:     service,
		notifier:    notifier,
	}
}

// Movements maps the URL operation segment to its ledger mutation.
func (h *StockHandler) Movements() map[string]movementFunc {
	return map[string]movementFunc{
		"add-current":      h.service.AddToCurrentStock,
		"subtract-current": h.service.SubtractFromCurrentStock,
		"add-future":       h.service.AddToFutureStock,
		"remove-future":    h.service.RemoveFromFutureStock,
		"receive-future":   h.service.MoveFutureToCurrentStock,
		"allocate":         h.service.AddToAllocatedStock,
		"release":          h.service.RemoveFromAllocatedStock,
		"fulfil":           h.service.RemoveFromAllocatedAndCurrentStock,
	}
}

// Create handles POST /stock
func (h *StockHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.CreateAccount(c.Request.Context(), ledger.CreateAccountInput{
		Item:           req.Item(),
		InitialCurrent: req.InitialCurrent,
		MinAlert:       req.MinAlertStock,
		MaxLevel:       req.MaxStockLevel,
		Note:           req.Note,
		Actor:          h.Actor(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromResult(res, h.Label()))
}

// Get handles GET /stock/:kind/:id
func (h *StockHandler) Get(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}
	acc, err := h.service.GetAccount(c.Request.Context(), item)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAccount(*acc, h.Label()))
}

// History handles GET /stock/:kind/:id/history
func (h *StockHandler) History(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}
	var q dto.HistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	entries, err := h.service.History(c.Request.Context(), item, q.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, len(entries))
	for i, e := range entries {
		items[i] = dto.FromTransaction(e)
	}
	h.OK(c, dto.ListResponse[dto.TransactionResponse]{Items: items, Page: q.Page, PageSize: q.PageSize})
}

// SetCurrent handles PUT /stock/:kind/:id/current
func (h *StockHandler) SetCurrent(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}
	var req dto.SetStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.SetCurrentStock(c.Request.Context(), item, ledger.SetInput{
		Quantity:        req.Quantity,
		Note:            req.Note,
		Reference:       dto.ToReference(req.Reference),
		Actor:           h.Actor(c),
		CreateIfMissing: req.CreateIfMissing,
	})
	h.respond(c, res, err)
}

// Thresholds handles PATCH /stock/:kind/:id/thresholds
func (h *StockHandler) Thresholds(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}
	var req dto.ThresholdsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.UpdateThresholds(c.Request.Context(), item, req.MinAlertStock, req.MaxStockLevel, h.Actor(c))
	h.respond(c, res, err)
}

// IsEnough handles GET /stock/:kind/:id/is-enough?planned=
func (h *StockHandler) IsEnough(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}
	var q dto.IsEnoughQuery
	if !h.BindQuery(c, &q) {
		return
	}

	planned, err := q.Quantity()
	if err != nil {
		h.Error(c, err)
		return
	}

	enough, err := h.service.IsEnough(c.Request.Context(), item, planned)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IsEnoughResponse{
		Kind:    string(item.Kind),
		ItemID:  item.ID.String(),
		Planned: planned,
		Enough:  enough,
	})
}

// Movement returns the handler of POST /stock/:kind/:id/<operation>.
func (h *StockHandler) Movement(apply movementFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, ok := h.ItemParam(c)
		if !ok {
			return
		}
		var req dto.MovementRequest
		if !h.BindJSON(c, &req) {
			return
		}

		res, err := apply(c.Request.Context(), item, req.ToMovement(h.Actor(c)))
		h.respond(c, res, err)
	}
}

func (h *StockHandler) respond(c *gin.Context, res ledger.Result, err error) {
	if err != nil {
		h.Error(c, err)
		return
	}
	if res.StatusChanged() {
		h.notifier.NotifyStatusChange(c.Request.Context(), stockChange(res, h.Actor(c)))
	}
	h.OK(c, dto.FromResult(res, h.Label()))
}

func stockChange(res ledger.Result, actor string) notify.StatusChange {
	return notify.StatusChange{
		Subject:    notify.SubjectStockAccount,
		SubjectID:  res.Account.ID,
		OldStatus:  string(res.PreviousStatus),
		NewStatus:  string(res.Account.Status),
		ActorID:    actor,
		OccurredAt: res.Account.UpdatedAt,
	}
}

// BulkHandler handles bulk stock operations.
type BulkHandler struct {
	*BaseHandler
	service  *ledger.Service
	notifier notify.Notifier
}

// NewBulkHandler creates a new bulk handler.
func NewBulkHandler(base *BaseHandler, service *ledger.Service, notifier notify.Notifier) *BulkHandler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &BulkHandler{BaseHandler: base, service: service, notifier: notifier}
}

// Set handles POST /bulk/stock/set
func (h *BulkHandler) Set(c *gin.Context) {
	h.run(c, h.service.BulkSetCurrentStock)
}

// Add handles POST /bulk/stock/add
func (h *BulkHandler) Add(c *gin.Context) {
	h.run(c, h.service.BulkAddToCurrentStock)
}

// Subtract handles POST /bulk/stock/subtract
func (h *BulkHandler) Subtract(c *gin.Context) {
	h.run(c, h.service.BulkSubtractFromCurrentStock)
}

func (h *BulkHandler) run(c *gin.Context, op func(context.Context, ledger.BulkRequest) ledger.BulkResult) {
	var req dto.BulkStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	actor := h.Actor(c)
	result := op(c.Request.Context(), req.ToBulk(actor))
	for _, res := range result.Succeeded {
		if res.StatusChanged() {
			h.notifier.NotifyStatusChange(c.Request.Context(), stockChange(res, actor))
		}
	}
	h.OK(c, dto.FromBulkResult(result, h.Label()))
}
