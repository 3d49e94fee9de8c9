package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// ItemHandler maintains the item-variant master data.
type ItemHandler struct {
	*BaseHandler
	items     catalog.Store
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewItemHandler creates a new item handler.
func NewItemHandler(base *BaseHandler, items catalog.Store, ledgerService *ledger.Service, txManager tx.Manager) *ItemHandler {
	return &ItemHandler{
		BaseHandler: base,
		items:       items,
		ledger:      ledgerService,
		txManager:   txManager,
	}
}

// Get handles GET /items/:kind/:id
func (h *ItemHandler) Get(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}
	state, err := h.items.Lookup(c.Request.Context(), item)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(state))
}

// Upsert handles PUT /items/:kind/:id
func (h *ItemHandler) Upsert(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}
	var req dto.UpsertItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	state := catalog.ItemState{Item: item, Name: req.Name, SKU: req.SKU}
	if err := h.items.Upsert(c.Request.Context(), state); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(state))
}

// Delete handles DELETE /items/:kind/:id
// The item is soft-deleted and its stock account deactivated.
func (h *ItemHandler) Delete(c *gin.Context) {
	item, ok := h.ItemParam(c)
	if !ok {
		return
	}

	actor := h.Actor(c)
	err := h.txManager.RunInTransaction(c.Request.Context(), func(ctx context.Context) error {
		if err := h.items.SetDeletionMark(ctx, item, true); err != nil {
			return err
		}
		if err := h.ledger.Invalidate(ctx, item, actor); err != nil && !apperror.IsNotFound(err) {
			return err
		}
		return nil
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
