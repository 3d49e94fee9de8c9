// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/metadata"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	enums *metadata.Registry
}

// NewBaseHandler creates a new base handler. enums resolves status labels
// in responses and may be nil.
func NewBaseHandler(enums *metadata.Registry) *BaseHandler {
	return &BaseHandler{enums: enums}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the Gin context and aborts the request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Actor returns the acting user resolved by the auth middleware.
func (h *BaseHandler) Actor(c *gin.Context) string {
	return middleware.Actor(c)
}

// ParamID parses a UUID path parameter.
func (h *BaseHandler) ParamID(c *gin.Context, name string) (id.ID, bool) {
	v, err := id.Parse(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name+" format").WithDetail(name, c.Param(name)))
		return id.Nil, false
	}
	return v, true
}

// ItemParam parses the :kind and :id path parameters.
func (h *BaseHandler) ItemParam(c *gin.Context) (catalog.ItemRef, bool) {
	kind := catalog.VariantKind(c.Param("kind"))
	if !kind.Valid() {
		h.Error(c, apperror.NewValidation("unknown item kind").WithDetail("kind", c.Param("kind")))
		return catalog.ItemRef{}, false
	}
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return catalog.ItemRef{}, false
	}
	return catalog.ItemRef{Kind: kind, ID: itemID}, true
}

// Label returns the display label resolver for enum values.
func (h *BaseHandler) Label() dto.StatusLabeler {
	if h.enums == nil {
		return nil
	}
	return func(enum, value string) string {
		if v, ok := h.enums.Describe(enum, value); ok {
			return v.Label
		}
		return value
	}
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
