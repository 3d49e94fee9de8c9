package handlers

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/metadata"
)

type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
}

func NewMetadataHandler(base *BaseHandler, registry *metadata.Registry) *MetadataHandler {
	return &MetadataHandler{
		BaseHandler: base,
		registry:    registry,
	}
}

// ListEnums returns every registered enumeration.
// GET /api/v1/meta/enums
func (h *MetadataHandler) ListEnums(c *gin.Context) {
	h.OK(c, h.registry.List())
}

// GetEnum returns one enumeration.
// GET /api/v1/meta/enums/:name
func (h *MetadataHandler) GetEnum(c *gin.Context) {
	name := c.Param("name")
	def, ok := h.registry.Get(name)
	if !ok {
		h.Error(c, apperror.NewNotFound("enum", name))
		return
	}
	h.OK(c, def)
}
