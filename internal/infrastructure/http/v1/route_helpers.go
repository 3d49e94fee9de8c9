package v1

import (
	"slices"

	"github.com/gin-gonic/gin"

	"stockflow/internal/infrastructure/http/v1/handlers"
)

// StockRouteHandler is implemented by handlers.StockHandler.
type StockRouteHandler interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	History(c *gin.Context)
	SetCurrent(c *gin.Context)
	Thresholds(c *gin.Context)
	IsEnough(c *gin.Context)
}

// RegisterStockRoutes registers account routes plus one POST route per
// relative movement, e.g. POST /stock/product/{id}/allocate.
func RegisterStockRoutes(group *gin.RouterGroup, h *handlers.StockHandler) {
	registerAccountRoutes(group, h)

	movements := h.Movements()
	names := make([]string, 0, len(movements))
	for name := range movements {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		group.POST("/:kind/:id/"+name, h.Movement(movements[name]))
	}
}

func registerAccountRoutes(group *gin.RouterGroup, h StockRouteHandler) {
	group.POST("", h.Create)
	group.GET("/:kind/:id", h.Get)
	group.GET("/:kind/:id/history", h.History)
	group.GET("/:kind/:id/is-enough", h.IsEnough)
	group.PUT("/:kind/:id/current", h.SetCurrent)
	group.PATCH("/:kind/:id/thresholds", h.Thresholds)
}

// RegisterTicketRoutes registers ticket and detail routes.
func RegisterTicketRoutes(group *gin.RouterGroup, h *handlers.TicketHandler) {
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.POST("/:id/cancel", h.Cancel)
	group.POST("/:id/recompute", h.Recompute)
	group.POST("/:id/details/:detailId/transitions", h.Transition)
	group.POST("/:id/details/:detailId/cancel", h.CancelDetail)
	group.PUT("/:id/details/:detailId/bom/:lineId", h.RecordConsumption)
}
