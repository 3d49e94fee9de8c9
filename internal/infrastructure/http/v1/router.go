// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/core/tx"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/notify"
	"stockflow/internal/domain/workflow"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/metadata"
	"stockflow/pkg/logger"
)

// RouterConfig holds the router's collaborators.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Debug switches gin to debug mode.
	Debug bool

	Ledger    *ledger.Service
	Engine    *workflow.Engine
	Items     catalog.Store
	TxManager tx.Manager

	// Notifier receives status changes of direct stock mutations.
	Notifier notify.Notifier

	// TokenValidator checks bearer tokens. When nil the acting user is read
	// from the X-Actor-ID header.
	TokenValidator middleware.TokenValidator

	// Idempotency enables X-Idempotency-Key handling when set.
	Idempotency middleware.IdempotencyStore

	// Enums backs /meta and status labels.
	Enums *metadata.Registry

	HealthChecks []handlers.HealthCheck
	Info         map[string]any
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Enums == nil {
		cfg.Enums = metadata.NewRegistry()
	}
	dto.RegisterValidators()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Info, cfg.HealthChecks...)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler(cfg.Enums)

	v1 := router.Group("/api/v1")
	{
		registerMetaRoutes(v1, base, cfg)

		protected := v1.Group("")
		if cfg.TokenValidator != nil {
			protected.Use(middleware.Auth(cfg.TokenValidator))
		} else {
			protected.Use(middleware.HeaderActor())
		}
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency))
		}

		registerStockRoutes(protected, base, cfg)
		registerTicketRoutes(protected, base, cfg)
		registerItemRoutes(protected, base, cfg)
	}

	return router
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	RegisterStockRoutes(rg.Group("/stock"), handlers.NewStockHandler(base, cfg.Ledger, cfg.Notifier))

	bulk := handlers.NewBulkHandler(base, cfg.Ledger, cfg.Notifier)
	bulkGroup := rg.Group("/bulk/stock")
	{
		bulkGroup.POST("/set", bulk.Set)
		bulkGroup.POST("/add", bulk.Add)
		bulkGroup.POST("/subtract", bulk.Subtract)
	}
}

func registerTicketRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	RegisterTicketRoutes(rg.Group("/tickets"), handlers.NewTicketHandler(base, cfg.Engine))

	wf := handlers.NewWorkflowHandler(base, cfg.Engine)
	rules := rg.Group("/workflows/:domain/rules")
	{
		rules.GET("", wf.Rules)
		rules.GET("/:status", wf.Describe)
	}
}

func registerItemRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Items == nil {
		return
	}
	h := handlers.NewItemHandler(base, cfg.Items, cfg.Ledger, cfg.TxManager)
	items := rg.Group("/items")
	{
		items.GET("/:kind/:id", h.Get)
		items.PUT("/:kind/:id", h.Upsert)
		items.DELETE("/:kind/:id", h.Delete)
	}
}

// registerMetaRoutes registers enum metadata endpoints. They are public.
func registerMetaRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewMetadataHandler(base, cfg.Enums)
	meta := rg.Group("/meta")
	{
		meta.GET("/enums", handler.ListEnums)
		meta.GET("/enums/:name", handler.GetEnum)
	}
}
