// Package router assembles the gin engines of the Loomi services.
package router

import (
	"sync/atomic"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	config "loomi-api/configs"
	"loomi-api/pkg/handlers"
	"loomi-api/pkg/services"
)

// Service names, also used as the "service" label of logs and metrics.
const (
	AIService      = "ai-orchestrator"
	PricingService = "pricing-engine"
	SupplyService  = "supply-chain"
	GatewayService = "gateway"
)

// Services bundles the domain services mounted by the gateway.
type Services struct {
	Pricing     *services.PricingService
	SupplyChain *services.SupplyChainService
	Assistant   *services.AssistantService
}

// NewPricingRouter serves the pricing engine.
func NewPricingRouter(cfg *config.Config, monitoring *services.MonitoringService, maintenance *atomic.Bool, pricing *services.PricingService) *gin.Engine {
	r := newEngine(cfg, PricingService, monitoring, maintenance)
	registerPricing(r, handlers.NewPricingHandler(pricing))
	return r
}

// NewSupplyRouter serves the supply-chain estimator.
func NewSupplyRouter(cfg *config.Config, monitoring *services.MonitoringService, maintenance *atomic.Bool, supply *services.SupplyChainService) *gin.Engine {
	r := newEngine(cfg, SupplyService, monitoring, maintenance)
	registerSupplyChain(r, handlers.NewSupplyChainHandler(supply))
	return r
}

// NewAssistantRouter serves the AI assistant gateway.
func NewAssistantRouter(cfg *config.Config, monitoring *services.MonitoringService, maintenance *atomic.Bool, assistant *services.AssistantService) *gin.Engine {
	r := newEngine(cfg, AIService, monitoring, maintenance)
	registerAssistant(r, handlers.NewAssistantHandler(assistant))
	return r
}

// NewGateway serves every endpoint of the three services from one engine.
func NewGateway(cfg *config.Config, monitoring *services.MonitoringService, maintenance *atomic.Bool, s Services) *gin.Engine {
	r := newEngine(cfg, GatewayService, monitoring, maintenance)
	registerPricing(r, handlers.NewPricingHandler(s.Pricing))
	registerSupplyChain(r, handlers.NewSupplyChainHandler(s.SupplyChain))
	registerAssistant(r, handlers.NewAssistantHandler(s.Assistant))
	return r
}

func registerPricing(r gin.IRoutes, h *handlers.PricingHandler) {
	r.POST("/calculate-price", h.CalculatePrice)
	r.POST("/bulk-pricing", h.BulkPricing)
	r.POST("/bulk-pricing/upload", h.UploadPriceList)
	r.POST("/bulk-pricing/export", h.ExportPriceList)
	r.GET("/market-trends", h.MarketTrends)
}

func registerSupplyChain(r gin.IRoutes, h *handlers.SupplyChainHandler) {
	r.POST("/check-inventory", h.CheckInventory)
	r.POST("/estimate-shipping", h.EstimateShipping)
	r.GET("/supply-risks", h.SupplyRisks)
}

func registerAssistant(r gin.IRoutes, h *handlers.AssistantHandler) {
	r.POST("/chat", h.Chat)
	r.POST("/visual-search", h.VisualSearch)
	r.POST("/analyze-emotion", h.AnalyzeEmotion)
}

// newEngine builds an engine with the shared middleware, health, metrics,
// admin and monitoring routes.
func newEngine(cfg *config.Config, service string, monitoring *services.MonitoringService, maintenance *atomic.Bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(monitoring.LoggingMiddleware())
	r.Use(cors.New(corsConfig(cfg)))

	adminHandler := handlers.NewAdminHandler(cfg, service, maintenance)
	monitoringHandler := handlers.NewMonitoringHandler(monitoring)

	r.GET("/health", adminHandler.HealthCheck)
	r.GET("/metrics", monitoring.MetricsHandler())

	v1 := r.Group("/api/v1")
	v1.Use(handlers.APIKeyAuth(cfg.APIKey))
	{
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		monitoringGroup := v1.Group("/monitoring")
		{
			monitoringGroup.GET("/logs", monitoringHandler.GetLogs)
		}
	}
	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders(handlers.APIKeyHeader, services.RequestIDHeader)
	corsCfg.AddExposeHeaders(services.RequestIDHeader, "Content-Disposition")
	return corsCfg
}
