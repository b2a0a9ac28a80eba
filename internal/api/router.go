// Package api exposes the HTTP surface: webhook ingestion, citation
// monitoring, cart lookups, and recovery statistics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/citation"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/config"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/lifecycle"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/telemetry"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/webhook"
)

// Health constants.
const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	healthCheckTimeout   = 2 * time.Second
	serviceVersion       = "1.0.0"
)

// WorkerStats exposes scheduler queue statistics to the stats endpoint.
type WorkerStats interface {
	GetStats(ctx context.Context) (map[string]any, error)
}

// Router holds the API dependencies
type Router struct {
	tracker   *lifecycle.Tracker
	citations CitationStore
	analyzer  *citation.Analyzer
	engine    *citation.Engine
	webhook   *webhook.Handler
	worker    WorkerStats
	db        *sqlx.DB
	redis     *redis.Client
	cfg       *config.Config
	telemetry *telemetry.Provider
	logger    logger.Logger
}

// RouterDeps contains dependencies for creating a Router.
type RouterDeps struct {
	Tracker   *lifecycle.Tracker
	Citations CitationStore
	Analyzer  *citation.Analyzer
	Engine    *citation.Engine
	Webhook   *webhook.Handler
	Worker    WorkerStats
	DB        *sqlx.DB
	Redis     *redis.Client
	Telemetry *telemetry.Provider
	Logger    logger.Logger
}

// NewRouter creates a new API router
func NewRouter(cfg *config.Config, deps RouterDeps) *Router {
	return &Router{
		tracker:   deps.Tracker,
		citations: deps.Citations,
		analyzer:  deps.Analyzer,
		engine:    deps.Engine,
		webhook:   deps.Webhook,
		worker:    deps.Worker,
		db:        deps.DB,
		redis:     deps.Redis,
		cfg:       cfg,
		telemetry: deps.Telemetry,
		logger:    deps.Logger,
	}
}

// SetupRoutes builds the gin engine with middleware and all routes.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(r.cfg.Server.CORSOrigins))

	// Health check (public, no auth)
	router.GET("/health", r.healthCheck)
	router.GET("/metrics", gin.WrapH(r.telemetry.Handler()))

	// Webhook ingestion authenticates with HMAC, not the API middleware
	router.POST("/cart/webhook", r.webhook.HandleEvent)

	r.setupServiceRoutes(router)

	return router
}

// setupServiceRoutes configures service-specific API routes.
func (r *Router) setupServiceRoutes(router *gin.Engine) {
	// Citation monitoring
	monitoring := router.Group("/citation-monitoring")
	monitoring.GET("/citations", r.listCitations)
	monitoring.POST("/analyze", r.analyzeResponse)
	monitoring.GET("/competitors", r.listCompetitors)
	monitoring.GET("/recommendations", r.getRecommendations)

	// Carts
	carts := router.Group("/carts")
	carts.GET("", r.listCarts)
	carts.GET("/:id", r.getCart)

	// Stats
	stats := router.Group("/stats")
	stats.GET("/recovery", r.getRecoveryStats)
	stats.GET("/worker", r.getWorkerStats)
}

// healthCheck returns the service health status
func (r *Router) healthCheck(c *gin.Context) {
	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "brandops",
		"version": serviceVersion,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK

	if r.db != nil {
		if err := r.db.PingContext(ctx); err != nil {
			health["status"] = healthStatusDegraded
			health["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			health["database"] = "ok"
		}
	}

	if r.redis != nil {
		if err := r.redis.Ping(ctx).Err(); err != nil {
			health["status"] = healthStatusDegraded
			health["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			health["redis"] = "ok"
		}
	}

	c.JSON(status, health)
}
