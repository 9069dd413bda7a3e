package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/agentlens/analyzer"
	"github.com/use-agent/agentlens/api/handler"
	"github.com/use-agent/agentlens/api/middleware"
	"github.com/use-agent/agentlens/cache"
	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(an *analyzer.Analyzer, cfg *config.Config, cc *cache.Cache, engines []string, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	wh := webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(engines, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Single-target analysis.
	protected.POST("/analyze", handler.Analyze(an, cc, wh))

	// Multi-target analysis.
	protected.POST("/batch/analyze", handler.BatchAnalyze(an, wh))

	return r
}
