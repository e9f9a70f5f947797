package api

import (
	"github.com/gin-gonic/gin"

	"github.com/provguard/provguard/internal/config"
	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/provenance"
	"github.com/provguard/provguard/internal/repository"
	"github.com/provguard/provguard/internal/store"
)

func SetupRoutes(
	cfg *config.Config,
	stores []*store.Store,
	fetcher fetch.DiffFetcher,
	workerPool *provenance.WorkerPool,
	reportsRepo *repository.ReportsRepository,
) *gin.Engine {
	router := gin.Default()

	handler := NewHandler(cfg, stores, fetcher, workerPool, reportsRepo)

	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/check", handler.Check)
		api.GET("/report", handler.Report)
	}

	return router
}
