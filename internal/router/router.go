package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/handler"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	workerToken string,
	reviewH *handler.ReviewHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// All review routes require the worker shared secret
	v1 := r.Group("/api/v1")
	v1.Use(middleware.WorkerToken(workerToken))

	reviews := v1.Group("/reviews")
	reviews.POST("", reviewH.Submit)
	reviews.GET("/:id", reviewH.GetByID)
	reviews.GET("/:id/verdicts", reviewH.Verdicts)
	reviews.GET("/:id/export", reviewH.Export)

	return r
}
