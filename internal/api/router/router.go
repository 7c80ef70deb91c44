package router

import (
	"context"
	"net/http"
	"time"

	"github.com/cuongbtq/printdesk/internal/api/handler"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "print-service"
	}

	// Health check endpoint
	r.GET("/health", healthHandler(serviceName, deps.HealthChecks))

	jobHandler := handler.NewJobHandler(deps)
	eventHandler := handler.NewEventHandler(deps)
	orderHandler := handler.NewOrderHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - List tracked jobs
			jobs.GET("", jobHandler.ListJobs)

			// POST /api/v1/jobs/sweep - Run the retention sweep now
			jobs.POST("/sweep", jobHandler.SweepJobs)

			// GET /api/v1/jobs/:customer_id - Get a customer's job
			jobs.GET("/:customer_id", jobHandler.GetJob)

			// POST /api/v1/jobs/:customer_id/cancel - Cancel a job
			jobs.POST("/:customer_id/cancel", jobHandler.CancelJob)

			// DELETE /api/v1/jobs/:customer_id - Delete a job and its files
			jobs.DELETE("/:customer_id", jobHandler.DeleteJob)
		}

		events := v1.Group("/events")
		{
			// POST /api/v1/events/text - Inject a chat text message
			events.POST("/text", eventHandler.PostText)

			// POST /api/v1/events/file - Inject a chat document upload
			events.POST("/file", eventHandler.PostFile)
		}

		// GET /api/v1/orders - List completed orders
		v1.GET("/orders", orderHandler.ListOrders)
	}

	return r
}

func healthHandler(serviceName string, checks map[string]handler.HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				components[name] = err.Error()
				continue
			}
			components[name] = "ok"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":     overall,
			"service":    serviceName,
			"components": components,
		})
	}
}
