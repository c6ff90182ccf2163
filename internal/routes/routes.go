package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/signalworks/email-delivery-service/internal/handlers"
	"github.com/signalworks/email-delivery-service/internal/middleware"
	"github.com/signalworks/email-delivery-service/pkg/metrics"
)

// SetupRoutes configures the routes for the application.
func SetupRoutes(
	router *gin.Engine,
	emailHandler *handlers.EmailHandler,
	templateHandler *handlers.TemplateHandler,
	breakerHandler *handlers.BreakerHandler,
	healthHandler *handlers.HealthHandler,
	redisClient *redis.Client,
	rateLimit int,
	rateWindow time.Duration,
) {
	router.Use(middleware.CorrelationIDMiddleware())

	v1 := router.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(redisClient, rateLimit, rateWindow))
	{
		emails := v1.Group("/emails")
		{
			emails.POST("/send", emailHandler.SendEmail)
			emails.POST("/queue", emailHandler.QueueEmail)
			emails.GET("/stats", emailHandler.GetStats)
			emails.GET("/:request_id/status", emailHandler.GetStatus)
		}

		templates := v1.Group("/templates")
		{
			templates.POST("", templateHandler.Create)
			templates.GET("", templateHandler.List)
			templates.GET("/:template_code", templateHandler.Get)
			templates.PUT("/:template_code", templateHandler.Update)
			templates.DELETE("/:template_code", templateHandler.Archive)
			templates.POST("/:template_code/render", templateHandler.Render)
			templates.GET("/:template_code/versions", templateHandler.ListVersions)
		}

		circuit := v1.Group("/circuit-breaker")
		{
			circuit.GET("", breakerHandler.GetState)
			circuit.POST("/reset", breakerHandler.Reset)
		}
	}

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}
