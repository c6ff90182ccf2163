package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/signalworks/email-delivery-service/internal/repository"
	"github.com/signalworks/email-delivery-service/internal/services"
	"github.com/signalworks/email-delivery-service/pkg/breaker"
)

// HealthHandler reports the service's dependency health.
type HealthHandler struct {
	db        *gorm.DB
	redisRepo *repository.RedisRepository
	sender    *services.EmailSender
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *gorm.DB, redisRepo *repository.RedisRepository, sender *services.EmailSender) *HealthHandler {
	return &HealthHandler{db: db, redisRepo: redisRepo, sender: sender}
}

// Check reports healthy when every dependency responds, degraded otherwise.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	database := "connected"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		database = "disconnected"
	}

	redis := "connected"
	if err := h.redisRepo.Ping(ctx); err != nil {
		redis = "disconnected"
	}

	smtp := "healthy"
	if h.sender.BreakerSnapshot().State == breaker.StateOpen {
		smtp = "unhealthy"
	}

	status := "healthy"
	if database != "connected" || redis != "connected" || smtp != "healthy" {
		status = "degraded"
	}

	respondSuccess(c, http.StatusOK, "email-service health", gin.H{
		"status": status,
		"dependencies": gin.H{
			"database": database,
			"redis":    redis,
			"smtp":     smtp,
		},
	})
}
