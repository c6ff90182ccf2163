package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/signalworks/email-delivery-service/internal/services"
)

// BreakerHandler exposes the SMTP circuit breaker for observability and
// administrative resets.
type BreakerHandler struct {
	sender *services.EmailSender
}

// NewBreakerHandler creates a new BreakerHandler.
func NewBreakerHandler(sender *services.EmailSender) *BreakerHandler {
	return &BreakerHandler{sender: sender}
}

// GetState returns a snapshot of the breaker.
func (h *BreakerHandler) GetState(c *gin.Context) {
	respondSuccess(c, http.StatusOK, "circuit breaker state", h.sender.BreakerSnapshot())
}

// Reset forces the breaker closed, bypassing the normal transition logic.
func (h *BreakerHandler) Reset(c *gin.Context) {
	h.sender.ResetBreaker()
	respondSuccess(c, http.StatusOK, "circuit breaker reset", h.sender.BreakerSnapshot())
}
