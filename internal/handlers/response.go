package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/signalworks/email-delivery-service/internal/models"
)

// Every handler answers with the same envelope so clients can branch on
// the success flag before touching the payload.

func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.ResponseEnvelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondError(c *gin.Context, status int, message string, err error) {
	envelope := models.ResponseEnvelope{Message: message}
	if err != nil {
		envelope.Error = err.Error()
	}
	c.JSON(status, envelope)
}

func respondValidationError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "request validation failed", err)
}
