package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/signalworks/email-delivery-service/internal/models"
	"github.com/signalworks/email-delivery-service/pkg/breaker"
)

// DeliveryStore is the persistence surface the email handler needs.
type DeliveryStore interface {
	GetOrCreate(req *models.DeliveryRequest, maxRetries int) (*models.DeliveryLog, error)
	Save(record *models.DeliveryLog) error
	GetByRequestID(requestID string) (*models.DeliveryLog, error)
	CountByStatus() (map[models.DeliveryStatus]int64, error)
}

// Ledger suppresses duplicate submissions of completed requests.
type Ledger interface {
	Exists(ctx context.Context, requestID string) (bool, error)
	MarkDone(ctx context.Context, requestID string) error
}

// Sender delivers mail through the circuit breaker.
type Sender interface {
	Deliver(recipient, subject, bodyHTML, bodyText, requestID string) error
	BreakerSnapshot() breaker.Snapshot
}

// QueuePublisher enqueues messages for asynchronous delivery.
type QueuePublisher interface {
	Publish(msg *models.QueueMessage) error
}

// EmailHandler serves the synchronous send path, asynchronous enqueueing,
// and status lookups.
type EmailHandler struct {
	store      DeliveryStore
	ledger     Ledger
	sender     Sender
	publisher  QueuePublisher
	maxRetries int
	logger     *slog.Logger
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(
	store DeliveryStore,
	ledger Ledger,
	sender Sender,
	publisher QueuePublisher,
	maxRetries int,
	logger *slog.Logger,
) *EmailHandler {
	return &EmailHandler{
		store:      store,
		ledger:     ledger,
		sender:     sender,
		publisher:  publisher,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// SendEmail delivers an email synchronously through the circuit breaker.
// Duplicates are acknowledged as no-ops; an open circuit is surfaced as 503
// so callers can apply their own backoff.
func (h *EmailHandler) SendEmail(c *gin.Context) {
	var req models.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = "api_" + uuid.NewString()
	}

	if done, err := h.ledger.Exists(c.Request.Context(), requestID); err != nil {
		h.logger.Warn("idempotency check failed", slog.Any("error", err))
	} else if done {
		// The ledger only proves a successful terminal outcome; the record
		// holds the real status, e.g. a later asynchronous bounce.
		status := models.StatusSent
		if record, err := h.store.GetByRequestID(requestID); err == nil && record != nil {
			status = record.Status
		}
		respondSuccess(c, http.StatusOK, "duplicate request", gin.H{
			"request_id": requestID,
			"status":     string(status),
		})
		return
	}

	delivery := &models.DeliveryRequest{
		RequestID:     requestID,
		Recipient:     req.ToEmail,
		Subject:       req.Subject,
		BodyText:      req.Content,
		BodyHTML:      req.HTMLContent,
		CorrelationID: firstOf(req.CorrelationID, c.GetString("correlation_id")),
		Metadata:      req.Metadata,
	}

	record, err := h.store.GetOrCreate(delivery, h.maxRetries)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to record delivery", err)
		return
	}

	err = h.sender.Deliver(req.ToEmail, req.Subject, req.HTMLContent, req.Content, requestID)
	if err != nil {
		var openErr *breaker.OpenError
		if errors.As(err, &openErr) {
			// The record stays in processing; the outage is not this
			// request's fault.
			c.Header("Retry-After", openErr.RetryAfter.Round(time.Second).String())
			respondError(c, http.StatusServiceUnavailable, "delivery temporarily unavailable", err)
			return
		}

		now := time.Now().UTC()
		record.Status = models.StatusFailed
		record.LastError = err.Error()
		record.LastErrorAt = &now
		if saveErr := h.store.Save(record); saveErr != nil {
			h.logger.Error("failed to persist delivery record", slog.Any("error", saveErr))
		}
		respondError(c, http.StatusBadGateway, "failed to send email", err)
		return
	}

	now := time.Now().UTC()
	record.Status = models.StatusSent
	record.SentAt = &now
	if saveErr := h.store.Save(record); saveErr != nil {
		h.logger.Error("failed to persist delivery record", slog.Any("error", saveErr))
	}
	if err := h.ledger.MarkDone(c.Request.Context(), requestID); err != nil {
		h.logger.Warn("failed to mark request done", slog.Any("error", err))
	}

	respondSuccess(c, http.StatusOK, "email sent", gin.H{
		"request_id": requestID,
		"status":     string(models.StatusSent),
	})
}

// QueueEmail publishes an email to the work queue for asynchronous delivery.
func (h *EmailHandler) QueueEmail(c *gin.Context) {
	var req models.QueueEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	msg := &models.QueueMessage{
		RequestID:         requestID,
		ToEmail:           req.ToEmail,
		Subject:           req.Subject,
		Content:           req.Content,
		HTMLContent:       req.HTMLContent,
		TemplateCode:      req.TemplateCode,
		TemplateLanguage:  req.TemplateLanguage,
		TemplateVariables: req.TemplateVariables,
		CorrelationID:     firstOf(req.CorrelationID, c.GetString("correlation_id")),
		Metadata:          req.Metadata,
	}

	if err := h.publisher.Publish(msg); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to queue email", err)
		return
	}

	respondSuccess(c, http.StatusAccepted, "email queued", gin.H{
		"request_id": requestID,
		"status":     string(models.StatusPending),
	})
}

// GetStatus returns the delivery record for a request id.
func (h *EmailHandler) GetStatus(c *gin.Context) {
	requestID := c.Param("request_id")
	if requestID == "" {
		respondError(c, http.StatusBadRequest, "request_id is required", nil)
		return
	}

	record, err := h.store.GetByRequestID(requestID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load delivery record", err)
		return
	}
	if record == nil {
		respondError(c, http.StatusNotFound, "email not found", nil)
		return
	}

	respondSuccess(c, http.StatusOK, "email status retrieved", record)
}

// GetStats aggregates record counts per status alongside the breaker state.
func (h *EmailHandler) GetStats(c *gin.Context) {
	counts, err := h.store.CountByStatus()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to aggregate stats", err)
		return
	}

	respondSuccess(c, http.StatusOK, "email stats retrieved", gin.H{
		"status_breakdown": counts,
		"circuit_breaker":  h.sender.BreakerSnapshot(),
	})
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
