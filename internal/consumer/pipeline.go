package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/signalworks/email-delivery-service/internal/models"
	"github.com/signalworks/email-delivery-service/pkg/breaker"
)

// DeliveryStore is the durable record persistence the pipeline needs.
type DeliveryStore interface {
	GetOrCreate(req *models.DeliveryRequest, maxRetries int) (*models.DeliveryLog, error)
	Save(record *models.DeliveryLog) error
}

// Ledger suppresses duplicate redeliveries of completed requests.
type Ledger interface {
	Exists(ctx context.Context, requestID string) (bool, error)
	MarkDone(ctx context.Context, requestID string) error
}

// Transport delivers a rendered email. Implementations wrap the call in a
// circuit breaker and surface rejections as *breaker.OpenError.
type Transport interface {
	Deliver(recipient, subject, bodyHTML, bodyText, requestID string) error
}

// TemplateRenderer resolves a template reference to concrete content.
type TemplateRenderer interface {
	Render(code string, variables map[string]string, language string) (*models.RenderedContent, error)
}

// Pipeline turns one raw queue message into a durable delivery attempt.
type Pipeline struct {
	store      DeliveryStore
	ledger     Ledger
	transport  Transport
	templates  TemplateRenderer
	maxRetries int
	logger     *slog.Logger
}

// NewPipeline creates a new Pipeline with explicit dependencies.
func NewPipeline(
	store DeliveryStore,
	ledger Ledger,
	transport Transport,
	templates TemplateRenderer,
	maxRetries int,
	logger *slog.Logger,
) *Pipeline {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Pipeline{
		store:      store,
		ledger:     ledger,
		transport:  transport,
		templates:  templates,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Process runs one message through normalization, duplicate suppression,
// durable status tracking, optional template rendering, and breaker-wrapped
// delivery. It never panics the worker loop; every path yields an Outcome
// the caller maps to an ack, requeue, or dead-letter.
func (p *Pipeline) Process(ctx context.Context, raw []byte) Outcome {
	req, err := models.ResolveDeliveryRequest(raw)
	if err != nil {
		// Poison message: no recipient to deliver to, retrying changes nothing.
		p.logger.Error("discarding malformed message", slog.Any("error", err))
		return Outcome{Kind: OutcomeTerminal, Err: err}
	}

	log := p.logger.With(
		slog.String("request_id", req.RequestID),
		slog.String("recipient", req.Recipient),
	)

	done, err := p.ledger.Exists(ctx, req.RequestID)
	if err != nil {
		// Degraded: a broken ledger must not stall delivery. Worst case is a
		// duplicate send, which the at-least-once contract already allows.
		log.Warn("idempotency check failed, continuing", slog.Any("error", err))
	}
	if done {
		log.Info("duplicate request suppressed")
		return Outcome{Kind: OutcomeDuplicate, RequestID: req.RequestID}
	}

	record, err := p.store.GetOrCreate(req, p.maxRetries)
	if err != nil {
		// Losing status tracking is less harmful than losing throughput.
		// Continue with an unsaved record; later saves are best-effort too.
		log.Error("delivery record write failed, continuing degraded", slog.Any("error", err))
		record = &models.DeliveryLog{
			RequestID:  req.RequestID,
			Recipient:  req.Recipient,
			Subject:    req.Subject,
			Status:     models.StatusProcessing,
			MaxRetries: p.maxRetries,
		}
	}

	subject, bodyHTML, bodyText := req.Subject, req.BodyHTML, req.BodyText
	if req.Template != nil {
		rendered, err := p.templates.Render(req.Template.Code, req.Template.Variables, req.Template.Language)
		if err != nil {
			if !contentError(err) {
				// The template store itself failed, not the message. Requeue
				// untouched so an outage never spends retry budget or parks a
				// good message on the dead-letter queue.
				log.Warn("template lookup failed, requeueing", slog.Any("error", err))
				return Outcome{Kind: OutcomeRetryable, RequestID: req.RequestID, Err: err}
			}
			// Content-level failure: the message itself is bad, so it skips
			// the retry budget and goes straight to the dead-letter queue.
			log.Error("template rendering failed", slog.Any("error", err))
			p.recordFailure(record, err, log)
			return Outcome{Kind: OutcomeTerminal, RequestID: req.RequestID, Err: err}
		}
		subject = rendered.Subject
		bodyHTML = rendered.BodyHTML
		if rendered.BodyText != "" {
			bodyText = rendered.BodyText
		}
	}

	err = p.transport.Deliver(req.Recipient, subject, bodyHTML, bodyText, req.RequestID)
	if err == nil {
		now := time.Now().UTC()
		record.Status = models.StatusSent
		record.SentAt = &now
		record.LastError = ""
		p.save(record, log)
		if err := p.ledger.MarkDone(ctx, req.RequestID); err != nil {
			log.Warn("failed to mark request done in ledger", slog.Any("error", err))
		}
		log.Info("email delivered")
		return Outcome{Kind: OutcomeSent, RequestID: req.RequestID}
	}

	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		// Infrastructure backoff, not a content failure: the record stays in
		// processing and the retry budget is untouched.
		log.Warn("circuit open, requeueing for later",
			slog.Duration("retry_after", openErr.RetryAfter),
		)
		return Outcome{Kind: OutcomeCircuitPaused, RequestID: req.RequestID, Err: err}
	}

	// Genuine transport failure. The durable record's retry count decides
	// requeue vs dead-letter; an in-memory counter would reset on restart.
	if record.RetryCount >= record.MaxRetries {
		p.recordFailure(record, err, log)
		log.Error("retry budget exhausted, dead-lettering",
			slog.Int("retry_count", record.RetryCount),
			slog.Any("error", err),
		)
		return Outcome{Kind: OutcomeTerminal, RequestID: req.RequestID, Err: err}
	}

	record.RetryCount++
	p.recordFailure(record, err, log)
	log.Warn("delivery failed, will retry",
		slog.Int("retry_count", record.RetryCount),
		slog.Int("max_retries", record.MaxRetries),
		slog.Any("error", err),
	)
	return Outcome{Kind: OutcomeRetryable, RequestID: req.RequestID, Err: err}
}

// contentError reports whether a render failure is a property of the message
// or the template itself. Only content failures are terminal; anything else
// (a dead database, a timeout) is transient infrastructure.
func contentError(err error) bool {
	var missing *models.MissingVariablesError
	var unresolved *models.UnresolvedReferenceError
	return errors.Is(err, models.ErrTemplateNotFound) ||
		errors.As(err, &missing) ||
		errors.As(err, &unresolved)
}

func (p *Pipeline) recordFailure(record *models.DeliveryLog, cause error, log *slog.Logger) {
	now := time.Now().UTC()
	record.Status = models.StatusFailed
	record.LastError = cause.Error()
	record.LastErrorAt = &now
	p.save(record, log)
}

func (p *Pipeline) save(record *models.DeliveryLog, log *slog.Logger) {
	if err := p.store.Save(record); err != nil {
		log.Error("failed to persist delivery record", slog.Any("error", err))
	}
}
