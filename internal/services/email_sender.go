package services

import (
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/signalworks/email-delivery-service/internal/config"
	"github.com/signalworks/email-delivery-service/pkg/breaker"
	"github.com/signalworks/email-delivery-service/pkg/metrics"
)

// EmailSender delivers mail over SMTP behind a circuit breaker, so a dead
// SMTP host fails fast instead of stalling every worker on timeouts.
type EmailSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	cb       *breaker.CircuitBreaker
	logger   *slog.Logger
}

// NewEmailSender creates a new EmailSender with its own breaker instance.
func NewEmailSender(cfg *config.Config, logger *slog.Logger) *EmailSender {
	cb := breaker.New(breaker.Settings{
		Name:             "smtp",
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		HalfOpenAttempts: cfg.CircuitBreakerHalfOpenAttempts,
	}, logger)

	logger.Info("email sender initialized",
		slog.String("smtp_host", cfg.SMTPHost),
		slog.Int("smtp_port", cfg.SMTPPort),
		slog.String("from", cfg.SMTPFrom),
	)

	return &EmailSender{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		cb:       cb,
		logger:   logger,
	}
}

// Deliver sends one email through the circuit breaker. A *breaker.OpenError
// means the call was rejected without touching SMTP; any other error is a
// genuine transport failure.
func (s *EmailSender) Deliver(recipient, subject, bodyHTML, bodyText, requestID string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from, s.fromName)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	if requestID != "" {
		msg.SetHeader("X-Request-ID", requestID)
	}

	switch {
	case bodyText != "" && bodyHTML != "":
		msg.SetBody("text/plain", bodyText)
		msg.AddAlternative("text/html", bodyHTML)
	case bodyHTML != "":
		msg.SetBody("text/html", bodyHTML)
	default:
		msg.SetBody("text/plain", bodyText)
	}

	start := time.Now()
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.dialer.DialAndSend(msg)
	})
	metrics.SendDuration.Observe(time.Since(start).Seconds())
	metrics.CircuitBreakerState.WithLabelValues("smtp").Set(stateValue(s.cb.State()))

	if err != nil {
		s.logger.Error("email delivery failed",
			slog.String("recipient", recipient),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		return err
	}

	s.logger.Info("email sent",
		slog.String("recipient", recipient),
		slog.String("request_id", requestID),
	)
	return nil
}

// BreakerSnapshot exposes the breaker state for observability endpoints.
func (s *EmailSender) BreakerSnapshot() breaker.Snapshot {
	return s.cb.Snapshot()
}

// ResetBreaker forces the breaker closed. Administrative use only.
func (s *EmailSender) ResetBreaker() {
	s.cb.Reset()
	metrics.CircuitBreakerState.WithLabelValues("smtp").Set(0)
}

func stateValue(state breaker.State) float64 {
	switch state {
	case breaker.StateOpen:
		return 1
	case breaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
