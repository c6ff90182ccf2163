// Package metrics defines Prometheus metrics for the email delivery
// service, covering pipeline outcomes, dead-lettering, SMTP latency, and
// circuit breaker state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_messages_processed_total",
		Help: "Total number of queue messages processed, by outcome",
	}, []string{"outcome"})
	EmailsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "email_sent_total",
		Help: "Total number of emails delivered successfully",
	})
	EmailsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "email_failed_total",
		Help: "Total number of delivery attempts that failed at the transport",
	})
	DuplicatesSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "email_duplicates_suppressed_total",
		Help: "Total number of messages skipped by the idempotency check",
	})
	DeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "email_dead_lettered_total",
		Help: "Total number of messages routed to the dead-letter queue",
	})
	SendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "email_send_duration_seconds",
		Help:    "Latency of SMTP delivery attempts",
		Buckets: prometheus.DefBuckets,
	})
	// CircuitBreakerState reports 0 for closed, 1 for open, 2 for half-open.
	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "email_circuit_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"name"})
)

func init() {
	prometheus.MustRegister(
		MessagesProcessed,
		EmailsSent,
		EmailsFailed,
		DuplicatesSuppressed,
		DeadLettered,
		SendDuration,
		CircuitBreakerState,
	)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
