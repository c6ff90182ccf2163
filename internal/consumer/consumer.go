package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/signalworks/email-delivery-service/pkg/metrics"
	"github.com/signalworks/email-delivery-service/pkg/rabbitmq"
)

// Consumer pulls messages from the email queue one at a time and runs them
// through the pipeline. Prefetch is pinned to 1 so a worker never holds more
// than one unacknowledged message and ordering within the worker stays
// deterministic.
type Consumer struct {
	manager  *rabbitmq.Manager
	pipeline *Pipeline
	queue    string
	dlq      string
	logger   *slog.Logger
}

// New creates a new Consumer.
func New(manager *rabbitmq.Manager, pipeline *Pipeline, queue, dlq string, logger *slog.Logger) *Consumer {
	return &Consumer{
		manager:  manager,
		pipeline: pipeline,
		queue:    queue,
		dlq:      dlq,
		logger:   logger,
	}
}

// Run consumes until ctx is cancelled. Cancellation is honored only at
// message boundaries: an in-flight message finishes its processing and its
// acknowledgment before the loop exits, so no record is left mid-transition.
// A closed delivery channel is an unrecoverable broker failure and returns
// an error so the supervisor can restart the process.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.manager.Connection().Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	c.logger.Info("consuming", slog.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer draining, no new messages will be pulled")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue)
			}
			c.handle(ctx, ch, delivery)
		}
	}
}

// handle processes one delivery and settles it with the broker. Every path
// either acknowledges or rejects the message; nothing is silently dropped.
func (c *Consumer) handle(ctx context.Context, ch *amqp.Channel, delivery amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while processing message, requeueing", slog.Any("panic", r))
			if err := delivery.Nack(false, true); err != nil {
				c.logger.Error("failed to nack after panic", slog.Any("error", err))
			}
		}
	}()

	outcome := c.pipeline.Process(ctx, delivery.Body)
	metrics.MessagesProcessed.WithLabelValues(outcome.Kind.String()).Inc()

	switch outcome.Kind {
	case OutcomeSent:
		metrics.EmailsSent.Inc()
	case OutcomeDuplicate:
		metrics.DuplicatesSuppressed.Inc()
	case OutcomeRetryable:
		metrics.EmailsFailed.Inc()
	}

	switch outcome.Disposition() {
	case DispositionAck:
		if err := delivery.Ack(false); err != nil {
			c.logger.Error("ack failed", slog.String("request_id", outcome.RequestID), slog.Any("error", err))
		}

	case DispositionRequeue:
		if err := delivery.Nack(false, true); err != nil {
			c.logger.Error("nack failed", slog.String("request_id", outcome.RequestID), slog.Any("error", err))
		}

	case DispositionDeadLetter:
		if err := c.publishDeadLetter(ch, delivery.Body); err != nil {
			// Keep the message alive rather than lose it: requeue and let a
			// later attempt dead-letter it once the broker write succeeds.
			c.logger.Error("dead-letter publish failed, requeueing original",
				slog.String("request_id", outcome.RequestID),
				slog.Any("error", err),
			)
			if nackErr := delivery.Nack(false, true); nackErr != nil {
				c.logger.Error("nack failed", slog.Any("error", nackErr))
			}
			return
		}
		metrics.DeadLettered.Inc()
		c.logger.Warn("message dead-lettered",
			slog.String("request_id", outcome.RequestID),
			slog.Any("error", outcome.Err),
		)
		if err := delivery.Ack(false); err != nil {
			c.logger.Error("ack failed after dead-letter", slog.Any("error", err))
		}
	}
}

// publishDeadLetter re-publishes the original payload unchanged to the
// dead-letter queue for manual inspection.
func (c *Consumer) publishDeadLetter(ch *amqp.Channel, body []byte) error {
	return ch.Publish(
		"",    // default exchange
		c.dlq, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}
