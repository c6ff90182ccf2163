package services

import (
	"encoding/json"

	"github.com/streadway/amqp"

	"github.com/signalworks/email-delivery-service/internal/models"
)

// Publisher enqueues email messages for asynchronous delivery.
type Publisher struct {
	conn  *amqp.Connection
	queue string
}

// NewPublisher creates a new Publisher targeting the given queue.
func NewPublisher(conn *amqp.Connection, queue string) *Publisher {
	return &Publisher{conn: conn, queue: queue}
}

// Publish serializes the message and publishes it to the email queue via the
// default exchange.
func (p *Publisher) Publish(msg *models.QueueMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ch.Publish(
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}
