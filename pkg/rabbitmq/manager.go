package rabbitmq

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

// Manager maintains a single AMQP connection and helps declare topology.
type Manager struct {
	url    string
	conn   *amqp.Connection
	logger *slog.Logger
	mu     sync.RWMutex
}

func NewManager(url string, logger *slog.Logger) (*Manager, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &Manager{
		url:    url,
		conn:   conn,
		logger: logger,
	}, nil
}

func (m *Manager) Connection() *amqp.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

// DeclareEmailTopology ensures the work queue and its dead-letter queue exist
// before any consumer or publisher touches them. Both queues hang off the
// default exchange; dead-lettered payloads are re-published verbatim.
func (m *Manager) DeclareEmailTopology(queue, deadLetterQueue string) error {
	ch, err := m.Connection().Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if deadLetterQueue != "" {
		if _, err := ch.QueueDeclare(
			deadLetterQueue,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("declare dead-letter queue %s: %w", deadLetterQueue, err)
		}
	}

	m.logger.Info("rabbitmq topology declared",
		slog.String("queue", queue),
		slog.String("dead_letter_queue", deadLetterQueue),
	)
	return nil
}
