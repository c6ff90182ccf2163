package consumer

// OutcomeKind classifies the result of processing one queue message.
type OutcomeKind int

const (
	// OutcomeSent means the email was delivered and recorded.
	OutcomeSent OutcomeKind = iota
	// OutcomeDuplicate means the idempotency ledger already marked the
	// request done, so processing was a no-op.
	OutcomeDuplicate
	// OutcomeTerminal means the message can never succeed (malformed,
	// content-level template failure, or retry budget exhausted) and
	// belongs on the dead-letter queue.
	OutcomeTerminal
	// OutcomeRetryable means a transport failure consumed retry budget and
	// the message should be redelivered.
	OutcomeRetryable
	// OutcomeCircuitPaused means the circuit breaker rejected the call
	// before it reached the transport. The message is requeued without
	// consuming retry budget.
	OutcomeCircuitPaused
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSent:
		return "sent"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeCircuitPaused:
		return "circuit_paused"
	default:
		return "unknown"
	}
}

// Outcome is the closed result variant the broker acknowledgment logic
// consumes. Ack, requeue, and dead-letter decisions are a pure function of
// this value.
type Outcome struct {
	Kind      OutcomeKind
	RequestID string
	Err       error
}

// Disposition is the broker action derived from an outcome.
type Disposition int

const (
	// DispositionAck removes the message from the queue.
	DispositionAck Disposition = iota
	// DispositionRequeue returns the message to the queue for redelivery.
	DispositionRequeue
	// DispositionDeadLetter re-publishes the original payload to the
	// dead-letter queue and acknowledges the original.
	DispositionDeadLetter
)

// Disposition maps the outcome to a broker action.
func (o Outcome) Disposition() Disposition {
	switch o.Kind {
	case OutcomeSent, OutcomeDuplicate:
		return DispositionAck
	case OutcomeTerminal:
		return DispositionDeadLetter
	default:
		return DispositionRequeue
	}
}
