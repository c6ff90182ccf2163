package breaker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the current mode of a circuit breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// OpenError is returned when a call is rejected because the circuit is open.
// RetryAfter reports how long callers should wait before the next probe.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open, retry after %s", e.Name, e.RetryAfter.Round(100*time.Millisecond))
}

// Settings configures a CircuitBreaker instance.
type Settings struct {
	// Name identifies the protected target, e.g. "smtp".
	Name string
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// Timeout is how long the circuit stays open before a recovery probe is allowed.
	Timeout time.Duration
	// HalfOpenAttempts is the number of consecutive successes required to close
	// the circuit again after a probe is admitted.
	HalfOpenAttempts int
}

// Snapshot is a point-in-time view of breaker state for observability.
type Snapshot struct {
	Name                string    `json:"name"`
	State               State     `json:"state"`
	FailureCount        int       `json:"failure_count"`
	SuccessCount        int       `json:"success_count"`
	LastFailureTime     time.Time `json:"last_failure_time"`
	LastStateChangeTime time.Time `json:"last_state_change_time"`
	UptimeSeconds       float64   `json:"uptime_seconds"`
}

// CircuitBreaker isolates a failing downstream dependency. While closed every
// call passes through; after FailureThreshold consecutive failures the circuit
// opens and calls are rejected until Timeout elapses, at which point a limited
// number of probe calls decide whether the dependency has recovered.
//
// All state checks and mutations happen under a single mutex so concurrent
// callers cannot race past the half-open probe budget.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	timeout          time.Duration
	halfOpenAttempts int
	logger           *slog.Logger

	mu                  sync.Mutex
	state               State
	failureCount        int
	successCount        int
	lastFailureTime     time.Time
	lastStateChangeTime time.Time

	now func() time.Time
}

// New creates a closed CircuitBreaker from the given settings. Zero or
// negative settings fall back to conservative defaults.
func New(settings Settings, logger *slog.Logger) *CircuitBreaker {
	if settings.Name == "" {
		settings.Name = "default"
	}
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.HalfOpenAttempts <= 0 {
		settings.HalfOpenAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	cb := &CircuitBreaker{
		name:             settings.Name,
		failureThreshold: settings.FailureThreshold,
		timeout:          settings.Timeout,
		halfOpenAttempts: settings.HalfOpenAttempts,
		logger:           logger,
		state:            StateClosed,
		now:              time.Now,
	}
	cb.lastStateChangeTime = cb.now()

	logger.Info("circuit breaker initialized",
		slog.String("name", settings.Name),
		slog.Int("failure_threshold", settings.FailureThreshold),
		slog.Duration("timeout", settings.Timeout),
	)
	return cb
}

// Execute runs op if the circuit admits the call. It returns op's result on
// success, op's own error after recording a failure, or an *OpenError without
// invoking op when the circuit rejects the call.
func (cb *CircuitBreaker) Execute(op func() (interface{}, error)) (interface{}, error) {
	if err := cb.beforeCall(); err != nil {
		return nil, err
	}

	result, err := op()
	if err != nil {
		cb.onFailure()
		return nil, err
	}

	cb.onSuccess()
	return result, nil
}

// beforeCall rejects the call while open, or flips to half-open once the
// timeout has elapsed so the call proceeds as a recovery probe.
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}

	elapsed := cb.now().Sub(cb.lastFailureTime)
	if elapsed < cb.timeout {
		return &OpenError{Name: cb.name, RetryAfter: cb.timeout - elapsed}
	}

	cb.state = StateHalfOpen
	cb.failureCount = 0
	cb.successCount = 0
	cb.lastStateChangeTime = cb.now()
	cb.logger.Info("circuit breaker half-open, probing recovery", slog.String("name", cb.name))
	return nil
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.successCount++
		cb.logger.Info("circuit breaker probe succeeded",
			slog.String("name", cb.name),
			slog.Int("successes", cb.successCount),
			slog.Int("required", cb.halfOpenAttempts),
		)
		if cb.successCount >= cb.halfOpenAttempts {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			cb.lastStateChangeTime = cb.now()
			cb.logger.Info("circuit breaker closed, service recovered", slog.String("name", cb.name))
		}
		return
	}

	cb.failureCount = 0
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	cb.logger.Warn("circuit breaker recorded failure",
		slog.String("name", cb.name),
		slog.Int("failures", cb.failureCount),
		slog.Int("threshold", cb.failureThreshold),
	)

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.failureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		// A single failed probe sends the circuit straight back to open.
		cb.open()
	}
}

// open transitions to the open state. Callers must hold cb.mu.
func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.lastStateChangeTime = cb.now()
	cb.logger.Error("circuit breaker opened",
		slog.String("name", cb.name),
		slog.Duration("timeout", cb.timeout),
	)
}

// Snapshot returns the current breaker state for observability endpoints.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Snapshot{
		Name:                cb.name,
		State:               cb.state,
		FailureCount:        cb.failureCount,
		SuccessCount:        cb.successCount,
		LastFailureTime:     cb.lastFailureTime,
		LastStateChangeTime: cb.lastStateChangeTime,
		UptimeSeconds:       cb.now().Sub(cb.lastStateChangeTime).Seconds(),
	}
}

// State returns the current state without the full snapshot.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed with zero counters. This is an
// administrative override that bypasses the normal transition logic.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.lastStateChangeTime = cb.now()
	cb.logger.Info("circuit breaker manually reset", slog.String("name", cb.name))
}
