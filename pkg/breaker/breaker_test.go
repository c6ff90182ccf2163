package breaker

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSMTPDown = errors.New("smtp: connection refused")

func newTestBreaker(t *testing.T, settings Settings) (*CircuitBreaker, *time.Time) {
	t.Helper()
	cb := New(settings, slog.Default())
	current := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return current }
	return cb, &current
}

func fail(cb *CircuitBreaker) error {
	_, err := cb.Execute(func() (interface{}, error) { return nil, errSMTPDown })
	return err
}

func succeed(cb *CircuitBreaker) error {
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	return err
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(t, Settings{Name: "smtp", FailureThreshold: 3, Timeout: 30 * time.Second})

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, fail(cb), errSMTPDown)
		assert.Equal(t, StateClosed, cb.State())
	}

	require.ErrorIs(t, fail(cb), errSMTPDown)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerRejectsWhileOpenWithRemainingWait(t *testing.T) {
	cb, now := newTestBreaker(t, Settings{Name: "smtp", FailureThreshold: 3, Timeout: 30 * time.Second})

	for i := 0; i < 3; i++ {
		fail(cb)
	}
	require.Equal(t, StateOpen, cb.State())

	*now = now.Add(5 * time.Second)

	invoked := false
	_, err := cb.Execute(func() (interface{}, error) {
		invoked = true
		return nil, nil
	})

	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.False(t, invoked, "operation must not run while the circuit is open")
	assert.Equal(t, "smtp", openErr.Name)
	assert.Equal(t, 25*time.Second, openErr.RetryAfter)
}

func TestBreakerClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb, now := newTestBreaker(t, Settings{Name: "smtp", FailureThreshold: 3, Timeout: 30 * time.Second, HalfOpenAttempts: 1})

	for i := 0; i < 3; i++ {
		fail(cb)
	}

	*now = now.Add(31 * time.Second)

	require.NoError(t, succeed(cb))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerRequiresAllHalfOpenSuccesses(t *testing.T) {
	cb, now := newTestBreaker(t, Settings{Name: "smtp", FailureThreshold: 2, Timeout: 10 * time.Second, HalfOpenAttempts: 3})

	fail(cb)
	fail(cb)
	require.Equal(t, StateOpen, cb.State())

	*now = now.Add(11 * time.Second)

	require.NoError(t, succeed(cb))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, succeed(cb))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, succeed(cb))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb, now := newTestBreaker(t, Settings{Name: "smtp", FailureThreshold: 2, Timeout: 10 * time.Second, HalfOpenAttempts: 2})

	fail(cb)
	fail(cb)

	*now = now.Add(11 * time.Second)

	require.NoError(t, succeed(cb))
	require.Equal(t, StateHalfOpen, cb.State())

	require.ErrorIs(t, fail(cb), errSMTPDown)
	assert.Equal(t, StateOpen, cb.State())

	// Counters reset once the next probe window opens.
	*now = now.Add(11 * time.Second)
	require.NoError(t, succeed(cb))
	snap := cb.Snapshot()
	assert.Equal(t, 0, snap.FailureCount)
	assert.Equal(t, 1, snap.SuccessCount)
}

func TestBreakerSuccessResetsFailureCountWhileClosed(t *testing.T) {
	cb, _ := newTestBreaker(t, Settings{Name: "smtp", FailureThreshold: 3, Timeout: 30 * time.Second})

	fail(cb)
	fail(cb)
	require.NoError(t, succeed(cb))

	// Two more failures stay under the threshold because the streak restarted.
	fail(cb)
	fail(cb)
	assert.Equal(t, StateClosed, cb.State())

	fail(cb)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerReset(t *testing.T) {
	cb, _ := newTestBreaker(t, Settings{Name: "smtp", FailureThreshold: 1, Timeout: time.Hour})

	fail(cb)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()

	snap := cb.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.FailureCount)
	assert.Equal(t, 0, snap.SuccessCount)
	require.NoError(t, succeed(cb))
}

func TestBreakerPassesThroughResult(t *testing.T) {
	cb, _ := newTestBreaker(t, Settings{Name: "smtp"})

	result, err := cb.Execute(func() (interface{}, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestBreakerConcurrentProbesRespectBudget(t *testing.T) {
	cb := New(Settings{Name: "smtp", FailureThreshold: 1, Timeout: time.Nanosecond, HalfOpenAttempts: 2}, slog.Default())

	fail(cb)
	time.Sleep(time.Millisecond)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			succeed(cb)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, StateClosed, cb.State())
}
