package services

import (
	"context"
	"time"

	"github.com/signalworks/email-delivery-service/internal/repository"
)

const idempotencyKeyPrefix = "idempotency:"

// IdempotencyLedger records request ids that reached a successful terminal
// outcome. Presence of a key means the request must not be reprocessed.
// Entries expire after a TTL, so a redelivery long after success may be
// processed again; that is the documented at-least-once relaxation.
type IdempotencyLedger struct {
	redisRepo *repository.RedisRepository
	ttl       time.Duration
}

// NewIdempotencyLedger creates a new IdempotencyLedger.
func NewIdempotencyLedger(redisRepo *repository.RedisRepository, ttl time.Duration) *IdempotencyLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyLedger{redisRepo: redisRepo, ttl: ttl}
}

// Exists reports whether the request id was already completed. It must be
// consulted before any side-effecting delivery call; it is the primary
// duplicate-suppression mechanism for broker redeliveries.
func (l *IdempotencyLedger) Exists(ctx context.Context, requestID string) (bool, error) {
	return l.redisRepo.Exists(ctx, idempotencyKeyPrefix+requestID)
}

// MarkDone records a successful completion with the configured TTL.
func (l *IdempotencyLedger) MarkDone(ctx context.Context, requestID string) error {
	_, err := l.redisRepo.SetFlag(ctx, idempotencyKeyPrefix+requestID, l.ttl)
	return err
}
