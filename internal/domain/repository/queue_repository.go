package repository

import (
	"context"
	"time"

	"flightsync-service/internal/domain/entity"
)

// TaskQueue accepts fire-and-forget fare-detail tasks
type TaskQueue interface {
	Enqueue(ctx context.Context, task *entity.FareTask) error
}

// FareCache caches fare detail responses for a short TTL
type FareCache interface {
	Get(ctx context.Context, key string) (*entity.RawFare, bool)
	Set(ctx context.Context, key string, fare *entity.RawFare, ttl time.Duration) error
}

// DeadLetterRepository stores tasks that exhausted their retries
type DeadLetterRepository interface {
	Save(ctx context.Context, letter *entity.DeadLetter) error
}
