package redis

import (
	"context"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// PollLock implements ports.PollLock with a per-chain SET NX lease. The TTL
// bounds how long a crashed instance can hold a chain's scan slot.
type PollLock struct {
	client *goredis.Client
	prefix string
}

// NewPollLock creates a new Redis-backed poll lock.
func NewPollLock(client *goredis.Client) *PollLock {
	return &PollLock{
		client: client,
		prefix: "monitor:lock:",
	}
}

// TryAcquire claims the chain's scan slot if free.
func (l *PollLock) TryAcquire(ctx context.Context, chain domain.Chain, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+string(chain), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis poll lock acquire: %w", err)
	}
	return ok, nil
}

// Release frees the chain's scan slot.
func (l *PollLock) Release(ctx context.Context, chain domain.Chain) error {
	if err := l.client.Del(ctx, l.prefix+string(chain)).Err(); err != nil {
		return fmt.Errorf("redis poll lock release: %w", err)
	}
	return nil
}
