package billing

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedupTTL bounds how long processed event IDs are remembered. The provider
// stops retrying deliveries well before this window closes.
const dedupTTL = 72 * time.Hour

const dedupKeyPrefix = "webhook:event:"

// RedisDeduper remembers processed webhook event IDs in Redis.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper constructs a RedisDeduper over an existing client.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// Seen reports whether an event ID was already processed.
func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	_, errGet := d.client.Get(ctx, dedupKeyPrefix+eventID).Result()
	if errGet == nil {
		return true, nil
	}
	if errors.Is(errGet, redis.Nil) {
		return false, nil
	}
	return false, errGet
}

// Mark records an event ID as processed.
func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, dedupKeyPrefix+eventID, "1", dedupTTL).Err()
}
