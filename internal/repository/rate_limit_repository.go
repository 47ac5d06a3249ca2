package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository implements fixed-window counters on Redis.
type RateLimitRepository struct {
	client redis.Cmdable
}

// NewRateLimitRepository constructs the repository.
func NewRateLimitRepository(client redis.Cmdable) *RateLimitRepository {
	return &RateLimitRepository{client: client}
}

// Hit increments the counter for key in the current window and returns the new count.
// Without a Redis client every hit counts as the first.
func (r *RateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if r.client == nil {
		return 1, nil
	}
	bucket := namespaced(fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UnixNano()/int64(window)))

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	return incr.Val(), nil
}
