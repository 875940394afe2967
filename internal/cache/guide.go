package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "epgrab:"

// GuideCache stores the rendered XMLTV document of one source
type GuideCache struct {
	redis *Redis
	key   string
	ttl   time.Duration
}

// NewGuideCache creates a guide cache for source. A ttl of zero keeps entries
// until they are invalidated.
func NewGuideCache(r *Redis, source string, ttl time.Duration) *GuideCache {
	return &GuideCache{
		redis: r,
		key:   keyPrefix + "guide:" + source,
		ttl:   ttl,
	}
}

// Key returns the Redis key the guide is stored under
func (c *GuideCache) Key() string {
	return c.key
}

// Get returns the cached guide. A miss is (nil, false, nil).
func (c *GuideCache) Get(ctx context.Context) ([]byte, bool, error) {
	data, err := c.redis.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", c.key, err)
	}
	return data, true, nil
}

// Set stores the rendered guide
func (c *GuideCache) Set(ctx context.Context, data []byte) error {
	if err := c.redis.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", c.key, err)
	}
	return nil
}

// Invalidate drops the cached guide
func (c *GuideCache) Invalidate(ctx context.Context) error {
	if err := c.redis.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("cache del %s: %w", c.key, err)
	}
	return nil
}
