// Package cache keeps the rendered guide in Redis and provides a distributed
// lock so that only one instance runs ingest for a source at a time.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis wraps a go-redis client
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0") and returns a client.
// Call Ping to verify the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Client returns the underlying go-redis client
func (r *Redis) Client() *redis.Client {
	return r.client
}
