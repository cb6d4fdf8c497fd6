// Package redisutil builds the shared Redis client used for rate limiting
// and tail checkpoints.
package redisutil

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialCheckTimeout = 5 * time.Second

// Connect opens a client for a redis:// or rediss:// URL and fails unless
// the server answers a PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	if err := (Check{Client: client}).pingWithin(ctx, dialCheckTimeout); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("reach redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Check adapts a client to the readiness probe.
type Check struct {
	Client redis.UniversalClient
}

// Ping reports whether Redis answers.
func (c Check) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c Check) pingWithin(ctx context.Context, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return c.Ping(ctx)
}
