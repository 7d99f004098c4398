// Package redisbroker is the thin Broker Adapter (spec §4.1): pub/sub
// publish/subscribe plus atomic server-side script execution, both backed
// by a single Redis deployment shared across the fleet.
package redisbroker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientConfig mirrors the subset of internal/config.Config the broker
// needs, kept separate so tests can build a client against miniredis
// without pulling in the whole app config.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewClient builds a pooled Redis client, pool sizing grounded on the
// pattern used for distributed caches/locks elsewhere in the stack.
func NewClient(cfg ClientConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:        25,
		MinIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})
}

// Ping verifies connectivity at startup, failing fast rather than letting
// the first subscribe/publish surface a confusing error deep in the hub.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
