// Package cache connects to Dragonfly/Redis and builds the cross-process
// locks that keep one student's knowledge recomputes from interleaving.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the connection and the locks handed out by Locker.
// Zero lock durations fall back to a 30s lease and a 10s wait.
type Options struct {
	URL      string
	LockTTL  time.Duration
	LockWait time.Duration
}

// Cache holds the Redis client and the lock settings shared by its lockers.
type Cache struct {
	Client   *redis.Client
	lockTTL  time.Duration
	lockWait time.Duration
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the cache at o.URL and checks it answers a PING.
func New(ctx context.Context, o Options) (*Cache, error) {
	opts, err := ParseURL(o.URL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	c := wrap(redis.NewClient(opts), o)
	if err := c.HealthCheck(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return c, nil
}

func wrap(client *redis.Client, o Options) *Cache {
	c := &Cache{Client: client, lockTTL: o.LockTTL, lockWait: o.LockWait}
	if c.lockTTL <= 0 {
		c.lockTTL = defaultLockTTL
	}
	if c.lockWait <= 0 {
		c.lockWait = defaultLockWait
	}
	return c
}

// Locker returns a Locker using the cache's lease and wait settings.
func (c *Cache) Locker() *Locker {
	return &Locker{client: c.Client, ttl: c.lockTTL, wait: c.lockWait}
}

// Close shuts down the client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck is used by /readyz.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
