package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// context or the wait budget ran out.
var ErrLockTimeout = errors.New("lock wait timed out")

const (
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 10 * time.Second
	lockRetry       = 50 * time.Millisecond
	lockPrefix      = "lock:"
	lockCallTimeout = 3 * time.Second
)

// releaseScript deletes the key only when it still holds our token, so a lock
// that expired and was taken by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker provides mutual exclusion across processes sharing one Redis.
// A held lock is extended every third of its lease until released.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// Lock blocks until key is acquired and returns the function that releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	name := LockKey(key)

	wctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(wctx, name, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.hold(name, token), nil
		}

		select {
		case <-wctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ErrLockTimeout)
		case <-ticker.C:
		}
	}
}

// hold keeps the lease alive until the returned release func runs.
func (l *Locker) hold(name, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !l.extend(name, token) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			ctx, cancel := context.WithTimeout(context.Background(), lockCallTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{name}, token).Err(); err != nil {
				slog.Warn("failed to release lock", "key", name, "error", err)
			}
		})
	}
}

// extend reports whether the lease is still ours.
func (l *Locker) extend(name, token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), lockCallTimeout)
	defer cancel()

	n, err := extendScript.Run(ctx, l.client, []string{name}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		slog.Warn("failed to extend lock", "key", name, "error", err)
		return true
	}
	if n == 0 {
		slog.Warn("lock lease lost", "key", name)
		return false
	}
	return true
}

// LockKey returns the Redis key used for a lock name.
func LockKey(key string) string {
	return lockPrefix + key
}
