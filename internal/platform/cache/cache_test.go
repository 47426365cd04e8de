package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, Options{URL: "redis://localhost:59999"})
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestLocker_Settings(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantTTL  time.Duration
		wantWait time.Duration
	}{
		{"defaults", Options{}, defaultLockTTL, defaultLockWait},
		{"negative", Options{LockTTL: -time.Second, LockWait: -time.Second}, defaultLockTTL, defaultLockWait},
		{"configured", Options{LockTTL: time.Second, LockWait: 2 * time.Second}, time.Second, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := wrap(redis.NewClient(&redis.Options{Addr: "localhost:59999"}), tt.opts)
			defer c.Close()

			l := c.Locker()
			if l.ttl != tt.wantTTL || l.wait != tt.wantWait {
				t.Errorf("Locker() = ttl %v wait %v, want %v %v", l.ttl, l.wait, tt.wantTTL, tt.wantWait)
			}
		})
	}
}

func TestLockKey(t *testing.T) {
	if got := LockKey("knowledge:s1"); got != "lock:knowledge:s1" {
		t.Errorf("LockKey() = %q, want lock:knowledge:s1", got)
	}
}

func TestLock_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	c := wrap(redis.NewClient(&redis.Options{
		Addr:        "localhost:59999",
		DialTimeout: 200 * time.Millisecond,
	}), Options{LockTTL: time.Second, LockWait: 500 * time.Millisecond})
	defer c.Close()

	l := c.Locker()
	if _, err := l.Lock(t.Context(), "s1"); err == nil {
		t.Fatal("Lock() should return error for unreachable host")
	}
}
