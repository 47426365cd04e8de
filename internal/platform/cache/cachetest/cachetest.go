// Package cachetest starts throwaway Redis containers for lock integration tests.
package cachetest

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/pai-adaptive/internal/platform/cache"
)

const image = "redis:7-alpine"

// New starts a Redis container and returns a cache connected to it with the
// given lock settings. The test is skipped in short mode or when Docker is not
// reachable. The container is removed when the test finishes.
func New(t *testing.T, opts cache.Options) *cache.Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := t.Context()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}

	opts.URL, err = ctr.PortEndpoint(ctx, "6379/tcp", "redis")
	if err != nil {
		t.Fatalf("PortEndpoint() error = %v", err)
	}

	c, err := cache.New(ctx, opts)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
