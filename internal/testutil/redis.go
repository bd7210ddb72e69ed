// Package testutil provides shared test fixtures for packages that need a
// Redis-compatible server without dialing a real one, grounded on the
// teacher's miniredis-based integration test helpers
// (internal/redis/client_test.go, internal/pipeline/stages/cache_integration_test.go).
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
)

// NewMiniredisClient starts an in-memory miniredis server for the duration
// of the test and returns a connected go-redis client pointed at it. The
// server is stopped via t.Cleanup.
func NewMiniredisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, srv
}
