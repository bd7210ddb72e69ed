package metrics

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	cache "github.com/dclobato/resilient-cache"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)

	c, err := cache.New(cache.Config{
		L1Enabled: true,
		L1Backend: "ttl",
		L1MaxSize: 100,
		L2Enabled: true,
		L2Host:    srv.Host(),
		L2Port:    port,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCollector_RegistersAndScrapes(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))

	collector := NewCollector(ctx, c, "testapp")
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	require.Greater(t, count, 0)
}

func TestCollector_ReportsBreakerClosedInitially(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	collector := NewCollector(ctx, c, "testapp")

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))

	families, err := registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "testapp_cache_breaker_state" {
			found = true
			require.Equal(t, float64(0), f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	require.True(t, found)
}
