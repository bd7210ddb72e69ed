// Package cache implements a resilient two-level cache: an in-process L1
// tier (bounded, with a choice of ttl or lru eviction) in front of a shared
// L2 tier (Redis/Valkey), gated by a circuit breaker so an L2 outage
// degrades to L1-only operation instead of failing every call.
//
// There is no distributed invalidation, write-behind, single-flight, or
// cross-tier transaction support: a Set is not atomic across tiers, and a
// reader may transiently observe the new value in one tier and the old
// value in the other.
//
// Example:
//
//	c, err := cache.New(cache.Config{
//		L1Enabled:   true,
//		L1Backend:   "lru",
//		L1MaxSize:   10_000,
//		L2Enabled:   true,
//		L2Host:      "localhost",
//		L2Port:      6379,
//		L2KeyPrefix: "myapp",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	_ = c.Set(ctx, "user:42", user, 0)
//	v, found, err := c.Get(ctx, "user:42")
package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dclobato/resilient-cache/breaker"
	"github.com/dclobato/resilient-cache/cacheerrors"
	"github.com/dclobato/resilient-cache/l1"
	"github.com/dclobato/resilient-cache/logging"
)

// Cache is the public handle. It is safe for concurrent use by multiple
// goroutines; every call blocks until the operation completes or the
// breaker short-circuits it. There are no internal background workers.
type Cache struct {
	l1 l1.Backend
	l2 l1.Backend

	l2Closer io.Closer

	breaker *breaker.Breaker
	logger  logging.Logger

	l1Enabled     bool
	l2Enabled     bool
	l1BackendName string
	l2BackendName string
	l1TTL         time.Duration
	l2TTL         time.Duration
}

func effectiveTTL(ttl, def time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return def
}

// guardL2 runs fn only if the breaker admits it, translating the outcome
// into the breaker's failure/success bookkeeping. A serialization error
// from fn is returned without being recorded against the breaker at all,
// per spec: data-format errors are not connectivity failures.
func guardL2[T any](c *Cache, fn func() (T, error)) (T, error) {
	var zero T
	if !c.breaker.Allow() {
		return zero, &cacheerrors.BreakerOpenError{Name: "l2", ConsecutiveFails: c.breaker.Stats().ConsecutiveFails}
	}

	v, err := fn()
	if err != nil {
		if cacheerrors.IsSerialization(err) {
			return zero, err
		}
		c.breaker.RecordFailure()
		return zero, err
	}
	c.breaker.RecordSuccess()
	return v, nil
}

type getResult struct {
	value interface{}
	found bool
}

type ttlResult struct {
	ttl time.Duration
	ok  bool
}

// Get implements the L1-first, L2-promoting read path. A ConnectionError
// from L2 (including a breaker short-circuit) is absorbed and reported only
// through stats; a SerializationError on the inbound bytes is surfaced,
// since data corruption is not a liveness condition.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	if c.l1Enabled {
		if v, found, _ := c.l1.Get(ctx, key); found {
			return v, true, nil
		}
	}
	if !c.l2Enabled {
		return nil, false, nil
	}

	res, err := guardL2(c, func() (getResult, error) {
		v, found, e := c.l2.Get(ctx, key)
		return getResult{value: v, found: found}, e
	})
	if err != nil {
		if cacheerrors.IsSerialization(err) {
			return nil, false, err
		}
		c.logger.Warn("l2 get failed, degrading to miss", logging.String("key", key), logging.Err(err))
		return nil, false, nil
	}
	if !res.found {
		return nil, false, nil
	}

	if c.l1Enabled {
		if err := c.l1.Set(ctx, key, res.value, c.l1TTL); err != nil {
			c.logger.Debug("l1 promotion failed", logging.String("key", key), logging.Err(err))
		}
	}
	return res.value, true, nil
}

// Set writes value to every enabled tier. A SerializationError from L2 is
// always surfaced. A ConnectionError from L2 is absorbed as long as L1
// accepted the write (or L1 is disabled and L2 is the only tier, in which
// case its failure is surfaced); if both tiers are enabled and both fail,
// the L2 error is propagated.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	l1TTL := effectiveTTL(ttl, c.l1TTL)
	l2TTL := effectiveTTL(ttl, c.l2TTL)

	var l1Err, l2Err error
	if c.l1Enabled {
		l1Err = c.l1.Set(ctx, key, value, l1TTL)
	}
	if c.l2Enabled {
		_, l2Err = guardL2(c, func() (struct{}, error) {
			return struct{}{}, c.l2.Set(ctx, key, value, l2TTL)
		})
	}

	if l2Err != nil && cacheerrors.IsSerialization(l2Err) {
		return l2Err
	}

	switch {
	case c.l1Enabled && c.l2Enabled:
		if l1Err == nil {
			if l2Err != nil {
				c.logger.Warn("l2 set failed, absorbing since l1 accepted the write", logging.String("key", key), logging.Err(l2Err))
			}
			return nil
		}
		if l2Err != nil {
			return l2Err
		}
		return l1Err
	case c.l1Enabled:
		return l1Err
	default: // l2Enabled only
		return l2Err
	}
}

// SetIfNotExist writes value under key only if it is absent, using L2 as
// the source of truth for the existence test whenever reachable: on an L2
// connection failure it falls back to a conditional set on L1 alone.
func (c *Cache) SetIfNotExist(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	l1TTL := effectiveTTL(ttl, c.l1TTL)
	l2TTL := effectiveTTL(ttl, c.l2TTL)

	if !c.l2Enabled {
		if !c.l1Enabled {
			return false, nil
		}
		return c.l1.SetIfNotExist(ctx, key, value, l1TTL)
	}

	set, err := guardL2(c, func() (bool, error) {
		return c.l2.SetIfNotExist(ctx, key, value, l2TTL)
	})
	if err == nil {
		if set && c.l1Enabled {
			if mirrorErr := c.l1.Set(ctx, key, value, l1TTL); mirrorErr != nil {
				c.logger.Debug("l1 mirror after set_if_not_exist failed", logging.String("key", key), logging.Err(mirrorErr))
			}
		}
		return set, nil
	}

	if cacheerrors.IsSerialization(err) {
		return false, err
	}

	c.logger.Warn("l2 set_if_not_exist failed, falling back to l1", logging.String("key", key), logging.Err(err))
	if c.l1Enabled {
		return c.l1.SetIfNotExist(ctx, key, value, l1TTL)
	}
	return false, err
}

// Delete removes key from L1 first, then L2, so a local read immediately
// after a delete cannot return a stale value via the L1 fast path.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c.l1Enabled {
		if err := c.l1.Delete(ctx, key); err != nil {
			c.logger.Debug("l1 delete failed", logging.String("key", key), logging.Err(err))
		}
	}
	if !c.l2Enabled {
		return nil
	}

	_, err := guardL2(c, func() (struct{}, error) {
		return struct{}{}, c.l2.Delete(ctx, key)
	})
	if err != nil && !cacheerrors.IsSerialization(err) {
		c.logger.Warn("l2 delete failed, absorbing", logging.String("key", key), logging.Err(err))
		return nil
	}
	return err
}

// Clear empties both enabled tiers, returning the count removed from each.
func (c *Cache) Clear(ctx context.Context) (ClearResult, error) {
	result := ClearResult{ClearedAt: time.Now()}

	if c.l1Enabled {
		n, err := c.l1.Clear(ctx)
		if err != nil {
			c.logger.Debug("l1 clear reported an error", logging.Err(err))
		}
		result.L1Removed = n
	}
	if c.l2Enabled {
		n, err := guardL2(c, func() (int, error) { return c.l2.Clear(ctx) })
		if err != nil {
			c.logger.Warn("l2 clear failed, absorbing", logging.Err(err))
		} else {
			result.L2Removed = n
		}
	}
	return result, nil
}

// Exists consults L1 first; on L1 absence it consults L2 through the
// breaker, without promoting on a hit.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if c.l1Enabled {
		if ok, _ := c.l1.Exists(ctx, key); ok {
			return true, nil
		}
	}
	if !c.l2Enabled {
		return false, nil
	}

	ok, err := guardL2(c, func() (bool, error) { return c.l2.Exists(ctx, key) })
	if err != nil {
		if cacheerrors.IsSerialization(err) {
			return false, err
		}
		return false, nil
	}
	return ok, nil
}

// GetTTL returns the minimum remaining TTL across enabled tiers that still
// hold key, or ok=false if no enabled tier reports a finite TTL for it.
func (c *Cache) GetTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	var found bool
	var min time.Duration

	consider := func(ttl time.Duration, ok bool) {
		if !ok {
			return
		}
		if !found || ttl < min {
			min, found = ttl, true
		}
	}

	if c.l1Enabled {
		ttl, ok, _ := c.l1.GetTTL(ctx, key)
		consider(ttl, ok)
	}
	if c.l2Enabled {
		res, err := guardL2(c, func() (ttlResult, error) {
			ttl, ok, e := c.l2.GetTTL(ctx, key)
			return ttlResult{ttl: ttl, ok: ok}, e
		})
		if err == nil {
			consider(res.ttl, res.ok)
		} else if cacheerrors.IsSerialization(err) {
			return 0, false, err
		}
	}

	return min, found, nil
}

// ListKeys returns the deduplicated union of L1 keys and L2 keys (with the
// L2 key prefix already stripped) matching prefix. Order is unspecified.
func (c *Cache) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	add := func(keys []string) {
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}

	if c.l1Enabled {
		keys, _ := c.l1.ListKeys(ctx, prefix)
		add(keys)
	}
	if c.l2Enabled {
		keys, err := guardL2(c, func() ([]string, error) { return c.l2.ListKeys(ctx, prefix) })
		if err != nil {
			if cacheerrors.IsSerialization(err) {
				return nil, err
			}
			c.logger.Warn("l2 list_keys failed, returning l1-only results", logging.Err(err))
		} else {
			add(keys)
		}
	}
	return out, nil
}

// GetStats returns a structured snapshot of per-tier stats, breaker state,
// and the configured policies. Reading stats never touches the circuit
// breaker's failure count: an L2 stats failure degrades the L2 snapshot to
// Enabled=false rather than affecting breaker state.
func (c *Cache) GetStats(ctx context.Context) Stats {
	stats := Stats{
		L1Enabled: c.l1Enabled,
		L2Enabled: c.l2Enabled,
		L1Backend: c.l1BackendName,
		L2Backend: c.l2BackendName,
	}

	if c.l1Enabled {
		if s, err := c.l1.GetStats(ctx); err == nil {
			stats.L1 = &s
		}
	}
	if c.l2Enabled {
		if s, err := c.l2.GetStats(ctx); err == nil {
			stats.L2 = &s
		} else {
			stats.L2 = &l1.Stats{Backend: c.l2BackendName, Enabled: false}
		}
	}

	bs := c.breaker.Stats()
	stats.Breaker = &bs
	return stats
}

// Close releases L2's connection pool. It is never called internally; the
// caller owns the Cache's lifecycle.
func (c *Cache) Close() error {
	if c.l2Closer == nil {
		return nil
	}
	return c.l2Closer.Close()
}

// String implements fmt.Stringer for diagnostics and test failure output.
func (c *Cache) String() string {
	l1State := "disabled"
	if c.l1Enabled {
		l1State = fmt.Sprintf("enabled(%s)", c.l1BackendName)
	}
	l2State := "disabled"
	if c.l2Enabled {
		l2State = fmt.Sprintf("enabled(%s)", c.l2BackendName)
	}
	return fmt.Sprintf("<Cache l1=%s l2=%s>", l1State, l2State)
}
