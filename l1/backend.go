// Package l1 implements the in-process cache tier: a bounded, thread-safe
// store with a choice of two eviction policies (ttl, lru). Both policies
// satisfy the same Backend contract shared with the L2 tier, so the
// coordinator can treat either tier uniformly.
package l1

import (
	"context"
	"time"
)

// Backend is the in-process store contract. Every method is safe for
// concurrent use. ctx is accepted for symmetry with the L2 Backend (which
// does block on network I/O); L1 implementations never block on it.
type Backend interface {
	// Get returns the stored value and found=true, or found=false on a miss.
	// It never returns an error for a plain absence.
	Get(ctx context.Context, key string) (value interface{}, found bool, err error)
	// Set stores value under key, overwriting any existing entry. A zero or
	// negative ttl means "use the backend's DefaultTTL"; the entry has no
	// expiration only when that default is also zero.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// SetIfNotExist stores value only if key is absent, returning whether it
	// was set.
	SetIfNotExist(ctx context.Context, key string, value interface{}, ttl time.Duration) (set bool, err error)
	// Delete removes key if present; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry and returns the count removed.
	Clear(ctx context.Context) (removed int, err error)
	// Exists reports whether key is present and not expired.
	Exists(ctx context.Context, key string) (bool, error)
	// GetTTL returns the remaining time-to-live for key. ok is false if the
	// key is absent or carries no expiration.
	GetTTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)
	// ListKeys returns keys whose name has the given prefix ("" matches
	// all). Order is unspecified but stable within one call.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// GetSize returns the current entry count.
	GetSize(ctx context.Context) (int, error)
	// GetStats returns a snapshot of backend statistics.
	GetStats(ctx context.Context) (Stats, error)
}

// Stats is a point-in-time snapshot of an L1 backend's counters.
type Stats struct {
	Backend  string
	Enabled  bool
	Size     int
	MaxSize  int
	TTL      time.Duration
	Hits     int64
	Misses   int64
	Evictions int64
}

// TotalRequests is the sum of hits and misses observed so far.
func (s Stats) TotalRequests() int64 {
	return s.Hits + s.Misses
}

// HitRate returns hits/total, or 0 when no requests have been observed.
func (s Stats) HitRate() float64 {
	total := s.TotalRequests()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// UsagePercent returns size/maxsize as a percentage, or 0 when unbounded.
func (s Stats) UsagePercent() float64 {
	if s.MaxSize <= 0 {
		return 0
	}
	return float64(s.Size) / float64(s.MaxSize) * 100
}
