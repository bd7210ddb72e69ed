package l1

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dclobato/resilient-cache/logging"
)

var _ Backend = (*TTLBackend)(nil)

// ttlEntry is one stored value with its absolute expiration deadline.
// A zero deadline means "never expires".
type ttlEntry struct {
	value    interface{}
	deadline time.Time
}

func (e *ttlEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// TTLBackend is a bounded map keyed by absolute per-entry deadlines. Expired
// entries are purged lazily on access; when full, the entry with the
// nearest deadline (soonest to expire) is evicted to make room, per the
// nearest-deadline eviction policy. There is no background sweep: nothing
// in this type spawns a goroutine or ticker.
//
// Grounded loosely on cachetools.TTLCache's role in the original
// implementation, adapted to per-entry (rather than cache-global) TTLs and
// explicit Go locking since no equivalent bounded, per-entry TTL map exists
// among the retrieved third-party libraries.
type TTLBackend struct {
	name      string
	enabled   bool
	maxSize   int
	defaultTTL time.Duration
	logger    logging.Logger

	mu        sync.Mutex
	entries   map[string]*ttlEntry
	hits      int64
	misses    int64
	evictions int64
}

// TTLConfig configures a TTLBackend.
type TTLConfig struct {
	Name       string
	Enabled    bool
	MaxSize    int
	DefaultTTL time.Duration
	Logger     logging.Logger
}

// NewTTL builds a TTLBackend from cfg.
func NewTTL(cfg TTLConfig) *TTLBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &TTLBackend{
		name:       cfg.Name,
		enabled:    cfg.Enabled,
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger,
		entries:    make(map[string]*ttlEntry),
	}
}

func (b *TTLBackend) Get(_ context.Context, key string) (interface{}, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		b.misses++
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		delete(b.entries, key)
		b.misses++
		return nil, false, nil
	}
	b.hits++
	return e.value, true, nil
}

func (b *TTLBackend) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(key, value, ttl)
	return nil
}

func (b *TTLBackend) setLocked(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	if _, exists := b.entries[key]; !exists {
		b.evictIfFullLocked()
	}
	b.entries[key] = &ttlEntry{value: value, deadline: deadline}
}

func (b *TTLBackend) SetIfNotExist(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if e, ok := b.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	b.setLocked(key, value, ttl)
	return true, nil
}

func (b *TTLBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

func (b *TTLBackend) Clear(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.entries)
	b.entries = make(map[string]*ttlEntry)
	return n, nil
}

func (b *TTLBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, found, err := b.Get(ctx, key)
	return found, err
}

func (b *TTLBackend) GetTTL(_ context.Context, key string) (time.Duration, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok || e.expired(time.Now()) {
		return 0, false, nil
	}
	if e.deadline.IsZero() {
		return 0, false, nil
	}
	return time.Until(e.deadline), true, nil
}

func (b *TTLBackend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(b.entries))
	for k, e := range b.entries {
		if e.expired(now) {
			continue
		}
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *TTLBackend) GetSize(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries), nil
}

func (b *TTLBackend) GetStats(_ context.Context) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Backend:   "ttl",
		Enabled:   b.enabled,
		Size:      len(b.entries),
		MaxSize:   b.maxSize,
		TTL:       b.defaultTTL,
		Hits:      b.hits,
		Misses:    b.misses,
		Evictions: b.evictions,
	}, nil
}

// evictIfFullLocked evicts the entry with the nearest deadline when the
// backend is at capacity. Entries with no deadline are treated as
// furthest-from-expiring and are evicted last. Must be called with mu held,
// before inserting a new key.
func (b *TTLBackend) evictIfFullLocked() {
	if b.maxSize <= 0 || len(b.entries) < b.maxSize {
		return
	}

	var victim string
	var victimDeadline time.Time
	first := true
	for k, e := range b.entries {
		if first {
			victim, victimDeadline, first = k, e.deadline, false
			continue
		}
		if nearerDeadline(e.deadline, victimDeadline) {
			victim, victimDeadline = k, e.deadline
		}
	}
	if !first {
		delete(b.entries, victim)
		b.evictions++
		b.logger.Debug("l1 ttl backend evicted nearest-deadline entry",
			logging.String("backend", b.name), logging.String("key", victim))
	}
}

// nearerDeadline reports whether candidate expires sooner than current. A
// zero (no-expiration) deadline is considered later than any set deadline.
func nearerDeadline(candidate, current time.Time) bool {
	if candidate.IsZero() {
		return false
	}
	if current.IsZero() {
		return true
	}
	return candidate.Before(current)
}
