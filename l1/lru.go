package l1

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dclobato/resilient-cache/logging"
)

var _ Backend = (*LRUBackend)(nil)

// lruEntry is the value stored in each list.Element.
type lruEntry struct {
	key      string
	value    interface{}
	deadline time.Time // zero means never expires
	element  *list.Element
}

func (e *lruEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// LRUBackend is a bounded, recency-ordered cache: most-recently-used
// entries sit at the front of an internal list, least-recently-used at the
// back. TTL still applies per entry; eviction when full prefers purging any
// already-expired entry over evicting the true LRU tail, so a TTL expiry is
// never masked by recency.
//
// Grounded on the teacher's enrichers.ResponseCache (container/list-based
// LRU+TTL), with its background cleanup goroutine removed: expiry here is
// purged lazily on access or on eviction pressure only, never by a ticker.
type LRUBackend struct {
	name       string
	enabled    bool
	maxSize    int
	defaultTTL time.Duration
	logger     logging.Logger

	mu        sync.Mutex
	items     map[string]*lruEntry
	order     *list.List
	hits      int64
	misses    int64
	evictions int64
}

// LRUConfig configures an LRUBackend.
type LRUConfig struct {
	Name       string
	Enabled    bool
	MaxSize    int
	DefaultTTL time.Duration
	Logger     logging.Logger
}

// NewLRU builds an LRUBackend from cfg.
func NewLRU(cfg LRUConfig) *LRUBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &LRUBackend{
		name:       cfg.Name,
		enabled:    cfg.Enabled,
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger,
		items:      make(map[string]*lruEntry),
		order:      list.New(),
	}
}

func (b *LRUBackend) Get(_ context.Context, key string) (interface{}, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.items[key]
	if !ok {
		b.misses++
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		b.removeLocked(e)
		b.misses++
		return nil, false, nil
	}
	b.order.MoveToFront(e.element)
	b.hits++
	return e.value, true, nil
}

func (b *LRUBackend) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(key, value, ttl)
	return nil
}

func (b *LRUBackend) setLocked(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	if e, exists := b.items[key]; exists {
		e.value = value
		e.deadline = deadline
		b.order.MoveToFront(e.element)
		return
	}

	e := &lruEntry{key: key, value: value, deadline: deadline}
	e.element = b.order.PushFront(e)
	b.items[key] = e

	if b.maxSize > 0 && len(b.items) > b.maxSize {
		b.evictLocked()
	}
}

func (b *LRUBackend) SetIfNotExist(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.items[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	b.setLocked(key, value, ttl)
	return true, nil
}

func (b *LRUBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.items[key]; ok {
		b.removeLocked(e)
	}
	return nil
}

func (b *LRUBackend) Clear(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.items)
	b.items = make(map[string]*lruEntry)
	b.order.Init()
	return n, nil
}

func (b *LRUBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, found, err := b.Get(ctx, key)
	return found, err
}

func (b *LRUBackend) GetTTL(_ context.Context, key string) (time.Duration, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.items[key]
	if !ok || e.expired(time.Now()) || e.deadline.IsZero() {
		return 0, false, nil
	}
	return time.Until(e.deadline), true, nil
}

func (b *LRUBackend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(b.items))
	for k, e := range b.items {
		if e.expired(now) {
			continue
		}
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *LRUBackend) GetSize(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items), nil
}

func (b *LRUBackend) GetStats(_ context.Context) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Backend:   "lru",
		Enabled:   b.enabled,
		Size:      len(b.items),
		MaxSize:   b.maxSize,
		TTL:       b.defaultTTL,
		Hits:      b.hits,
		Misses:    b.misses,
		Evictions: b.evictions,
	}, nil
}

// removeLocked deletes e from both the map and the list. Must be called
// with mu held.
func (b *LRUBackend) removeLocked(e *lruEntry) {
	delete(b.items, e.key)
	b.order.Remove(e.element)
}

// evictLocked makes room for one more entry. TTL takes precedence over
// recency: if any entry in the list is already expired, the one nearest
// the back (oldest surviving access) among the expired set is purged
// first; only when none are expired does the true LRU tail get evicted.
// Must be called with mu held.
func (b *LRUBackend) evictLocked() {
	now := time.Now()
	for el := b.order.Back(); el != nil; el = el.Prev() {
		if entry := el.Value.(*lruEntry); entry.expired(now) {
			b.removeLocked(entry)
			b.evictions++
			b.logger.Debug("l1 lru backend purged expired entry under pressure",
				logging.String("backend", b.name), logging.String("key", entry.key))
			return
		}
	}

	back := b.order.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*lruEntry)
	b.removeLocked(entry)
	b.evictions++
	b.logger.Debug("l1 lru backend evicted least-recently-used entry",
		logging.String("backend", b.name), logging.String("key", entry.key))
}
