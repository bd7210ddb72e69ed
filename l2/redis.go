// Package l2 implements the remote cache tier backed by Redis or any
// Valkey-compatible RESP server, reached through go-redis/redis/v8. It
// mirrors the l1.Backend contract, with namespaced keys and SCAN-based
// clear/list so large keyspaces never block the server with KEYS.
package l2

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/dclobato/resilient-cache/cacheerrors"
	"github.com/dclobato/resilient-cache/l1"
	"github.com/dclobato/resilient-cache/logging"
	"github.com/dclobato/resilient-cache/serializer"
)

const scanBatchSize = 100

var _ l1.Backend = (*RedisBackend)(nil)

// Config controls connection and namespacing for a RedisBackend.
type Config struct {
	Name           string
	Enabled        bool
	Host           string
	Port           int
	DB             int
	Password       string
	KeyPrefix      string
	DefaultTTL     time.Duration
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
	PoolSize       int
	Logger         logging.Logger
}

// RedisBackend implements l1.Backend against a Redis/Valkey server. All
// keys are transparently namespaced as "<KeyPrefix>:<key>"; ListKeys strips
// the prefix before returning.
//
// Grounded on original_source's RedisBackend (connect-and-ping at
// construction, SCAN-based clear/list_keys, serialize-before-write /
// deserialize-after-read boundary) and on the teacher's redis.Client
// construction pattern (ping with a bounded timeout at NewClient time).
type RedisBackend struct {
	name       string
	enabled    bool
	client     *goredis.Client
	keyPrefix  string
	defaultTTL time.Duration
	serializer serializer.Serializer
	logger     logging.Logger
}

// New connects to the configured Redis/Valkey server, pinging it once to
// fail fast on an unreachable host, and returns a ready RedisBackend. The
// cache factory does not use New; it uses Connect, which never fails.
func New(cfg Config, ser serializer.Serializer) (*RedisBackend, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = 10
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.SocketTimeout,
		WriteTimeout: cfg.SocketTimeout,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), connectTimeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, cacheerrors.NewConnectionError("redis", fmt.Sprintf("failed to connect to Redis at %s:%d", cfg.Host, cfg.Port), err)
	}

	return &RedisBackend{
		name:       cfg.Name,
		enabled:    cfg.Enabled,
		client:     client,
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
		serializer: ser,
		logger:     logger,
	}, nil
}

// Connect builds a RedisBackend the way go-redis itself connects: the
// *goredis.Client is constructed lazily and redials on use, so this never
// fails. It issues a best-effort Ping, which can block for up to
// ConnectTimeout, purely to log a warning when the server is unreachable at
// startup; Connect returns no error, and the backend is always usable.
//
// This is what the cache factory uses: an L2 host that happens to be down
// at construction time must not disable the tier, only let the breaker and
// go-redis's own reconnect-on-use logic observe and recover from it on
// later calls.
func Connect(cfg Config, ser serializer.Serializer) *RedisBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = 10
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.SocketTimeout,
		WriteTimeout: cfg.SocketTimeout,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), connectTimeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("l2 backend unreachable at construction, leaving it enabled for the breaker to observe",
			logging.Err(err))
	}

	return &RedisBackend{
		name:       cfg.Name,
		enabled:    cfg.Enabled,
		client:     client,
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
		serializer: ser,
		logger:     logger,
	}
}

// NewFromClient wraps an already-constructed *goredis.Client, used by tests
// to plug in a miniredis-backed client without going through Ping-at-New.
func NewFromClient(client *goredis.Client, cfg Config, ser serializer.Serializer) *RedisBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &RedisBackend{
		name:       cfg.Name,
		enabled:    cfg.Enabled,
		client:     client,
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
		serializer: ser,
		logger:     logger,
	}
}

func connectTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

func (b *RedisBackend) namespacedKey(key string) string {
	return b.keyPrefix + ":" + key
}

func (b *RedisBackend) stripPrefix(namespaced string) string {
	prefix := b.keyPrefix + ":"
	if len(namespaced) >= len(prefix) && namespaced[:len(prefix)] == prefix {
		return namespaced[len(prefix):]
	}
	return namespaced
}

// Get implements l1.Backend. A serializer deserialization failure is
// returned as a *cacheerrors.CacheError of kind serialization, distinct
// from a connection failure, and is never counted against the circuit
// breaker's failure tally by the caller (the coordinator classifies this).
func (b *RedisBackend) Get(ctx context.Context, key string) (interface{}, bool, error) {
	data, err := b.client.Get(ctx, b.namespacedKey(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cacheerrors.NewConnectionError("redis", "failed to get key "+key, err)
	}

	var value interface{}
	if err := b.serializer.Deserialize(data, &value); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set implements l1.Backend using SET key value EX ttl.
func (b *RedisBackend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := b.serializer.Serialize(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	if err := b.client.Set(ctx, b.namespacedKey(key), data, ttl).Err(); err != nil {
		return cacheerrors.NewConnectionError("redis", "failed to set key "+key, err)
	}
	return nil
}

// SetIfNotExist implements l1.Backend using SET key value NX EX ttl, the
// server's atomic conditional-set primitive.
func (b *RedisBackend) SetIfNotExist(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := b.serializer.Serialize(value)
	if err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	set, err := b.client.SetNX(ctx, b.namespacedKey(key), data, ttl).Result()
	if err != nil {
		return false, cacheerrors.NewConnectionError("redis", "failed to set_if_not_exist key "+key, err)
	}
	return set, nil
}

// Delete implements l1.Backend. Deleting an absent key is not an error.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.namespacedKey(key)).Err(); err != nil {
		return cacheerrors.NewConnectionError("redis", "failed to delete key "+key, err)
	}
	return nil
}

// Clear removes every key under the configured prefix using an incremental
// SCAN loop, never KEYS, so the scan never blocks the server regardless of
// keyspace size.
func (b *RedisBackend) Clear(ctx context.Context) (int, error) {
	pattern := b.keyPrefix + ":*"
	var cursor uint64
	total := 0

	for {
		keys, next, err := b.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return total, cacheerrors.NewConnectionError("redis", "failed to scan keys during clear", err)
		}
		if len(keys) > 0 {
			deleted, err := b.client.Del(ctx, keys...).Result()
			if err != nil {
				return total, cacheerrors.NewConnectionError("redis", "failed to delete scanned keys during clear", err)
			}
			total += int(deleted)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	b.logger.Info("l2 redis backend cleared", logging.String("backend", b.name), logging.Int("removed", total))
	return total, nil
}

// Exists implements l1.Backend.
func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, b.namespacedKey(key)).Result()
	if err != nil {
		return false, cacheerrors.NewConnectionError("redis", "failed to check existence of key "+key, err)
	}
	return n > 0, nil
}

// GetTTL implements l1.Backend. Redis reports -2 for an absent key and -1
// for a key with no expiration; both map to ok=false here.
func (b *RedisBackend) GetTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := b.client.TTL(ctx, b.namespacedKey(key)).Result()
	if err != nil {
		return 0, false, cacheerrors.NewConnectionError("redis", "failed to get ttl for key "+key, err)
	}
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

// ListKeys scans for keys under the configured prefix (optionally further
// filtered by an additional prefix), returning them with the configured
// key prefix stripped.
func (b *RedisBackend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	pattern := b.keyPrefix + ":" + prefix + "*"
	var cursor uint64
	var results []string

	for {
		keys, next, err := b.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, cacheerrors.NewConnectionError("redis", "failed to scan keys", err)
		}
		for _, k := range keys {
			results = append(results, b.stripPrefix(k))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return results, nil
}

// GetSize counts keys under the configured prefix via the same incremental
// scan used by Clear and ListKeys.
func (b *RedisBackend) GetSize(ctx context.Context) (int, error) {
	keys, err := b.ListKeys(ctx, "")
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// GetStats implements l1.Backend, reporting backend identity and size.
// Hits and Misses are not counted for this tier and are always zero;
// server-side INFO stats are not surfaced either.
func (b *RedisBackend) GetStats(ctx context.Context) (l1.Stats, error) {
	size, err := b.GetSize(ctx)
	if err != nil {
		return l1.Stats{Backend: "redis", Enabled: b.enabled}, err
	}
	return l1.Stats{
		Backend: "redis",
		Enabled: b.enabled,
		Size:    size,
		TTL:     b.defaultTTL,
	}, nil
}

// Ping verifies connectivity to the Redis/Valkey server.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return cacheerrors.NewConnectionError("redis", "ping failed", err)
	}
	return nil
}

// Close releases the underlying connection pool. Never called internally;
// it is the caller's responsibility to Close when done with the backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// String implements fmt.Stringer for diagnostic logging.
func (b *RedisBackend) String() string {
	return fmt.Sprintf("<RedisBackend prefix=%s>", b.keyPrefix)
}
