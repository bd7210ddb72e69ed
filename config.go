package cache

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dclobato/resilient-cache/cacheerrors"
	"github.com/dclobato/resilient-cache/logging"
	"github.com/dclobato/resilient-cache/serializer"
)

// Config enumerates every construction-time option recognized by New,
// corresponding to CacheFactoryConfig plus create_cache's direct parameters.
// Field names use the Go convention; the option names are otherwise the
// lowercase-with-underscores ones from the original configuration surface
// (see struct tags), which a host integration is free to map from its own
// environment variables — that mapping itself is out of scope for this
// module.
type Config struct {
	// L1 tier.
	L1Enabled bool          `config:"l1_enabled"`
	L1Backend string        `config:"l1_backend"` // "ttl" or "lru"
	L1MaxSize int           `config:"l1_maxsize"`
	L1TTL     time.Duration `config:"l1_ttl"`

	// L2 tier.
	L2Enabled        bool          `config:"l2_enabled"`
	L2Backend        string        `config:"l2_backend"` // "redis" or "valkey", logging only
	L2Host           string        `config:"l2_host"`
	L2Port           int           `config:"l2_port"`
	L2DB             int           `config:"l2_db"`
	L2Password       string        `config:"l2_password"`
	L2KeyPrefix      string        `config:"l2_key_prefix"`
	L2TTL            time.Duration `config:"l2_ttl"`
	L2ConnectTimeout time.Duration `config:"l2_connect_timeout"`
	L2SocketTimeout  time.Duration `config:"l2_socket_timeout"`
	L2PoolSize       int           `config:"l2_pool_size"`

	// Serializer: either a registered name (resolved via the serializer
	// registry) or a pre-built instance, which takes precedence when set.
	SerializerName string                `config:"serializer"`
	Serializer     serializer.Serializer `config:"-"`

	// Circuit breaker tuning.
	CircuitBreakerEnabled   bool          `config:"circuit_breaker_enabled"`
	CircuitBreakerThreshold int           `config:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `config:"circuit_breaker_timeout"`

	// Logger is used by every component; defaults to logging.GetGlobalLogger().
	Logger logging.Logger `config:"-"`
}

// DefaultConfig returns a Config with L1 ttl-backed and enabled, L2 disabled,
// and a closed-by-default breaker tuned to a 3-failure threshold with a
// 30-second reset timeout, mirroring the original's dataclass defaults.
func DefaultConfig() Config {
	return Config{
		L1Enabled: true,
		L1Backend: "ttl",
		L1MaxSize: 1000,
		L1TTL:     5 * time.Minute,

		L2Enabled:        false,
		L2Backend:        "redis",
		L2Host:           "localhost",
		L2Port:           6379,
		L2KeyPrefix:      "cache",
		L2TTL:            5 * time.Minute,
		L2ConnectTimeout: 5 * time.Second,
		L2SocketTimeout:  5 * time.Second,
		L2PoolSize:       10,

		SerializerName: "pickle",

		CircuitBreakerEnabled:   true,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// SetDefaults fills zero-valued fields with DefaultConfig's values, following
// the teacher's BaseConnConfig.SetConnectionDefaults defaulting pattern. The
// bool fields (L1Enabled, L2Enabled, CircuitBreakerEnabled) are left as
// given, since false cannot be told apart from unset.
func (c *Config) SetDefaults() {
	d := DefaultConfig()

	if c.L1Backend == "" {
		c.L1Backend = d.L1Backend
	}
	if c.L1MaxSize == 0 {
		c.L1MaxSize = d.L1MaxSize
	}
	if c.L1TTL == 0 {
		c.L1TTL = d.L1TTL
	}
	if c.L2Backend == "" {
		c.L2Backend = d.L2Backend
	}
	if c.L2Host == "" {
		c.L2Host = d.L2Host
	}
	if c.L2Port == 0 {
		c.L2Port = d.L2Port
	}
	if c.L2KeyPrefix == "" {
		c.L2KeyPrefix = d.L2KeyPrefix
	}
	if c.L2TTL == 0 {
		c.L2TTL = d.L2TTL
	}
	if c.L2ConnectTimeout == 0 {
		c.L2ConnectTimeout = d.L2ConnectTimeout
	}
	if c.L2SocketTimeout == 0 {
		c.L2SocketTimeout = d.L2SocketTimeout
	}
	if c.L2PoolSize == 0 {
		c.L2PoolSize = d.L2PoolSize
	}
	if c.SerializerName == "" && c.Serializer == nil {
		c.SerializerName = d.SerializerName
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = d.CircuitBreakerThreshold
	}
	if c.CircuitBreakerTimeout == 0 {
		c.CircuitBreakerTimeout = d.CircuitBreakerTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.GetGlobalLogger()
	}
}

// Validate reports every configuration problem at once via
// hashicorp/go-multierror, rather than failing on the first bad field,
// mirroring the original's per-field dataclass validators which each raise
// independently. Returns nil if the configuration is sound.
func (c *Config) Validate() error {
	var result *multierror.Error

	if !c.L1Enabled && !c.L2Enabled {
		result = multierror.Append(result, cacheerrors.NewConfigurationError("l1_enabled/l2_enabled", "at least one tier must be enabled"))
	}

	if c.L1Enabled {
		if c.L1Backend != "ttl" && c.L1Backend != "lru" {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l1_backend", "must be \"ttl\" or \"lru\", got "+quoted(c.L1Backend)))
		}
		if c.L1MaxSize <= 0 {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l1_maxsize", "must be positive"))
		}
		if c.L1TTL < 0 {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l1_ttl", "must not be negative"))
		}
	}

	if c.L2Enabled {
		if c.L2Backend != "redis" && c.L2Backend != "valkey" {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l2_backend", "must be \"redis\" or \"valkey\", got "+quoted(c.L2Backend)))
		}
		if c.L2Host == "" {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l2_host", "must not be empty"))
		}
		if c.L2Port <= 0 {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l2_port", "must be positive"))
		}
		if c.L2KeyPrefix == "" {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l2_key_prefix", "must not be empty"))
		}
		if c.L2TTL <= 0 {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("l2_ttl", "must be positive"))
		}
	}

	if c.Serializer == nil && c.SerializerName != "" {
		if _, err := serializer.Get(c.SerializerName); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerThreshold < 1 {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("circuit_breaker_threshold", "must be >= 1"))
		}
		if c.CircuitBreakerTimeout < time.Second {
			result = multierror.Append(result, cacheerrors.NewConfigurationError("circuit_breaker_timeout", "must be >= 1 second"))
		}
	}

	return result.ErrorOrNil()
}

func quoted(s string) string { return "\"" + s + "\"" }
