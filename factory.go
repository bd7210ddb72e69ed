package cache

import (
	"io"

	"github.com/dclobato/resilient-cache/breaker"
	"github.com/dclobato/resilient-cache/l1"
	"github.com/dclobato/resilient-cache/l2"
	"github.com/dclobato/resilient-cache/serializer"
)

// New validates cfg, builds whichever tiers are enabled, and returns a
// ready Cache. Configuration errors (a bad backend name, a non-positive
// size or TTL) fail here, never at runtime.
//
// An L2 host that is configured but unreachable at construction time does
// not fail New: it is logged as a warning and the tier is left enabled but
// disconnected, mirroring the original factory's dependency-detection
// behavior rather than panicking at startup. go-redis connects lazily, so
// the first real Get/Set against it simply surfaces a ConnectionError like
// any later outage would, and the circuit breaker observes and recovers
// from it the normal way.
func New(cfg Config) (*Cache, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger

	ser := cfg.Serializer
	if ser == nil {
		var err error
		ser, err = serializer.Get(cfg.SerializerName)
		if err != nil {
			return nil, err
		}
	}

	var l1Back l1.Backend
	if cfg.L1Enabled {
		switch cfg.L1Backend {
		case "lru":
			l1Back = l1.NewLRU(l1.LRUConfig{
				Name: "l1", Enabled: true, MaxSize: cfg.L1MaxSize, DefaultTTL: cfg.L1TTL, Logger: logger,
			})
		default:
			l1Back = l1.NewTTL(l1.TTLConfig{
				Name: "l1", Enabled: true, MaxSize: cfg.L1MaxSize, DefaultTTL: cfg.L1TTL, Logger: logger,
			})
		}
	}

	var l2Back l1.Backend
	var l2Closer io.Closer
	if cfg.L2Enabled {
		rb := l2.Connect(l2.Config{
			Name:           "l2",
			Enabled:        true,
			Host:           cfg.L2Host,
			Port:           cfg.L2Port,
			DB:             cfg.L2DB,
			Password:       cfg.L2Password,
			KeyPrefix:      cfg.L2KeyPrefix,
			DefaultTTL:     cfg.L2TTL,
			ConnectTimeout: cfg.L2ConnectTimeout,
			SocketTimeout:  cfg.L2SocketTimeout,
			PoolSize:       cfg.L2PoolSize,
			Logger:         logger,
		}, ser)
		l2Back = rb
		l2Closer = rb
	}

	br := breaker.New(breaker.Config{
		Name:         "l2",
		Enabled:      cfg.CircuitBreakerEnabled,
		Threshold:    cfg.CircuitBreakerThreshold,
		ResetTimeout: cfg.CircuitBreakerTimeout,
		Logger:       logger,
	})

	return &Cache{
		l1:            l1Back,
		l2:            l2Back,
		l2Closer:      l2Closer,
		breaker:       br,
		logger:        logger,
		l1Enabled:     cfg.L1Enabled,
		l2Enabled:     cfg.L2Enabled,
		l1BackendName: cfg.L1Backend,
		l2BackendName: cfg.L2Backend,
		l1TTL:         cfg.L1TTL,
		l2TTL:         cfg.L2TTL,
	}, nil
}
