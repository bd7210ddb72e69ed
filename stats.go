package cache

import (
	"time"

	"github.com/dclobato/resilient-cache/breaker"
	"github.com/dclobato/resilient-cache/l1"
)

// Stats is a structured, point-in-time snapshot of the coordinator's state:
// per-tier backend stats, breaker state, and the configured policies. Every
// field is a copy; mutating a Stats value never affects the live Cache.
type Stats struct {
	L1 *l1.Stats
	L2 *l1.Stats

	Breaker *breaker.Stats

	L1Enabled bool
	L2Enabled bool
	L1Backend string
	L2Backend string
}

// ClearResult reports how many entries clear removed from each tier,
// mirroring the original's {l1_items_removed, l2_items_removed, timestamp}
// return shape.
type ClearResult struct {
	L1Removed int
	L2Removed int
	ClearedAt time.Time
}
