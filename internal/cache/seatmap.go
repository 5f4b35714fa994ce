// Package cache provides the Redis-backed seat-map cache.  The cache stores
// the rendered JSON response per performance and is invalidated explicitly
// after every ledger mutation; its TTL only covers missed invalidations.
package cache

import (
    "context"
    "strconv"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/theater-ticket-booking/internal/config"
)

// SeatMap caches rendered seat-map payloads keyed by performance id.  A nil
// Redis client or a disabled config turns every method into a no-op, so the
// service degrades to plain database reads without special-casing.
type SeatMap struct {
    rdb *redis.Client
    cfg config.SeatMapCacheConfig
}

// NewSeatMap builds the cache.  rdb may be nil.
func NewSeatMap(rdb *redis.Client, cfg config.SeatMapCacheConfig) *SeatMap {
    return &SeatMap{rdb: rdb, cfg: cfg}
}

func (c *SeatMap) enabled() bool { return c != nil && c.rdb != nil && c.cfg.Enabled }

func (c *SeatMap) key(performanceID uint64) string {
    return c.cfg.Prefix + ":" + strconv.FormatUint(performanceID, 10)
}

// Get returns the cached payload and whether it was present.  Errors are
// treated as misses; the database is always able to answer.
func (c *SeatMap) Get(ctx context.Context, performanceID uint64) ([]byte, bool) {
    if !c.enabled() {
        return nil, false
    }
    b, err := c.rdb.Get(ctx, c.key(performanceID)).Bytes()
    if err != nil {
        return nil, false
    }
    return b, true
}

// Set stores a rendered payload under the configured TTL.
func (c *SeatMap) Set(ctx context.Context, performanceID uint64, payload []byte) {
    if !c.enabled() {
        return
    }
    _ = c.rdb.Set(ctx, c.key(performanceID), payload, c.cfg.TTL).Err()
}

// Invalidate drops the cached payload for one performance.  Called after
// every reserve, release, booking and payment transition.
func (c *SeatMap) Invalidate(ctx context.Context, performanceID uint64) {
    if !c.enabled() {
        return
    }
    _ = c.rdb.Del(ctx, c.key(performanceID)).Err()
}
