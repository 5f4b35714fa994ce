package config

import "time"

// SeatMapCacheConfig defines settings for the Redis seat-map cache.  The
// seat map is the hottest read in the system and the only response worth
// caching; every ledger mutation invalidates the affected performance
// explicitly, so the TTL is just a backstop against missed invalidations.
type SeatMapCacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

// LoadSeatMapCacheConfig reads environment variables to build a
// SeatMapCacheConfig.  Defaults are used when variables are not set.
func LoadSeatMapCacheConfig() SeatMapCacheConfig {
    return SeatMapCacheConfig{
        Enabled: envBool("SEATMAP_CACHE_ENABLED", true),
        TTL:     envDur("SEATMAP_CACHE_TTL", 30*time.Second),
        Prefix:  envStr("SEATMAP_CACHE_PREFIX", "seatmap"),
    }
}
