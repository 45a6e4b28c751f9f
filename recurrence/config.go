package recurrence

import (
	"time"
)

// DefaultMaxEmptySeeds is the number of consecutive seed periods without a
// candidate after which an expansion gives up.
const DefaultMaxEmptySeeds = 1000

// EngineConfig tunes an Engine. The zero value is usable after Normalize.
type EngineConfig struct {
	CacheEnabled bool        `yaml:"cache_enabled"`
	CacheConfig  CacheConfig `yaml:"cache"`

	MaxEmptySeeds  int `yaml:"max_empty_seeds"` // Consecutive empty seed periods before aborting
	MaxOccurrences int `yaml:"max_occurrences"` // Maximum values returned per expansion (0 = unlimited)
}

// DefaultEngineConfig caches expansions and returns them unbounded.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	MaxEmptySeeds:  DefaultMaxEmptySeeds,
	MaxOccurrences: 0,
}

// HighPerformanceConfig suits servers answering many time-range queries.
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},

	MaxEmptySeeds:  500,
	MaxOccurrences: 5000,
}

// LowMemoryConfig keeps a small cache and caps every expansion.
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},

	MaxEmptySeeds:  DefaultMaxEmptySeeds,
	MaxOccurrences: 1000,
}

// DisabledCacheConfig evaluates every query from scratch.
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,

	MaxEmptySeeds:  DefaultMaxEmptySeeds,
	MaxOccurrences: 0,
}

// Normalize fills zero values with defaults.
func (c *EngineConfig) Normalize() {
	if c.MaxEmptySeeds <= 0 {
		c.MaxEmptySeeds = DefaultMaxEmptySeeds
	}
	if c.MaxOccurrences < 0 {
		c.MaxOccurrences = 0
	}
	if c.CacheEnabled {
		if c.CacheConfig.TTL <= 0 {
			c.CacheConfig.TTL = DefaultCacheConfig.TTL
		}
		if c.CacheConfig.MaxEntries <= 0 {
			c.CacheConfig.MaxEntries = DefaultCacheConfig.MaxEntries
		}
		if c.CacheConfig.CleanupInterval <= 0 {
			c.CacheConfig.CleanupInterval = DefaultCacheConfig.CleanupInterval
		}
	}
}
