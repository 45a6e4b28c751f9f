package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
)

// CacheConfig controls the lifetime and size of an ExpansionCache.
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // period of the background sweep
}

// DefaultCacheConfig keeps a thousand expansions for a quarter of an hour.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

type cachedExpansion struct {
	result   Expansion
	expires  time.Time
	lastUsed time.Time
}

func (c *cachedExpansion) expired(now time.Time) bool { return now.After(c.expires) }

// ExpansionCache memoizes rule expansions across items. Unlike a Composer
// it is safe for concurrent use.
type ExpansionCache struct {
	mu     sync.RWMutex
	items  map[string]*cachedExpansion
	config CacheConfig
	hits   int
	misses int

	done      chan struct{}
	closeOnce sync.Once
}

// NewExpansionCache starts a cache and its background sweeper. Call Close
// to stop the sweeper.
func NewExpansionCache(config CacheConfig) *ExpansionCache {
	c := &ExpansionCache{
		items:  make(map[string]*cachedExpansion),
		config: config,
		done:   make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// expansionKey hashes every input that influences an expansion.
func expansionKey(rule Rule, anchor, from, to caltime.DateTime) string {
	h := sha256.New()
	h.Write([]byte(rule.String()))
	for _, v := range []caltime.DateTime{anchor, from, to} {
		h.Write([]byte{0})
		h.Write([]byte(v.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of a live cached expansion.
func (c *ExpansionCache) Get(rule Rule, anchor, from, to caltime.DateTime) (Expansion, bool) {
	key := expansionKey(rule, anchor, from, to)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	switch {
	case !ok:
		c.misses++
		return Expansion{}, false
	case item.expired(now):
		delete(c.items, key)
		c.misses++
		return Expansion{}, false
	}
	item.lastUsed = now
	c.hits++
	return item.result.clone(), true
}

// Set stores a copy of result, evicting old entries once the cache is full.
func (c *ExpansionCache) Set(rule Rule, anchor, from, to caltime.DateTime, result Expansion) {
	key := expansionKey(rule, anchor, from, to)
	now := time.Now()
	item := &cachedExpansion{
		result:   result.clone(),
		expires:  now.Add(c.config.TTL),
		lastUsed: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item
	if len(c.items) > c.config.MaxEntries {
		c.sweepLocked(now)
	}
}

// sweepLocked drops expired entries, then the least recently used ones
// until the cache fits.
func (c *ExpansionCache) sweepLocked(now time.Time) {
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
		}
	}

	excess := len(c.items) - c.config.MaxEntries
	if excess <= 0 {
		return
	}
	keys := make([]string, 0, len(c.items))
	for key := range c.items {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.items[keys[i]].lastUsed.Before(c.items[keys[j]].lastUsed)
	})
	for _, key := range keys[:excess] {
		delete(c.items, key)
	}
}

func (c *ExpansionCache) sweepLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.mu.Lock()
			c.sweepLocked(now)
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Close stops the sweeper and empties the cache. It may be called more
// than once.
func (c *ExpansionCache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.mu.Lock()
	c.items = make(map[string]*cachedExpansion)
	c.mu.Unlock()
}

// CacheStats is a snapshot of an ExpansionCache.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	ExpiredEntries int
	Hits           int
	Misses         int
}

// Stats reports entry counts and the hit ratio inputs.
func (c *ExpansionCache) Stats() CacheStats {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{TotalEntries: len(c.items), Hits: c.hits, Misses: c.misses}
	for _, item := range c.items {
		if item.expired(now) {
			stats.ExpiredEntries++
		}
	}
	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats
}
