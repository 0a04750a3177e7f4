package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry represents a cached response
type Entry struct {
	Key       string          `json:"key"`
	Kind      string          `json:"kind"`
	Response  json.RawMessage `json:"response"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Hits      int64           `json:"hits"`
}

// Config defines cache configuration
type Config struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`
	MaxSize    int           `json:"max_size" yaml:"max_size"`
}

// DefaultConfig returns sensible defaults for caching
func DefaultConfig() *Config {
	return &Config{
		Enabled:    true,
		DefaultTTL: 5 * time.Minute,
		MaxSize:    10000,
	}
}

// Backend is the interface for cache storage backends
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string)
	InvalidateByPrefix(ctx context.Context, prefix string) int
	Clear(ctx context.Context)
}

// Stats tracks cache performance
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Evictions    int64   `json:"evictions"`
	TotalEntries int64   `json:"total_entries"`
	HitRate      float64 `json:"hit_rate"`
}

// Cache is a response cache keyed by (entity kind, identity, parameters).
// Mutations invalidate whole kinds rather than patching entries in place:
// after an update/delete/restore, dependent reads are re-fetched.
type Cache struct {
	backend Backend
	config  *Config
	mu      sync.RWMutex
	entries map[string]*Entry
	stats   Stats
}

// New creates an in-memory cache instance
func New(config *Config) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	return &Cache{
		config:  config,
		entries: make(map[string]*Entry),
	}
}

// NewWithBackend creates a cache backed by an external store such as Redis.
func NewWithBackend(config *Config, backend Backend) *Cache {
	c := New(config)
	c.backend = backend
	return c
}

// Key builds a cache key from an entity kind, an identity (may be empty
// for collection queries) and the request parameters. Parameters are
// hashed so arbitrary filter structs can participate in the key.
func Key(kind, id string, params interface{}) string {
	key := kind
	if id != "" {
		key += ":" + id
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err == nil {
			sum := sha256.Sum256(raw)
			key += ":" + hex.EncodeToString(sum[:8])
		}
	}
	return key
}

// Get retrieves a cached response if available and not expired. The
// second return reports whether the value was found.
func (c *Cache) Get(ctx context.Context, key string, out interface{}) bool {
	if !c.config.Enabled {
		return false
	}

	entry, ok := c.lookup(ctx, key)
	if !ok {
		c.record(false)
		return false
	}

	if out != nil {
		if err := json.Unmarshal(entry.Response, out); err != nil {
			c.record(false)
			return false
		}
	}
	c.record(true)
	return true
}

func (c *Cache) lookup(ctx context.Context, key string) (*Entry, bool) {
	if c.backend != nil {
		return c.backend.Get(ctx, key)
	}

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	entry.Hits++
	c.mu.Unlock()
	return entry, true
}

// Set stores a response in the cache.
func (c *Cache) Set(ctx context.Context, key string, response interface{}, ttl time.Duration) error {
	if !c.config.Enabled {
		return nil
	}
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	entry := &Entry{
		Key:       key,
		Kind:      kindOf(key),
		Response:  raw,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	if c.backend != nil {
		return c.backend.Set(ctx, key, entry)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.config.MaxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	return nil
}

// Delete removes a single entry.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.config.Enabled {
		return
	}
	if c.backend != nil {
		c.backend.Delete(ctx, key)
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateKind removes every entry of the given entity kind, whatever
// identity or parameters it was cached under.
func (c *Cache) InvalidateKind(ctx context.Context, kind string) int {
	if !c.config.Enabled {
		return 0
	}
	if c.backend != nil {
		// Match "kind" exactly and "kind:..." — but never "kind-other".
		c.backend.Delete(ctx, kind)
		return c.backend.InvalidateByPrefix(ctx, kind+":")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.Kind == kind {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) {
	if !c.config.Enabled {
		return
	}
	if c.backend != nil {
		c.backend.Clear(ctx)
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}

// GetStats returns current cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.TotalEntries = int64(len(c.entries))
	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// evictOldest removes the oldest entry. Caller holds the lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, entry := range c.entries {
		if first || entry.CachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CachedAt
			first = false
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

func (c *Cache) record(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

func kindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
