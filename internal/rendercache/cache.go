// Package rendercache memoizes render results by a fingerprint of the
// markdown and the render configuration.
//
// Entries expire after a TTL and the least recently accessed entry is evicted
// when the cache is full. Expired entries are dropped on access and by a
// periodic sweep.
package rendercache

import (
	"context"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/zeebo/blake3"

	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/slides"
)

const (
	DefaultTTL             = time.Hour
	DefaultMaxSize         = 200
	DefaultCleanupInterval = 5 * time.Minute
)

// Options configures a Cache. Zero fields take the defaults.
type Options struct {
	TTL             time.Duration
	MaxSize         int
	CleanupInterval time.Duration
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// Entry is a cached render result with its bookkeeping.
type Entry struct {
	Result       *slides.Result
	CreatedAt    time.Time
	ExpiresAt    time.Time
	AccessCount  int
	LastAccessed time.Time

	// touched orders entries that share a LastAccessed timestamp.
	touched uint64
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

func (e *Entry) olderThan(other *Entry) bool {
	if !e.LastAccessed.Equal(other.LastAccessed) {
		return e.LastAccessed.Before(other.LastAccessed)
	}
	return e.touched < other.touched
}

// Stats are cumulative counters since creation or the last Clear.
type Stats struct {
	Size      int
	Hits      int64
	Misses    int64
	HitRate   float64
	Evictions int64
}

// Cache is a TTL and LRU bounded render cache. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	store   *gocache.Cache
	ttl     time.Duration
	maxSize int
	sweep   time.Duration
	now     func() time.Time
	clock   uint64

	hits      int64
	misses    int64
	evictions int64
}

// New creates a Cache.
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		store:   gocache.New(opts.TTL, opts.CleanupInterval),
		ttl:     opts.TTL,
		maxSize: opts.MaxSize,
		sweep:   opts.CleanupInterval,
		now:     opts.Now,
	}
}

// Key returns the fingerprint of markdown and cfg: the hex blake3-256 digest
// of their canonical serialization.
func Key(markdown string, cfg slides.Config) string {
	return VersionedKey(markdown, cfg, 0)
}

// VersionedKey is Key for results that also depend on external state, such
// as the theme registry, identified by version. Version 0 yields Key.
func VersionedKey(markdown string, cfg slides.Config, version uint64) string {
	h := blake3.New()
	_, _ = h.Write([]byte("markdown=" + strconv.Itoa(len(markdown)) + ":"))
	_, _ = h.Write([]byte(markdown))
	_, _ = h.Write([]byte(";"))
	_, _ = h.Write(cfg.Canonical())
	if version != 0 {
		_, _ = h.Write([]byte(";version=" + strconv.FormatUint(version, 10)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for markdown and cfg.
func (c *Cache) Get(markdown string, cfg slides.Config) (*slides.Result, bool) {
	return c.GetVersion(markdown, cfg, 0)
}

// GetVersion returns the result cached for markdown and cfg at version.
func (c *Cache) GetVersion(markdown string, cfg slides.Config, version uint64) (*slides.Result, bool) {
	key := VersionedKey(markdown, cfg, version)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lookup(key)
	if !ok {
		c.misses++
		log.Debug(log.CatCache, "miss", "key", key[:12])
		return nil, false
	}

	now := c.now()
	if entry.expired(now) {
		c.store.Delete(key)
		c.misses++
		log.Debug(log.CatCache, "expired", "key", key[:12])
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessed = now
	c.clock++
	entry.touched = c.clock
	c.hits++
	log.Debug(log.CatCache, "hit", "key", key[:12], "access_count", entry.AccessCount)
	return entry.Result, true
}

// Set stores result with the default TTL.
func (c *Cache) Set(markdown string, cfg slides.Config, result *slides.Result) {
	c.SetWithTTL(markdown, cfg, result, c.ttl)
}

// SetVersion stores result for markdown and cfg at version with the default
// TTL.
func (c *Cache) SetVersion(markdown string, cfg slides.Config, version uint64, result *slides.Result) {
	c.put(VersionedKey(markdown, cfg, version), result, c.ttl)
}

// SetWithTTL stores result for ttl, evicting the least recently accessed
// entry first when the cache is full.
func (c *Cache) SetWithTTL(markdown string, cfg slides.Config, result *slides.Result, ttl time.Duration) {
	c.put(Key(markdown, cfg), result, ttl)
}

func (c *Cache) put(key string, result *slides.Result, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store.Get(key); !exists && c.store.ItemCount() >= c.maxSize {
		c.purgeExpired()
		if c.store.ItemCount() >= c.maxSize {
			c.evictOldest()
		}
	}

	now := c.now()
	c.clock++
	c.store.Set(key, &Entry{
		Result:       result,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
		touched:      c.clock,
	}, ttl)
}

// Has reports whether a live entry exists. It does not update recency.
func (c *Cache) Has(markdown string, cfg slides.Config) bool {
	return c.HasVersion(markdown, cfg, 0)
}

// HasVersion is Has for entries stored with SetVersion.
func (c *Cache) HasVersion(markdown string, cfg slides.Config, version uint64) bool {
	key := VersionedKey(markdown, cfg, version)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lookup(key)
	if !ok {
		return false
	}
	if entry.expired(c.now()) {
		c.store.Delete(key)
		return false
	}
	return true
}

// Delete removes the entry for markdown and cfg.
func (c *Cache) Delete(markdown string, cfg slides.Config) {
	key := Key(markdown, cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(key)
}

// Clear removes every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Flush()
	c.hits, c.misses, c.evictions = 0, 0, 0
	log.Debug(log.CatCache, "cleared")
}

// Cleanup removes every expired entry and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.purgeExpired()
	if removed > 0 {
		log.Debug(log.CatCache, "cleanup", "removed", removed)
	}
	return removed
}

// StartSweeper runs Cleanup every interval until ctx is done. A non-positive
// interval uses the configured cleanup interval.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.sweep
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:      c.store.ItemCount(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// lookup must be called with c.mu held.
func (c *Cache) lookup(key string) (*Entry, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	entry, ok := v.(*Entry)
	return entry, ok
}

// purgeExpired must be called with c.mu held.
func (c *Cache) purgeExpired() int {
	before := c.store.ItemCount()
	now := c.now()
	for key, item := range c.store.Items() {
		if entry, ok := item.Object.(*Entry); ok && entry.expired(now) {
			c.store.Delete(key)
		}
	}
	c.store.DeleteExpired()
	return before - c.store.ItemCount()
}

// evictOldest must be called with c.mu held. Entries with equal
// LastAccessed go in the order they were last stored or read.
func (c *Cache) evictOldest() {
	var (
		oldestKey string
		oldest    *Entry
	)
	for key, item := range c.store.Items() {
		entry, ok := item.Object.(*Entry)
		if !ok {
			continue
		}
		if oldest == nil || entry.olderThan(oldest) {
			oldestKey, oldest = key, entry
		}
	}
	if oldest == nil {
		return
	}
	c.store.Delete(oldestKey)
	c.evictions++
	log.Debug(log.CatCache, "evicted", "key", oldestKey[:12], "last_accessed", oldest.LastAccessed.Format(time.RFC3339Nano))
}
