package embedding

import (
	"container/list"
	"sync"
	"time"

	"github.com/upb/catalog-rag/models"
)

// CacheKey identifies a query embedding. It carries no tenant data.
type CacheKey struct {
	Modality models.Modality
	Text     string
}

// String returns a string representation of the cache key
func (k CacheKey) String() string {
	return string(k.Modality) + ":" + k.Text
}

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	vector     []float64
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// CacheStats holds cache counters
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is an in-memory LRU cache with TTL for query embeddings.
// Vectors are copied on the way in and out so callers cannot mutate cached state.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewCache creates a cache. It returns nil when maxSize is not positive, which disables caching.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		return nil
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached vector, or nil if missing or expired
func (c *Cache) Get(key CacheKey) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	keyStr := key.String()
	entry, exists := c.entries[keyStr]
	if !exists || (c.ttl > 0 && entry.isExpired(c.ttl)) {
		c.misses++
		if exists {
			c.removeEntry(keyStr)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return append([]float64(nil), entry.vector...)
}

// Set stores a vector, evicting the least recently used entry when full
func (c *Cache) Set(key CacheKey, vector []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keyStr := key.String()
	vector = append([]float64(nil), vector...)

	if entry, exists := c.entries[keyStr]; exists {
		entry.vector = vector
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		vector:     vector,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(keyStr)
	c.entries[keyStr] = entry
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// evictLRU removes the least recently used entry (must hold lock)
func (c *Cache) evictLRU() {
	element := c.lruList.Back()
	if element != nil {
		c.removeEntry(element.Value.(string))
	}
}

// removeEntry removes an entry from the cache (must hold lock)
func (c *Cache) removeEntry(keyStr string) {
	if entry, exists := c.entries[keyStr]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, keyStr)
	}
}
