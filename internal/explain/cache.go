package explain

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// cacheEntry holds a cached narrative with expiration, ported from the
// teacher's ai.CacheEntry.
type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// cache is the teacher's ai.Cache ported near-verbatim: an LRU-by-hit-count
// cache with a TTL. Keyed here by a hash of the report's per-feature
// summary rather than a prompt payload, but the eviction/expiry mechanics
// are unchanged.
type cache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	maxSize  int
	ttl      time.Duration
	hitCount map[string]int
	order    []string
}

func newCache(maxSize int, ttl time.Duration) *cache {
	return &cache{
		entries:  make(map[string]*cacheEntry),
		maxSize:  maxSize,
		ttl:      ttl,
		hitCount: make(map[string]int),
		order:    make([]string, 0, maxSize),
	}
}

func (c *cache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		return "", false
	}
	c.hitCount[key]++
	return entry.value, true
}

func (c *cache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize && c.entries[key] == nil {
		c.evictLRU()
	}

	c.entries[key] = &cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.hitCount[key] = 0
	c.order = append(c.order, key)
}

func (c *cache) evictLRU() {
	if len(c.entries) == 0 {
		return
	}

	var minKey string
	minCount := 1<<31 - 1
	for _, key := range c.order {
		if count, ok := c.hitCount[key]; ok && count < minCount {
			minKey = key
			minCount = count
		}
	}
	if minKey != "" {
		delete(c.entries, minKey)
		delete(c.hitCount, minKey)
	}

	newOrder := make([]string, 0, len(c.order))
	for _, k := range c.order {
		if _, ok := c.entries[k]; ok {
			newOrder = append(newOrder, k)
		}
	}
	c.order = newOrder
}

// makePayloadHash hashes the canonical JSON encoding of payload, ported
// from the teacher's ai.MakePayloadHash.
func makePayloadHash(payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:]), nil
}
