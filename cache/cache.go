// Package cache is an in-memory TTL cache for finished reports, keyed
// by target URL and mode. Analysis of one page takes tens of seconds of
// real browser time; repeat API requests inside the TTL are served from
// here instead.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/agentlens/models"
)

// entry holds a cached report with its creation timestamp.
type entry struct {
	report    *models.Report
	createdAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
}

// New creates a Cache. A background goroutine evicts expired entries
// every five minutes.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}

	go c.cleanupLoop()
	return c
}

// Key derives the cache key for a target. URL and mode both
// participate: a stealth analysis of a page is not interchangeable with
// a full one.
func Key(t models.Target) string {
	h := sha256.New()
	h.Write([]byte(t.URL))
	h.Write([]byte("|"))
	h.Write([]byte(t.Mode))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached report younger than the TTL.
func (c *Cache) Get(key string) (*models.Report, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.report, true
}

// Set stores a report. At capacity a random entry is evicted to make
// room (map iteration order is random in Go).
func (c *Cache) Set(key string, report *models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		report:    report,
		createdAt: time.Now(),
	}
}

// cleanupLoop evicts expired entries every five minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.ttl)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
