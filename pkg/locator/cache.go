package locator

import (
	"fmt"
	"sync"
	"time"
)

// pageCache remembers located pages per (file, article) pair so reopening
// the same citation does not rescan the document.
type pageCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	page    int
	expires time.Time
}

func newPageCache(ttl time.Duration) *pageCache {
	return &pageCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func cacheKey(pdfFile, articleNum string) string {
	return fmt.Sprintf("%s|%s", pdfFile, articleNum)
}

func (c *pageCache) get(pdfFile, articleNum string) (int, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(pdfFile, articleNum)]
	c.mu.RUnlock()

	if !ok {
		return 0, false
	}
	if time.Now().After(entry.expires) {
		c.mu.Lock()
		delete(c.entries, cacheKey(pdfFile, articleNum))
		c.mu.Unlock()
		return 0, false
	}
	return entry.page, true
}

func (c *pageCache) set(pdfFile, articleNum string, page int) {
	c.mu.Lock()
	c.entries[cacheKey(pdfFile, articleNum)] = cacheEntry{
		page:    page,
		expires: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *pageCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
