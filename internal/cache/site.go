package cache

import "sync"

// SiteCache maps launch site names to their database IDs
type SiteCache struct {
	mu    sync.RWMutex
	sites map[string]uint
}

// NewSiteCache creates a new SiteCache
func NewSiteCache() *SiteCache {
	return &SiteCache{
		sites: make(map[string]uint),
	}
}

// Get retrieves a site ID by name
func (c *SiteCache) Get(name string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.sites[name]
	return id, ok
}

// Set stores a site ID by name
func (c *SiteCache) Set(name string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites[name] = id
}

// Reset clears all sites from the cache
func (c *SiteCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites = make(map[string]uint)
}
