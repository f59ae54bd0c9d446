package cache

import (
	"context"
	"time"
)

// Start runs periodic maintenance until ctx is cancelled: idle entries are
// evicted and the cache is dropped when the catalog changes.
func (c *TrajectoryCache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache maintenance stopped")
			return
		case <-ticker.C:
			c.checkCatalog()
			c.evictExpired()
		}
	}
}

// checkCatalog drops every entry if the store holds a different catalog
// from the one the entries were computed with.
func (c *TrajectoryCache) checkCatalog() {
	ds := c.store.Get()
	if ds == nil {
		return
	}

	c.mu.Lock()
	if ds.LoadedAt.Equal(c.currentLoadedAt) {
		c.mu.Unlock()
		return
	}
	old := c.currentLoadedAt
	dropped := len(c.entries)
	c.entries = make(map[Key]*Entry)
	c.currentLoadedAt = ds.LoadedAt
	c.mu.Unlock()

	c.cutovers.Add(1)
	c.updateMetrics()
	c.logger.Info("catalog cutover",
		"old_catalog_loaded_at", old.UTC().Format(time.RFC3339),
		"new_catalog_loaded_at", ds.LoadedAt.UTC().Format(time.RFC3339),
		"entries_dropped", dropped,
	)
}
