// Package cache keeps recently computed trajectories in memory so repeated
// requests for the same pass do not re-run the propagator.
//
// Entries are keyed by object, observer, interval and step. The whole cache
// is dropped when the catalog in the store changes, since every entry was
// computed from the old elements.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sync/singleflight"

	"github.com/smurphboy/Sat-Track/internal/metrics"
	"github.com/smurphboy/Sat-Track/internal/tle"
	"github.com/smurphboy/Sat-Track/internal/trajectory"
)

// Config holds cache limits.
type Config struct {
	MaxEntries int           // Entries kept before the least recently used is evicted
	TTL        time.Duration // Entries unused for this long are evicted (default: 10m)
	Interval   time.Duration // Maintenance interval (default: 30s)

	// ComputeTimeout bounds a shared computation once it no longer follows
	// the context of the caller that started it (default: 2m).
	ComputeTimeout time.Duration
}

// Key identifies one trajectory.
type Key struct {
	NORADID int
	Lat     float64
	Lon     float64
	Alt     float64
	Start   time.Time
	End     time.Time
	Step    time.Duration
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%.6f,%.6f,%.1f/%d-%d/%d",
		k.NORADID, k.Lat, k.Lon, k.Alt, k.Start.Unix(), k.End.Unix(), k.Step)
}

// Entry is one cached trajectory.
type Entry struct {
	Samples     []trajectory.Sample
	GeneratedAt time.Time
	lastUsed    time.Time
}

// TrajectoryCache is safe for concurrent use.
type TrajectoryCache struct {
	mu      sync.Mutex
	entries map[Key]*Entry

	config Config
	store  *tle.Store
	logger *slog.Logger
	group  singleflight.Group

	// Catalog the entries were computed from.
	currentLoadedAt time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	cutovers  atomic.Int64
}

// New creates a cache bound to the catalog held in store.
func New(config Config, store *tle.Store, logger *slog.Logger) *TrajectoryCache {
	if config.MaxEntries < 1 {
		config.MaxEntries = 1
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.ComputeTimeout <= 0 {
		config.ComputeTimeout = 2 * time.Minute
	}
	logger = logger.With("component", "cache")
	logger.Info("cache initialized",
		"max_entries", config.MaxEntries,
		"ttl_seconds", config.TTL.Seconds(),
	)

	c := &TrajectoryCache{
		entries: make(map[Key]*Entry),
		config:  config,
		store:   store,
		logger:  logger,
	}
	if ds := store.Get(); ds != nil {
		c.currentLoadedAt = ds.LoadedAt
	}
	return c
}

// Get returns the cached samples for key.
func (c *TrajectoryCache) Get(key Key) ([]trajectory.Sample, bool) {
	c.checkCatalog()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok {
		entry.lastUsed = time.Now()
	}
	c.mu.Unlock()

	if ok {
		c.hits.Add(1)
		metrics.IncCache("hit")
		return entry.Samples, true
	}
	c.misses.Add(1)
	metrics.IncCache("miss")
	return nil, false
}

// Put stores samples under key, evicting the least recently used entry if
// the cache is full.
func (c *TrajectoryCache) Put(key Key, samples []trajectory.Sample) {
	c.mu.Lock()
	loadedAt := c.currentLoadedAt
	c.mu.Unlock()
	c.put(key, samples, loadedAt)
}

// put stores samples computed against the catalog loaded at loadedAt. They
// are discarded if the catalog changed in the meantime.
func (c *TrajectoryCache) put(key Key, samples []trajectory.Sample, loadedAt time.Time) {
	now := time.Now()
	c.mu.Lock()
	if !loadedAt.Equal(c.currentLoadedAt) {
		c.mu.Unlock()
		return
	}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.config.MaxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &Entry{Samples: samples, GeneratedAt: now, lastUsed: now}
	c.mu.Unlock()

	c.updateMetrics()
}

// GetOrCompute returns the cached samples for key or computes and stores
// them. Concurrent calls for the same key share one computation. hit
// reports whether the samples came from the cache.
//
// The shared computation is detached from ctx: a caller whose ctx ends
// returns ctx.Err() while the others keep waiting for the result.
func (c *TrajectoryCache) GetOrCompute(ctx context.Context, key Key, compute func(context.Context) ([]trajectory.Sample, error)) (samples []trajectory.Sample, hit bool, err error) {
	if s, ok := c.Get(key); ok {
		return s, true, nil
	}
	c.mu.Lock()
	loadedAt := c.currentLoadedAt
	c.mu.Unlock()

	ch := c.group.DoChan(key.String(), func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.ComputeTimeout)
		defer cancel()
		s, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		c.put(key, s, loadedAt)
		return s, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]trajectory.Sample), false, nil
	}
}

func (c *TrajectoryCache) evictOldestLocked() {
	var (
		oldestKey Key
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.lastUsed.Before(oldest) {
			oldestKey, oldest, found = k, e.lastUsed, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
		metrics.AddCacheEvictions(1)
	}
}

// evictExpired removes entries unused for longer than the TTL.
func (c *TrajectoryCache) evictExpired() int {
	cutoff := time.Now().Add(-c.config.TTL)
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if e.lastUsed.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		c.updateMetrics()
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}
	return removed
}

// Stats holds cache statistics for the catalog endpoint.
type Stats struct {
	Entries   int   `json:"entries"`
	Samples   int   `json:"samples"`
	SizeBytes int64 `json:"size_bytes"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Cutovers  int64 `json:"cutovers"`
}

// Stats returns current cache statistics.
func (c *TrajectoryCache) Stats() Stats {
	c.mu.Lock()
	count := len(c.entries)
	samples := 0
	for _, e := range c.entries {
		samples += len(e.Samples)
	}
	c.mu.Unlock()

	return Stats{
		Entries:   count,
		Samples:   samples,
		SizeBytes: estimateSizeBytes(count, samples),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Cutovers:  c.cutovers.Load(),
	}
}

// estimateSizeBytes returns a rough estimate of the cache memory footprint.
func estimateSizeBytes(entries, samples int) int64 {
	sampleSize := int64(unsafe.Sizeof(trajectory.Sample{}))
	// Key, entry and map bucket overhead per entry.
	entryOverhead := int64(unsafe.Sizeof(Key{})) + int64(unsafe.Sizeof(Entry{})) + 8
	return int64(samples)*sampleSize + int64(entries)*entryOverhead
}

func (c *TrajectoryCache) updateMetrics() {
	c.mu.Lock()
	count := len(c.entries)
	c.mu.Unlock()
	metrics.SetCacheEntries(count)
}
