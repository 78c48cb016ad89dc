package rescheduler

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds how many jobs' Metrics are held at once;
// beyond it, the least-recently-used job's cached metrics are evicted
// and recomputed from the store on next access.
const defaultCacheSize = 2048

// metricsCache fronts computeMetrics with an LRU within a single sweep.
// Sweep purges it before evaluating any job, so figures are never
// reused from an earlier sweep, and an entry is dropped as soon as its
// job is updated. Grounded on hashicorp/golang-lru/v2, a dependency that appears
// across the retrieved pack wherever a bounded, eviction-safe cache is
// needed but a distributed cache would be overkill.
type metricsCache struct {
	inner *lru.Cache[string, Metrics]
}

func newMetricsCache() *metricsCache {
	c, _ := lru.New[string, Metrics](defaultCacheSize)
	return &metricsCache{inner: c}
}

func (c *metricsCache) get(jobID string) (Metrics, bool) {
	return c.inner.Get(jobID)
}

func (c *metricsCache) put(jobID string, m Metrics) {
	c.inner.Add(jobID, m)
}

func (c *metricsCache) invalidate(jobID string) {
	c.inner.Remove(jobID)
}

// purge drops every cached entry, forcing the next sweep to recompute
// every job's Metrics from the store rather than reuse figures from the
// previous hour's sweep.
func (c *metricsCache) purge() {
	c.inner.Purge()
}
