package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics counts cache outcomes. L2 failures are counted separately from
// misses so a down Redis does not look like a cold cache.
type CacheMetrics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	l2Hits    atomic.Int64
	l2Errors  atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	startTime time.Time
}

func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{startTime: time.Now()}
}

func (m *CacheMetrics) RecordHit()     { m.hits.Add(1) }
func (m *CacheMetrics) RecordMiss()    { m.misses.Add(1) }
func (m *CacheMetrics) RecordL2Hit()   { m.l2Hits.Add(1) }
func (m *CacheMetrics) RecordL2Error() { m.l2Errors.Add(1) }
func (m *CacheMetrics) RecordSet()     { m.sets.Add(1) }
func (m *CacheMetrics) RecordDelete()  { m.deletes.Add(1) }

// HitRate returns the percentage of lookups served from any level.
func (m *CacheMetrics) HitRate() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}

func (m *CacheMetrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"hits":      m.hits.Load(),
		"misses":    m.misses.Load(),
		"l2_hits":   m.l2Hits.Load(),
		"l2_errors": m.l2Errors.Load(),
		"sets":      m.sets.Load(),
		"deletes":   m.deletes.Load(),
		"hit_rate":  m.HitRate(),
		"uptime":    time.Since(m.startTime).String(),
	}
}
