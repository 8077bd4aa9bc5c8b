package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics counts cache traffic. Hits are split by the tier that served
// them so a cold in-process tier shows up as L2 hits.
type CacheMetrics struct {
	l1Hits  atomic.Int64
	l2Hits  atomic.Int64
	misses  atomic.Int64
	errors  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	started time.Time
}

// MetricsSnapshot is a point-in-time copy of CacheMetrics.
type MetricsSnapshot struct {
	Hits      int64     `json:"hits"`
	L1Hits    int64     `json:"l1_hits"`
	L2Hits    int64     `json:"l2_hits"`
	Misses    int64     `json:"misses"`
	Errors    int64     `json:"errors"`
	Sets      int64     `json:"sets"`
	Deletes   int64     `json:"deletes"`
	StartTime time.Time `json:"start_time"`
}

func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{started: time.Now()}
}

func (m *CacheMetrics) RecordL1Hit()  { m.l1Hits.Add(1) }
func (m *CacheMetrics) RecordL2Hit()  { m.l2Hits.Add(1) }
func (m *CacheMetrics) RecordMiss()   { m.misses.Add(1) }
func (m *CacheMetrics) RecordError()  { m.errors.Add(1) }
func (m *CacheMetrics) RecordSet()    { m.sets.Add(1) }
func (m *CacheMetrics) RecordDelete() { m.deletes.Add(1) }

func (m *CacheMetrics) GetStats() MetricsSnapshot {
	l1, l2 := m.l1Hits.Load(), m.l2Hits.Load()
	return MetricsSnapshot{
		Hits:      l1 + l2,
		L1Hits:    l1,
		L2Hits:    l2,
		Misses:    m.misses.Load(),
		Errors:    m.errors.Load(),
		Sets:      m.sets.Load(),
		Deletes:   m.deletes.Load(),
		StartTime: m.started,
	}
}

// HitRate is a percentage; 0 before any lookups.
func (m *CacheMetrics) HitRate() float64 {
	hits := m.l1Hits.Load() + m.l2Hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
