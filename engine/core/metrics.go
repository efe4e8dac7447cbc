package core

import "sync/atomic"

// CacheStats is a point-in-time copy of CacheMetrics.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Destroyed uint64
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CacheMetrics holds counters shared by every cache in the module.
// The zero value is ready to use.
type CacheMetrics struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	destroyed atomic.Uint64
}

func (m *CacheMetrics) Hit()     { m.hits.Add(1) }
func (m *CacheMetrics) Miss()    { m.misses.Add(1) }
func (m *CacheMetrics) Evict()   { m.evictions.Add(1) }
func (m *CacheMetrics) Destroy() { m.destroyed.Add(1) }

func (m *CacheMetrics) Snapshot() CacheStats {
	return CacheStats{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
		Destroyed: m.destroyed.Load(),
	}
}
