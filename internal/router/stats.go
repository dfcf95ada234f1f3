package router

import "sync/atomic"

// Stats tallies routing outcomes. A cache hit counts toward the path that
// originally resolved the query, so total = keyword + llm always holds.
type Stats struct {
	totalQueries  atomic.Int64
	keywordRoutes atomic.Int64
	llmRoutes     atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
}

// Snapshot is a point-in-time view of the router statistics.
type Snapshot struct {
	TotalQueries  int64   `json:"total_queries"`
	KeywordRoutes int64   `json:"keyword_routes"`
	LLMRoutes     int64   `json:"llm_routes"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	KeywordRate   float64 `json:"keyword_rate"`
	LLMRate       float64 `json:"llm_rate"`
	CacheSize     int     `json:"cache_size"`
	LLMEnabled    bool    `json:"llm_enabled"`
}

func (s *Stats) recordHit(path Path) {
	s.totalQueries.Add(1)
	s.cacheHits.Add(1)
	s.recordPath(path)
}

func (s *Stats) recordMiss(path Path) {
	s.totalQueries.Add(1)
	s.cacheMisses.Add(1)
	s.recordPath(path)
}

func (s *Stats) recordPath(path Path) {
	if path == PathLLM {
		s.llmRoutes.Add(1)
	} else {
		s.keywordRoutes.Add(1)
	}
}

// Reset zeroes all counters. Called when the decision cache is cleared,
// so that hit/miss and per-path tallies stay mutually consistent.
func (s *Stats) Reset() {
	s.totalQueries.Store(0)
	s.keywordRoutes.Store(0)
	s.llmRoutes.Store(0)
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)
}

// Snapshot returns the current counter values with derived rates.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		TotalQueries:  s.totalQueries.Load(),
		KeywordRoutes: s.keywordRoutes.Load(),
		LLMRoutes:     s.llmRoutes.Load(),
		CacheHits:     s.cacheHits.Load(),
		CacheMisses:   s.cacheMisses.Load(),
	}

	if snap.TotalQueries > 0 {
		total := float64(snap.TotalQueries)
		snap.CacheHitRate = float64(snap.CacheHits) / total
		snap.KeywordRate = float64(snap.KeywordRoutes) / total
		snap.LLMRate = float64(snap.LLMRoutes) / total
	}

	return snap
}
