package metrics

import (
	"context"
	"time"
)

// Collector assembles a point-in-time statistics snapshot for the
// detailed stats endpoint.
type Collector struct {
	metrics *Metrics
}

// NewCollector creates a new metrics collector.
func NewCollector(metrics *Metrics) *Collector {
	return &Collector{metrics: metrics}
}

// Collect gathers current statistics from all subsystems.
func (c *Collector) Collect(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	// Routing metrics
	stats["route_requests_total"] = c.metrics.RouteRequests.Value()
	stats["route_latency_count"] = c.metrics.RouteLatency.Count()
	stats["route_latency_sum_ms"] = c.metrics.RouteLatency.Sum()

	// Decision cache metrics
	stats["cache_hits_total"] = c.metrics.CacheHits.Value()
	stats["cache_misses_total"] = c.metrics.CacheMisses.Value()
	stats["cache_size"] = c.metrics.CacheSize.Value()

	// LLM classifier metrics
	stats["llm_requests_total"] = c.metrics.LLMRequests.Value()
	stats["llm_errors_total"] = c.metrics.LLMErrors.Value()
	stats["llm_latency_count"] = c.metrics.LLMLatency.Count()
	stats["llm_latency_sum_ms"] = c.metrics.LLMLatency.Sum()

	// System metrics
	stats["goroutines"] = c.metrics.GoroutineCount.Value()
	stats["memory_bytes"] = c.metrics.MemoryUsage.Value()
	stats["uptime_seconds"] = c.metrics.Uptime.Value()

	return stats, nil
}

// RouteHistory returns the routing rate time series for charting.
func (c *Collector) RouteHistory(since time.Time) []DataPoint {
	if c.metrics.TimeSeries == nil {
		return nil
	}
	return c.metrics.TimeSeries.RouteRate.GetHistorySince(since)
}

// LatencyHistory returns the routing latency time series for charting.
func (c *Collector) LatencyHistory(since time.Time) []DataPoint {
	if c.metrics.TimeSeries == nil {
		return nil
	}
	return c.metrics.TimeSeries.RouteLatency.GetHistorySince(since)
}
