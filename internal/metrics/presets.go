package metrics

import (
	"time"
)

// MetricPreset defines a predefined metric query.
type MetricPreset struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Metrics     []string `json:"metrics"`
	ChartType   string   `json:"chart_type"` // line, bar, gauge, table, pie
	Filters     []string `json:"filters"`    // available filter options
	TimeRange   string   `json:"time_range"` // default time range
}

// DefaultPresets returns the default metric presets.
var DefaultPresets = []MetricPreset{
	{
		ID:          "routing_overview",
		Name:        "Routing Overview",
		Description: "Overall query routing performance",
		Metrics: []string{
			"agw_route_requests_total",
			"agw_route_latency_ms",
			"agw_routes_by_path_total",
		},
		ChartType: "line",
		Filters:   []string{"time_range", "path"},
		TimeRange: "1h",
	},
	{
		ID:          "routing_by_service",
		Name:        "Routing by Service",
		Description: "Query volume per destination service",
		Metrics: []string{
			"agw_routes_by_service_total",
		},
		ChartType: "pie",
		Filters:   []string{"time_range", "service"},
		TimeRange: "1h",
	},
	{
		ID:          "cache_performance",
		Name:        "Cache Performance",
		Description: "Decision cache hit rate and size",
		Metrics: []string{
			"agw_cache_hits_total",
			"agw_cache_misses_total",
			"agw_cache_size",
		},
		ChartType: "line",
		Filters:   []string{"time_range"},
		TimeRange: "1h",
	},
	{
		ID:          "llm_usage",
		Name:        "LLM Usage",
		Description: "LLM classification rate, latency and errors",
		Metrics: []string{
			"agw_llm_requests_total",
			"agw_llm_latency_ms",
			"agw_llm_errors_total",
		},
		ChartType: "line",
		Filters:   []string{"time_range"},
		TimeRange: "1h",
	},
	{
		ID:          "upstream_health",
		Name:        "Upstream Health",
		Description: "Backend availability and error rates",
		Metrics: []string{
			"agw_upstream_healthy",
			"agw_upstream_requests_total",
			"agw_upstream_errors_total",
		},
		ChartType: "table",
		Filters:   []string{"service"},
		TimeRange: "all",
	},
	{
		ID:          "system_health",
		Name:        "System Health",
		Description: "System resource usage",
		Metrics: []string{
			"agw_goroutines",
			"agw_memory_bytes",
			"agw_uptime_seconds",
		},
		ChartType: "line",
		Filters:   []string{"time_range"},
		TimeRange: "1h",
	},
	{
		ID:          "error_rates",
		Name:        "Error Rates",
		Description: "Error counts by subsystem",
		Metrics: []string{
			"agw_route_errors_total",
			"agw_llm_errors_total",
			"agw_upstream_errors_total",
		},
		ChartType: "bar",
		Filters:   []string{"time_range", "error_type"},
		TimeRange: "1h",
	},
}

// GetPreset returns a preset by ID.
func GetPreset(id string) *MetricPreset {
	for i := range DefaultPresets {
		if DefaultPresets[i].ID == id {
			return &DefaultPresets[i]
		}
	}
	return nil
}

// GetAllPresets returns all available presets.
func GetAllPresets() []MetricPreset {
	return DefaultPresets
}

// MetricQuery represents a query for specific metrics.
type MetricQuery struct {
	PresetID    string            `json:"preset_id,omitempty"`
	Metrics     []string          `json:"metrics"`
	TimeRange   string            `json:"time_range"`  // 5m, 15m, 1h, 6h, 24h, 7d, 30d, all
	Filters     map[string]string `json:"filters"`     // e.g., {"service": "rag_pdf"}
	Aggregation string            `json:"aggregation"` // sum, avg, min, max, p50, p95, p99
	GroupBy     []string          `json:"group_by"`    // e.g., ["service", "path"]
}

// MetricQueryResult represents the result of a metric query.
type MetricQueryResult struct {
	Query     MetricQuery            `json:"query"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Series    []MetricSeries         `json:"series,omitempty"`
	Summary   map[string]float64     `json:"summary,omitempty"`
}

// MetricSeries represents a time series of metric values.
type MetricSeries struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
	Points []MetricPoint     `json:"points"`
}

// MetricPoint represents a single data point in a time series.
type MetricPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// ExecuteQuery executes a metric query and returns results.
// This is a placeholder - actual implementation would query time-series data.
func (m *Metrics) ExecuteQuery(query MetricQuery) (*MetricQueryResult, error) {
	result := &MetricQueryResult{
		Query:     query,
		Timestamp: time.Now().Unix(),
		Data:      make(map[string]interface{}),
		Summary:   make(map[string]float64),
	}

	// If preset ID is provided, use preset metrics
	if query.PresetID != "" {
		preset := GetPreset(query.PresetID)
		if preset != nil {
			query.Metrics = preset.Metrics
		}
	}

	// Collect current values for requested metrics
	// In a real implementation, this would query historical data
	for _, metricName := range query.Metrics {
		result.Data[metricName] = m.getCurrentValue(metricName)
	}

	return result, nil
}

// getCurrentValue gets the current value of a metric by name.
func (m *Metrics) getCurrentValue(name string) interface{} {
	switch name {
	case "agw_route_requests_total":
		return m.RouteRequests.Value()
	case "agw_cache_hits_total":
		return m.CacheHits.Value()
	case "agw_cache_misses_total":
		return m.CacheMisses.Value()
	case "agw_cache_size":
		return m.CacheSize.Value()
	case "agw_llm_requests_total":
		return m.LLMRequests.Value()
	case "agw_llm_errors_total":
		return m.LLMErrors.Value()
	case "agw_goroutines":
		return m.GoroutineCount.Value()
	case "agw_memory_bytes":
		return m.MemoryUsage.Value()
	case "agw_uptime_seconds":
		return m.Uptime.Value()
	default:
		return nil
	}
}
