package metrics

import (
	"runtime"
	"sync"
	"time"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Routing metrics
	RouteRequests   *Counter
	RouteLatency    *Histogram
	RoutesByPath    *CounterVec // labels: path (cache, keyword, llm)
	RoutesByService *CounterVec // labels: service
	RouteErrors     *CounterVec // labels: error_type

	// Decision cache metrics
	CacheHits   *Counter
	CacheMisses *Counter
	CacheSize   *Gauge

	// LLM classifier metrics
	LLMRequests *Counter
	LLMLatency  *Histogram
	LLMErrors   *Counter

	// Upstream backend metrics
	UpstreamRequests *CounterVec   // labels: service
	UpstreamErrors   *CounterVec   // labels: service
	UpstreamLatency  *HistogramVec // labels: service
	UpstreamHealthy  *GaugeVec     // labels: service

	// System metrics
	GoroutineCount *Gauge
	MemoryUsage    *Gauge // in bytes
	Uptime         *Counter

	// Bus metrics
	BusEventsPublished *CounterVec   // labels: topic
	BusEventLatency    *HistogramVec // labels: topic
	BusErrors          *CounterVec   // labels: topic

	// HTTP metrics
	HTTPRequests         *CounterVec   // labels: method, path, status
	HTTPDuration         *HistogramVec // labels: method, path
	HTTPRequestsInFlight *Gauge
	HTTPRequestSize      *HistogramVec // labels: method, path

	// Time-series data for charts
	TimeSeries *TimeSeriesData

	// Redis storage (optional)
	redisStorage *RedisStorage

	startTime time.Time
	mu        sync.RWMutex
}

// New creates a new metrics instance with all metrics initialized.
// Uses in-memory storage only.
func New() *Metrics {
	return NewWithConfig("memory", "")
}

// NewWithRedis creates a new metrics instance with Redis persistence.
// Falls back to in-memory if Redis connection fails.
func NewWithRedis(redisURL string) *Metrics {
	return NewWithConfig("redis", redisURL)
}

// NewWithConfig creates a new metrics instance with specified persistence.
// persistence: "memory" or "redis"
// redisURL: Redis URL (only used if persistence = "redis")
func NewWithConfig(persistence, redisURL string) *Metrics {
	var redisStorage *RedisStorage
	var timeSeries *TimeSeriesData

	// Try to initialize Redis if configured
	if persistence == "redis" && redisURL != "" {
		storage, err := NewRedisStorage(redisURL)
		if err != nil {
			println("WARNING: Failed to connect to Redis for metrics persistence:", err.Error())
			println("         Falling back to in-memory metrics")
		} else {
			redisStorage = storage
			timeSeries = NewTimeSeriesDataWithRedis(redisStorage)
		}
	}

	// If Redis not available, use in-memory
	if timeSeries == nil {
		timeSeries = NewTimeSeriesData()
	}

	m := &Metrics{
		// Routing metrics
		RouteRequests: NewCounter(
			"agw_route_requests_total",
			"Total number of routed queries",
			nil,
		),
		RouteLatency: NewHistogram(
			"agw_route_latency_ms",
			"Query routing latency in milliseconds",
			[]float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		),
		RoutesByPath: NewCounterVec(
			"agw_routes_by_path_total",
			"Routed queries by dispatch path",
			[]string{"path"},
		),
		RoutesByService: NewCounterVec(
			"agw_routes_by_service_total",
			"Routed queries by destination service",
			[]string{"service"},
		),
		RouteErrors: NewCounterVec(
			"agw_route_errors_total",
			"Total number of routing errors",
			[]string{"error_type"},
		),

		// Decision cache metrics
		CacheHits: NewCounter(
			"agw_cache_hits_total",
			"Total number of decision cache hits",
			nil,
		),
		CacheMisses: NewCounter(
			"agw_cache_misses_total",
			"Total number of decision cache misses",
			nil,
		),
		CacheSize: NewGauge(
			"agw_cache_size",
			"Current number of cached decisions",
			nil,
		),

		// LLM classifier metrics
		LLMRequests: NewCounter(
			"agw_llm_requests_total",
			"Total number of LLM classification requests",
			nil,
		),
		LLMLatency: NewHistogram(
			"agw_llm_latency_ms",
			"LLM classification latency in milliseconds",
			[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 15000},
		),
		LLMErrors: NewCounter(
			"agw_llm_errors_total",
			"Total number of failed LLM classification requests",
			nil,
		),

		// Upstream backend metrics
		UpstreamRequests: NewCounterVec(
			"agw_upstream_requests_total",
			"Total number of requests dispatched to backends",
			[]string{"service"},
		),
		UpstreamErrors: NewCounterVec(
			"agw_upstream_errors_total",
			"Total number of failed backend requests",
			[]string{"service"},
		),
		UpstreamLatency: NewHistogramVec(
			"agw_upstream_latency_ms",
			"Backend request latency in milliseconds",
			[]string{"service"},
			[]float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		),
		UpstreamHealthy: NewGaugeVec(
			"agw_upstream_healthy",
			"Whether the backend answered its last health check (1 or 0)",
			[]string{"service"},
		),

		// System metrics
		GoroutineCount: NewGauge(
			"agw_goroutines",
			"Number of goroutines",
			nil,
		),
		MemoryUsage: NewGauge(
			"agw_memory_bytes",
			"Memory usage in bytes",
			nil,
		),
		Uptime: NewCounter(
			"agw_uptime_seconds",
			"Application uptime in seconds",
			nil,
		),

		// Bus metrics
		BusEventsPublished: NewCounterVec(
			"agw_bus_events_published_total",
			"Total number of events published to the bus",
			[]string{"topic"},
		),
		BusEventLatency: NewHistogramVec(
			"agw_bus_event_latency_seconds",
			"Event bus latency in seconds",
			[]string{"topic"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		),
		BusErrors: NewCounterVec(
			"agw_bus_errors_total",
			"Total number of event bus errors",
			[]string{"topic"},
		),

		// HTTP metrics
		HTTPRequests: NewCounterVec(
			"agw_http_requests_total",
			"Total number of HTTP requests",
			[]string{"method", "path", "status"},
		),
		HTTPDuration: NewHistogramVec(
			"agw_http_request_duration_seconds",
			"HTTP request duration in seconds",
			[]string{"method", "path"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		),
		HTTPRequestsInFlight: NewGauge(
			"agw_http_requests_in_flight",
			"Number of HTTP requests currently being processed",
			nil,
		),
		HTTPRequestSize: NewHistogramVec(
			"agw_http_request_size_bytes",
			"HTTP request size in bytes",
			[]string{"method", "path"},
			[]float64{100, 1000, 10000, 100000, 1000000, 10000000},
		),

		// Time-series data for charts
		TimeSeries: timeSeries,

		// Redis storage
		redisStorage: redisStorage,

		startTime: time.Now(),
	}

	// Start background collector for system metrics
	go m.collectSystemMetrics()

	return m
}

// collectSystemMetrics periodically collects system metrics.
func (m *Metrics) collectSystemMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		// Update goroutine count
		m.GoroutineCount.Set(float64(runtime.NumGoroutine()))

		// Update memory usage
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		m.MemoryUsage.Set(float64(memStats.Alloc))

		// Update uptime (in seconds)
		m.Uptime.Add(15)
	}
}

// RecordRoute records one resolved routing decision.
func (m *Metrics) RecordRoute(path, service string, seconds float64) {
	latencyMs := seconds * 1000

	m.RouteRequests.Inc()
	m.RouteLatency.Observe(latencyMs)
	m.RoutesByPath.WithLabels(path).Inc()
	m.RoutesByService.WithLabels(service).Inc()

	// Record time-series data for charts
	if m.TimeSeries != nil {
		m.TimeSeries.RecordRoute(latencyMs)
	}
}

// RecordRouteError records a failed routing attempt.
func (m *Metrics) RecordRouteError(err error) {
	m.RouteErrors.WithLabels(errorType(err)).Inc()
}

// RecordCache records a decision cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// UpdateCacheSize updates the decision cache size gauge.
func (m *Metrics) UpdateCacheSize(size int) {
	m.CacheSize.Set(float64(size))
}

// RecordLLM records one LLM classification call.
func (m *Metrics) RecordLLM(seconds float64, err error) {
	m.LLMRequests.Inc()
	m.LLMLatency.Observe(seconds * 1000)

	if m.TimeSeries != nil {
		m.TimeSeries.RecordLLM()
	}

	if err != nil {
		m.LLMErrors.Inc()
	}
}

// RecordUpstream records one dispatched backend request.
func (m *Metrics) RecordUpstream(service string, seconds float64, err error) {
	m.UpstreamRequests.WithLabels(service).Inc()
	m.UpstreamLatency.WithLabels(service).Observe(seconds * 1000)

	if err != nil {
		m.UpstreamErrors.WithLabels(service).Inc()
	}
}

// SetUpstreamHealthy records a backend health check outcome.
func (m *Metrics) SetUpstreamHealthy(service string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.UpstreamHealthy.WithLabels(service).Set(v)
}

// RecordBusPublish records event bus publish metrics.
func (m *Metrics) RecordBusPublish(topic string, latencyMs int64, err error) {
	m.BusEventsPublished.WithLabels(topic).Inc()

	// Convert milliseconds to seconds for Prometheus convention
	latencySeconds := float64(latencyMs) / 1000.0
	m.BusEventLatency.WithLabels(topic).Observe(latencySeconds)

	if err != nil {
		m.BusErrors.WithLabels(topic).Inc()
	}
}

// RecordHTTP records HTTP request metrics.
// This is called by the HTTP middleware.
func (m *Metrics) RecordHTTP(method, path string, status int, durationSeconds float64, sizeBytes int64) {
	// Normalize path to reduce cardinality
	normalizedPath := normalizePath(path)

	// Record request count with labels
	m.HTTPRequests.WithLabels(method, normalizedPath, statusCode(status)).Inc()

	// Record duration
	m.HTTPDuration.WithLabels(method, normalizedPath).Observe(durationSeconds)

	// Record request size
	if sizeBytes > 0 {
		m.HTTPRequestSize.WithLabels(method, normalizedPath).Observe(float64(sizeBytes))
	}
}

// errorType extracts error type from error.
func errorType(err error) string {
	if err == nil {
		return "unknown"
	}
	// Simple error type extraction - could be enhanced
	return "generic"
}

// Reset resets all metrics to zero (useful for testing).
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Reset counters
	m.RouteRequests.Reset()
	m.CacheHits.Reset()
	m.CacheMisses.Reset()
	m.LLMRequests.Reset()
	m.LLMErrors.Reset()
	m.Uptime.Reset()

	// Reset gauges
	m.CacheSize.Set(0)
	m.GoroutineCount.Set(0)
	m.MemoryUsage.Set(0)

	m.startTime = time.Now()
}

// Close closes the metrics instance and releases resources.
// Must be called when shutting down if Redis is used.
func (m *Metrics) Close() error {
	if m.redisStorage != nil {
		return m.redisStorage.Close()
	}
	return nil
}

// IsRedisPersisted returns true if metrics are persisted to Redis.
func (m *Metrics) IsRedisPersisted() bool {
	return m.redisStorage != nil
}
