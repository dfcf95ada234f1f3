package metrics

import (
	"context"
	"testing"
	"time"
)

func TestNewRedisStorage_InvalidURL(t *testing.T) {
	_, err := NewRedisStorage("invalid://url")
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewRedisStorage_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStorage("redis://localhost:9999")
	if err == nil {
		t.Fatal("expected error for connection failure")
	}
}

func TestRedisStorage_SaveAndLoad(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()
	defer storage.DeleteMetric(ctx, "agw_route_latency_ms")

	// Latency samples from three routed queries.
	now := time.Now()
	dataPoints := []DataPoint{
		{Timestamp: now.Add(-10 * time.Minute), Value: 2.4},
		{Timestamp: now.Add(-5 * time.Minute), Value: 311.0},
		{Timestamp: now, Value: 1.1},
	}

	for _, dp := range dataPoints {
		err := storage.SaveDataPoint(ctx, "agw_route_latency_ms", dp)
		if err != nil {
			t.Fatalf("SaveDataPoint failed: %v", err)
		}
	}

	since := now.Add(-15 * time.Minute)
	loaded, err := storage.LoadHistory(ctx, "agw_route_latency_ms", since)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}

	if len(loaded) != len(dataPoints) {
		t.Errorf("expected %d data points, got %d", len(dataPoints), len(loaded))
	}

	for i, dp := range loaded {
		if i >= len(dataPoints) {
			break
		}
		expected := dataPoints[i].Value
		if dp.Value < expected-0.1 || dp.Value > expected+0.1 {
			t.Errorf("data point %d: expected value ~%.2f, got %.2f", i, expected, dp.Value)
		}
	}
}

func TestRedisStorage_SaveBatch(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()
	defer storage.DeleteMetric(ctx, "agw_cache_hits_total")

	// A flush of accumulated cache-hit counts.
	now := time.Now()
	batch := []DataPoint{
		{Timestamp: now.Add(-20 * time.Minute), Value: 5.0},
		{Timestamp: now.Add(-15 * time.Minute), Value: 12.0},
		{Timestamp: now.Add(-10 * time.Minute), Value: 19.0},
		{Timestamp: now.Add(-5 * time.Minute), Value: 31.0},
		{Timestamp: now, Value: 44.0},
	}

	err = storage.SaveBatch(ctx, "agw_cache_hits_total", batch)
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	loaded, err := storage.LoadHistory(ctx, "agw_cache_hits_total", now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}

	if len(loaded) != len(batch) {
		t.Errorf("expected %d data points, got %d", len(batch), len(loaded))
	}
}

func TestRedisStorage_TTL(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()
	defer storage.DeleteMetric(ctx, "agw_llm_latency_ms")

	storage.SetTTL(1 * time.Second)

	now := time.Now()
	stale := DataPoint{Timestamp: now.Add(-2 * time.Second), Value: 850.0}
	fresh := DataPoint{Timestamp: now, Value: 920.0}

	storage.SaveDataPoint(ctx, "agw_llm_latency_ms", stale)
	storage.SaveDataPoint(ctx, "agw_llm_latency_ms", fresh)

	loaded, _ := storage.LoadHistory(ctx, "agw_llm_latency_ms", now.Add(-5*time.Second))
	if len(loaded) < 1 {
		t.Error("expected at least 1 data point immediately after save")
	}

	// The stale point is dropped by ZRemRangeByScore on the next save
	// once its TTL window has passed.
	time.Sleep(100 * time.Millisecond)
	loaded, _ = storage.LoadHistory(ctx, "agw_llm_latency_ms", now.Add(-5*time.Second))

	if len(loaded) == 0 {
		t.Error("expected at least the fresh data point")
	}
}

func TestRedisStorage_GetMetricNames(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()

	names := []string{"agw_route_requests_total", "agw_llm_requests_total", "agw_upstream_errors_total"}
	dp := DataPoint{Timestamp: time.Now(), Value: 1.0}

	for _, name := range names {
		storage.SaveDataPoint(ctx, name, dp)
		defer storage.DeleteMetric(ctx, name)
	}

	got, err := storage.GetMetricNames(ctx)
	if err != nil {
		t.Fatalf("GetMetricNames failed: %v", err)
	}

	if len(got) < len(names) {
		t.Errorf("expected at least %d metrics, got %d", len(names), len(got))
	}

	gotSet := make(map[string]bool)
	for _, name := range got {
		gotSet[name] = true
	}

	for _, expected := range names {
		if !gotSet[expected] {
			t.Errorf("expected metric %s not found in names", expected)
		}
	}
}

func TestRedisStorage_DeleteMetric(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()

	dp := DataPoint{Timestamp: time.Now(), Value: 42.0}
	storage.SaveDataPoint(ctx, "agw_cache_size", dp)

	loaded, _ := storage.LoadHistory(ctx, "agw_cache_size", time.Now().Add(-1*time.Minute))
	if len(loaded) == 0 {
		t.Fatal("metric should exist before delete")
	}

	err = storage.DeleteMetric(ctx, "agw_cache_size")
	if err != nil {
		t.Fatalf("DeleteMetric failed: %v", err)
	}

	loaded, _ = storage.LoadHistory(ctx, "agw_cache_size", time.Now().Add(-1*time.Minute))
	if len(loaded) != 0 {
		t.Errorf("expected 0 data points after delete, got %d", len(loaded))
	}
}

func TestRedisStorage_GetStats(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()

	stats, err := storage.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	for _, field := range []string{"total_metrics", "redis_info", "prefix", "ttl_hours"} {
		if _, ok := stats[field]; !ok {
			t.Errorf("stats missing %s", field)
		}
	}
}
