package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/agentgateway/agent-gateway/internal/pkg/errors"
)

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.RequestsPerSecond != 100 {
		t.Errorf("expected RequestsPerSecond=100, got %f", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 200 {
		t.Errorf("expected Burst=200, got %d", cfg.Burst)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("expected CleanupInterval=1m, got %v", cfg.CleanupInterval)
	}
}

func TestNewRateLimiter(t *testing.T) {
	cfg := RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   10 * time.Second,
	}

	rl := NewRateLimiter(cfg)

	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if rl.rate != 10 {
		t.Errorf("expected rate=10, got %f", rl.rate)
	}
	if rl.burst != 20 {
		t.Errorf("expected burst=20, got %d", rl.burst)
	}
	if len(rl.clients) != 0 {
		t.Errorf("expected empty clients map, got %d entries", len(rl.clients))
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})

	agentIP := "192.168.1.100"

	// Burst covers the first two queries.
	if !rl.Allow(agentIP) {
		t.Error("expected first request to be allowed")
	}
	if !rl.Allow(agentIP) {
		t.Error("expected second request to be allowed")
	}

	if rl.Allow(agentIP) {
		t.Error("expected third request to be denied after burst")
	}

	// Refill at 2 req/s gives a token back within 600ms.
	time.Sleep(600 * time.Millisecond)

	if !rl.Allow(agentIP) {
		t.Error("expected request to be allowed after refill")
	}
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             5,
		CleanupInterval:   time.Minute,
	})

	// Two agents hammering the gateway must not share a bucket.
	agentA := "192.168.1.100"
	agentB := "192.168.1.101"

	for i := 0; i < 5; i++ {
		if !rl.Allow(agentA) {
			t.Errorf("agent A request %d should be allowed", i)
		}
		if !rl.Allow(agentB) {
			t.Errorf("agent B request %d should be allowed", i)
		}
	}

	if rl.Allow(agentA) {
		t.Error("agent A should be rate limited")
	}
	if rl.Allow(agentB) {
		t.Error("agent B should be rate limited")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		CleanupInterval:   time.Minute,
	})

	var wg sync.WaitGroup
	numGoroutines := 10
	requestsPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(clientNum int) {
			defer wg.Done()
			agentIP := fmt.Sprintf("192.168.1.%d", clientNum)
			for j := 0; j < requestsPerGoroutine; j++ {
				rl.Allow(agentIP)
			}
		}(i)
	}

	wg.Wait()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"service":"search"}`))
	})

	middleware := rl.Middleware(handler)

	body := `{"query":"latest go release notes"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/v1/query", strings.NewReader(body))
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()

		middleware.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i, w.Code)
		}
	}

	req := httptest.NewRequest("POST", "/v1/query", strings.NewReader(body))
	req.RemoteAddr = "192.168.1.100:12345"
	w := httptest.NewRecorder()

	middleware.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", w.Code)
	}

	var errResp apperrors.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding 429 body: %v", err)
	}
	if errResp.Code != apperrors.CodeRateLimited {
		t.Errorf("expected error code %s, got %s", apperrors.CodeRateLimited, errResp.Code)
	}
}

func TestGetClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/query", nil)
	req.RemoteAddr = "192.168.1.100:12345"

	if ip := getClientIP(req); ip != "192.168.1.100" {
		t.Errorf("expected IP 192.168.1.100, got %s", ip)
	}
}

func TestGetClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/query", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.1")

	if ip := getClientIP(req); ip != "203.0.113.1" {
		t.Errorf("expected IP 203.0.113.1, got %s", ip)
	}
}

func TestGetClientIP_XRealIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/query", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Real-IP", "203.0.113.50")

	if ip := getClientIP(req); ip != "203.0.113.50" {
		t.Errorf("expected IP 203.0.113.50, got %s", ip)
	}
}

func TestGetClientIP_HeaderPriority(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/query", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	req.Header.Set("X-Real-IP", "203.0.113.50")

	// X-Forwarded-For wins over X-Real-IP.
	if ip := getClientIP(req); ip != "203.0.113.1" {
		t.Errorf("expected IP 203.0.113.1 (X-Forwarded-For priority), got %s", ip)
	}
}

func TestGetClientIP_IPv6(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/query", nil)
	req.RemoteAddr = "[2001:db8::1]:12345"

	if ip := getClientIP(req); ip != "[2001:db8::1]" {
		t.Errorf("expected IP [2001:db8::1], got %s", ip)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		CleanupInterval:   100 * time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		rl.Allow(fmt.Sprintf("192.168.1.%d", i))
	}

	rl.mu.RLock()
	initialCount := len(rl.clients)
	rl.mu.RUnlock()

	if initialCount != 5 {
		t.Errorf("expected 5 clients, got %d", initialCount)
	}

	// The staleness threshold is 5 minutes, so a cleanup pass must not
	// evict entries touched just now.
	time.Sleep(200 * time.Millisecond)

	rl.mu.RLock()
	afterCleanup := len(rl.clients)
	rl.mu.RUnlock()

	if afterCleanup != 5 {
		t.Errorf("expected 5 clients after cleanup pass, got %d", afterCleanup)
	}
}
