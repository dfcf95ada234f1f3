package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentgateway/agent-gateway/internal/config"
	"github.com/agentgateway/agent-gateway/internal/pkg/logger"
)

// healthyBackend serves the minimal REST surface the gateway talks to.
func healthyBackend(t *testing.T, service string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": service})
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"query":         "latest news",
			"results":       []map[string]any{{"title": "Go 1.25", "url": "https://example.com", "rank": 1}},
			"total_results": 1,
			"search_engine": "duckduckgo",
		})
	})
	return httptest.NewServer(mux)
}

func newTestServer(t *testing.T, searchURL, driveURL, databaseURL, ragURL string) *Server {
	t.Helper()

	appCfg := config.Config{
		Cache: config.CacheConfig{Type: "memory", Size: 10},
		Bus:   config.BusConfig{Type: "memory"},
		Services: config.ServicesConfig{
			Search:   config.ServiceConfig{URL: searchURL, TimeoutSec: 5},
			Drive:    config.ServiceConfig{URL: driveURL, TimeoutSec: 5},
			Database: config.ServiceConfig{URL: databaseURL, TimeoutSec: 5},
			RAGPDF:   config.ServiceConfig{URL: ragURL, TimeoutSec: 5},
		},
	}

	srv, err := New(Config{Host: "127.0.0.1", Port: 0, Version: "test"}, appCfg, logger.Default())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { srv.bus.Close() })
	return srv
}

// doJSON posts a JSON body through the full middleware chain.
func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// unwrap decodes a wrapped /v1 response and returns its data payload.
func unwrap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var wrapped WrappedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &wrapped); err != nil {
		t.Fatalf("decoding wrapped response: %v", err)
	}
	if wrapped.Meta.RequestID == "" {
		t.Error("expected request_id in response meta")
	}
	data, ok := wrapped.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", wrapped.Data)
	}
	return data
}

func TestHandleRoute(t *testing.T) {
	backend := healthyBackend(t, "search")
	defer backend.Close()

	srv := newTestServer(t, backend.URL, backend.URL, backend.URL, backend.URL)
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/route", map[string]string{
		"query": "search for latest news online",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data := unwrap(t, rec)
	if data["service"] != "search" {
		t.Errorf("service = %v, want search", data["service"])
	}
	if data["path"] != "keyword" {
		t.Errorf("path = %v, want keyword", data["path"])
	}
}

func TestHandleRouteValidation(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/route", map[string]string{"query": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/route", bytes.NewBufferString("{not json"))
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed body", rec2.Code)
	}
}

func TestHandleRouteMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodGet, "/v1/route", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleQueryDispatch(t *testing.T) {
	backend := healthyBackend(t, "search")
	defer backend.Close()

	srv := newTestServer(t, backend.URL, backend.URL, backend.URL, backend.URL)
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/query", map[string]string{
		"query": "search for latest news online",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data := unwrap(t, rec)
	decision, ok := data["decision"].(map[string]any)
	if !ok {
		t.Fatal("expected decision in response")
	}
	if decision["service"] != "search" {
		t.Errorf("service = %v, want search", decision["service"])
	}
	result, ok := data["result"].(map[string]any)
	if !ok {
		t.Fatal("expected result in response")
	}
	if result["search_engine"] != "duckduckgo" {
		t.Errorf("search_engine = %v, want duckduckgo", result["search_engine"])
	}
}

func TestHandleQueryGeneralAnsweredLocally(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/query", map[string]string{
		"query": "hello there",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	data := unwrap(t, rec)
	decision := data["decision"].(map[string]any)
	if decision["service"] != "general" {
		t.Errorf("service = %v, want general", decision["service"])
	}
	if data["message"] == nil || data["message"] == "" {
		t.Error("expected local message for general query")
	}
	if data["result"] != nil {
		t.Errorf("expected no backend result, got %v", data["result"])
	}
}

func TestHandleQueryUpstreamFailure(t *testing.T) {
	// Search backend that always fails.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "engine exploded"})
	}))
	defer backend.Close()

	srv := newTestServer(t, backend.URL, backend.URL, backend.URL, backend.URL)
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/query", map[string]string{
		"query": "search for latest news online",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	doJSON(t, handler, http.MethodPost, "/v1/route", map[string]string{"query": "search for latest news online"})
	doJSON(t, handler, http.MethodPost, "/v1/route", map[string]string{"query": "search for latest news online"})

	rec := doJSON(t, handler, http.MethodGet, "/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	data := unwrap(t, rec)
	if data["total_queries"] != float64(2) {
		t.Errorf("total_queries = %v, want 2", data["total_queries"])
	}
	if data["cache_hits"] != float64(1) {
		t.Errorf("cache_hits = %v, want 1", data["cache_hits"])
	}
}

func TestHandleCacheClear(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	doJSON(t, handler, http.MethodPost, "/v1/route", map[string]string{"query": "search for latest news online"})

	rec := doJSON(t, handler, http.MethodPost, "/v1/cache/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := unwrap(t, rec)
	if data["status"] != "cleared" {
		t.Errorf("status = %v, want cleared", data["status"])
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/stats", nil)
	stats := unwrap(t, rec)
	if stats["total_queries"] != float64(0) {
		t.Errorf("total_queries after clear = %v, want 0", stats["total_queries"])
	}
	if stats["cache_size"] != float64(0) {
		t.Errorf("cache_size after clear = %v, want 0", stats["cache_size"])
	}
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodGet, "/v1/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// Version responses are not wrapped.
	var resp VersionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding version: %v", err)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
}

func TestHandleLivenessAndReadiness(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	// Not started yet: not ready.
	rec = doJSON(t, handler, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503 before start", rec.Code)
	}

	srv.mu.Lock()
	srv.started = true
	srv.mu.Unlock()

	rec = doJSON(t, handler, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200 after start", rec.Code)
	}
}

func TestHandleHealthAggregates(t *testing.T) {
	backend := healthyBackend(t, "search")
	defer backend.Close()

	srv := newTestServer(t, backend.URL, backend.URL, backend.URL, backend.URL)
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if len(resp.Upstreams) != 4 {
		t.Errorf("upstreams = %d, want 4", len(resp.Upstreams))
	}
}

func TestHandleHealthDegraded(t *testing.T) {
	backend := healthyBackend(t, "search")
	defer backend.Close()

	// Drive points at a closed port.
	srv := newTestServer(t, backend.URL, "http://127.0.0.1:1", backend.URL, backend.URL)
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestCORSPreflights(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/v1/route", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
}

func TestHandleQueryNumResultsOverride(t *testing.T) {
	var got struct {
		Query      string `json:"query"`
		NumResults int    `json:"num_results"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding search request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"query":         got.Query,
			"total_results": 0,
			"search_engine": "duckduckgo",
		})
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()

	srv := newTestServer(t, backend.URL, backend.URL, backend.URL, backend.URL)
	handler := srv.setupRoutes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/query", map[string]any{
		"query":       "search for latest news online",
		"num_results": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got.NumResults != 3 {
		t.Errorf("backend num_results = %d, want 3", got.NumResults)
	}

	// The override must not leak into the cached decision.
	rec2 := doJSON(t, handler, http.MethodPost, "/v1/query", map[string]any{
		"query": "search for latest news online",
	})
	if rec2.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec2.Code, rec2.Body.String())
	}
	if got.NumResults != 5 {
		t.Errorf("backend num_results after plain query = %d, want default 5", got.NumResults)
	}
}

func TestAPIKeyEnforcement(t *testing.T) {
	appCfg := config.Config{
		Cache:    config.CacheConfig{Type: "memory", Size: 10},
		Bus:      config.BusConfig{Type: "memory"},
		Security: config.SecurityConfig{APIKey: "sekrit"},
		Services: config.ServicesConfig{
			Search:   config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
			Drive:    config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
			Database: config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
			RAGPDF:   config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
		},
	}
	srv, err := New(Config{Host: "127.0.0.1", Port: 0, Version: "test"}, appCfg, logger.Default())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { srv.bus.Close() })
	handler := srv.setupRoutes()

	// Missing key rejected
	rec := doJSON(t, handler, http.MethodPost, "/v1/route", map[string]string{"query": "search for latest news online"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	// Valid key accepted
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]string{"query": "search for latest news online"})
	req := httptest.NewRequest(http.MethodPost, "/v1/route", &buf)
	req.Header.Set("X-API-Key", "sekrit")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", rec2.Code)
	}

	// Liveness probe bypasses auth
	req3 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200 without key", rec3.Code)
	}
}

func TestMCPServerWiring(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "mcp.sock")
	appCfg := config.Config{
		Cache: config.CacheConfig{Type: "memory", Size: 10},
		Bus:   config.BusConfig{Type: "memory"},
		MCP:   config.MCPConfig{Enabled: true, Socket: sock},
		Services: config.ServicesConfig{
			Search:   config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
			Drive:    config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
			Database: config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
			RAGPDF:   config.ServiceConfig{URL: "http://127.0.0.1:1", TimeoutSec: 5},
		},
	}
	srv, err := New(Config{Host: "127.0.0.1", Port: 0, Version: "test"}, appCfg, logger.Default())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { srv.bus.Close() })

	if srv.mcp == nil {
		t.Fatal("expected MCP server to be constructed when enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.mcp.Start(ctx)

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", sock)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dialing MCP socket: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n")); err != nil {
		t.Fatalf("writing initialize: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("reading initialize response: %v", err)
	}
	if !strings.Contains(line, "agent-gateway") {
		t.Errorf("initialize response missing server info: %s", line)
	}
}

func TestMCPServerDisabledByDefault(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	if srv.mcp != nil {
		t.Error("MCP server should not be constructed when disabled")
	}
}

func TestStopDropsReadinessBeforeDrain(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")
	handler := srv.setupRoutes()

	srv.mu.Lock()
	srv.started = true
	srv.mu.Unlock()

	// Observe readiness from inside the drain phase.
	srv.httpServer = &http.Server{}
	status := make(chan int, 1)
	srv.httpServer.RegisterOnShutdown(func() {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		status <- rec.Code
	})

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	select {
	case code := <-status:
		if code != http.StatusServiceUnavailable {
			t.Errorf("readiness during drain = %d, want 503", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown hook never ran")
	}
}

func TestMetricsPersistenceSelection(t *testing.T) {
	if got := metricsPersistence(""); got != "memory" {
		t.Errorf("metricsPersistence(\"\") = %q, want memory", got)
	}
	if got := metricsPersistence("redis://localhost:6379"); got != "redis" {
		t.Errorf("metricsPersistence(url) = %q, want redis", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want %q", cfg.Host, "0.0.0.0")
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.ShutdownTimeout == 0 {
		t.Error("expected non-zero shutdown timeout")
	}
}
