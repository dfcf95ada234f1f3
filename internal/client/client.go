// Package client provides an HTTP client for the gateway API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/agentgateway/agent-gateway/internal/pkg/hash"
)

// Client is an HTTP client for the gateway API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	connectionID string
	apiKey       string
}

// Config configures the client.
type Config struct {
	// BaseURL is the base URL of the gateway.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// ConnectionID is an optional explicit connection ID.
	// If empty, one will be auto-generated from hostname/MAC.
	ConnectionID string

	// APIKey is sent as X-API-Key when the gateway requires one.
	APIKey string

	// MaxIdleConns controls the maximum number of idle (keep-alive) connections
	// across all hosts. Zero means no limit.
	MaxIdleConns int

	// MaxConnsPerHost limits the total number of connections per host.
	// Zero means no limit.
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle (keep-alive)
	// connection will remain idle before closing itself.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         30 * time.Second,
		MaxIdleConns:    100,
		MaxConnsPerHost: 100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// GenerateConnectionID creates a stable, unique connection ID for this machine.
// It uses hostname + MAC address + OS/Arch to create a deterministic identifier.
func GenerateConnectionID() string {
	var parts []string

	// Hostname
	if hostname, err := os.Hostname(); err == nil {
		parts = append(parts, hostname)
	}

	// Primary MAC address
	if mac := getPrimaryMAC(); mac != "" {
		parts = append(parts, mac)
	}

	// OS and architecture for disambiguation
	parts = append(parts, runtime.GOOS, runtime.GOARCH)

	return hash.ConnectionID(parts...)
}

// getPrimaryMAC returns the MAC address of the first non-loopback interface.
func getPrimaryMAC() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range interfaces {
		// Skip loopback and interfaces without MAC
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		// Skip virtual interfaces (common patterns)
		name := strings.ToLower(iface.Name)
		if strings.HasPrefix(name, "docker") ||
			strings.HasPrefix(name, "veth") ||
			strings.HasPrefix(name, "br-") ||
			strings.HasPrefix(name, "virbr") {
			continue
		}
		return iface.HardwareAddr.String()
	}

	return ""
}

// New creates a new gateway client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 100
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	// Auto-generate connection ID if not provided
	connectionID := cfg.ConnectionID
	if connectionID == "" {
		connectionID = GenerateConnectionID()
	}

	// Configure explicit connection pooling for production tuning
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost / 5, // 20% per host
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		connectionID: connectionID,
		apiKey:       cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// ConnectionID returns the client's connection ID.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// Decision is a routing decision returned by the gateway.
type Decision struct {
	Query      string         `json:"query"`
	Service    string         `json:"service"`
	Secondary  []string       `json:"secondary,omitempty"`
	Intent     string         `json:"intent"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Confidence float64        `json:"confidence"`
	Path       string         `json:"path"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// QueryResult is a routed query together with the backend payload.
type QueryResult struct {
	Decision *Decision       `json:"decision"`
	Result   json.RawMessage `json:"result,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// RouterStats mirrors the gateway's routing statistics.
type RouterStats struct {
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

// UpstreamHealth is the health of one backend service.
type UpstreamHealth struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is the gateway's aggregate health report.
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version,omitempty"`
	Upstreams []UpstreamHealth `json:"upstreams,omitempty"`
}

// VersionResponse is the gateway's build information.
type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// APIError represents an API error response.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Route resolves a query to a routing decision without dispatching it.
func (c *Client) Route(ctx context.Context, query string) (*Decision, error) {
	var d Decision
	if err := c.post(ctx, "/v1/route", map[string]string{"query": query}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Query routes a query and dispatches it to the chosen backend.
func (c *Client) Query(ctx context.Context, query string) (*QueryResult, error) {
	var res QueryResult
	if err := c.post(ctx, "/v1/query", map[string]string{"query": query}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Stats returns the gateway's routing statistics.
func (c *Client) Stats(ctx context.Context) (*RouterStats, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/v1/stats", &raw); err != nil {
		return nil, err
	}

	// With metrics enabled the stats are nested under "router".
	var nested struct {
		Router *RouterStats `json:"router"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Router != nil {
		return nested.Router, nil
	}

	var stats RouterStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &stats, nil
}

// ClearCache empties the gateway's decision cache and resets counters.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.post(ctx, "/v1/cache/clear", nil, nil)
}

// Health returns the gateway's aggregate health, including upstreams.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Version returns the gateway's build information.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	var resp VersionResponse
	if err := c.get(ctx, "/v1/version", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// do executes a request and unwraps enveloped responses.
func (c *Client) do(req *http.Request, result interface{}) error {
	// Add connection ID header to all requests
	if c.connectionID != "" {
		req.Header.Set("X-Connection-ID", c.connectionID)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return &apiErr
	}

	if result == nil || len(body) == 0 {
		return nil
	}

	// Successful /v1 responses arrive wrapped as {data, meta}.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	payload := body
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		payload = envelope.Data
	}

	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
