// Package server provides the HTTP server that wires the gateway together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/agentgateway/agent-gateway/internal/bus"
	"github.com/agentgateway/agent-gateway/internal/config"
	"github.com/agentgateway/agent-gateway/internal/llm"
	"github.com/agentgateway/agent-gateway/internal/mcp"
	"github.com/agentgateway/agent-gateway/internal/metrics"
	reqcontext "github.com/agentgateway/agent-gateway/internal/pkg/context"
	"github.com/agentgateway/agent-gateway/internal/pkg/logger"
	"github.com/agentgateway/agent-gateway/internal/pkg/middleware"
	"github.com/agentgateway/agent-gateway/internal/pkg/security"
	"github.com/agentgateway/agent-gateway/internal/router"
	"github.com/agentgateway/agent-gateway/internal/upstream"
)

// Server is the gateway HTTP server: router, upstream clients, event
// bus and metrics wired behind one mux.
type Server struct {
	cfg        Config
	appCfg     config.Config
	log        *logger.Logger
	httpServer *http.Server

	// Services
	bus       bus.Bus
	router    *router.Router
	upstreams *upstream.Set
	metrics   *metrics.Metrics
	collector *metrics.Collector

	mcp       *mcp.Server
	mcpCancel context.CancelFunc

	handler *Handler

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// New creates a new server with all dependencies.
func New(cfg Config, appCfg config.Config, log *logger.Logger) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}

	s := &Server{
		cfg:    cfg,
		appCfg: appCfg,
		log:    log,
	}

	// Metrics first: everything else reports into them.
	if appCfg.Observability.MetricsEnabled {
		s.metrics = metrics.NewWithConfig(
			metricsPersistence(appCfg.Observability.MetricsRedis),
			appCfg.Observability.MetricsRedis,
		)
		s.collector = metrics.NewCollector(s.metrics)
	}

	// Event bus
	b, err := bus.NewBus(appCfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}
	if appCfg.Bus.EventLog != "" {
		eventLogger, err := bus.NewEventLogger(appCfg.Bus.EventLog, true)
		if err != nil {
			return nil, fmt.Errorf("creating event log: %w", err)
		}
		b = bus.NewLoggedBus(b, eventLogger, log)
	}
	if s.metrics != nil {
		b = bus.NewInstrumentedBus(b, s.metrics)
	}
	s.bus = b

	// Decision cache
	cache, err := buildCache(appCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("creating decision cache: %w", err)
	}

	// Keyword registry and weights
	registry, err := buildRegistry(appCfg.Router)
	if err != nil {
		return nil, fmt.Errorf("building pattern registry: %w", err)
	}

	detector, err := buildDetector(appCfg.Router)
	if err != nil {
		return nil, fmt.Errorf("building ambiguity detector: %w", err)
	}

	// LLM classifier (optional)
	var classifier router.Classifier
	if appCfg.LLM.Enabled {
		c, err := llm.New(llm.Config{
			Model:       appCfg.LLM.Model,
			Temperature: appCfg.LLM.Temperature,
			MaxTokens:   appCfg.LLM.MaxTokens,
			Timeout:     appCfg.LLMTimeout(),
		}, log)
		if err != nil {
			return nil, fmt.Errorf("creating classifier: %w", err)
		}
		classifier = c
	}

	routerCfg := router.Config{
		Options: router.Options{
			ConfidenceThreshold: appCfg.Router.ConfidenceThreshold,
			TieThreshold:        appCfg.Router.TieThreshold,
		},
		Registry:   registry,
		Weights:    buildWeights(appCfg.Router),
		Detector:   detector,
		Cache:      cache,
		Classifier: classifier,
		OnDecision: s.publishDecision,
		Log:        log,
	}
	if s.metrics != nil {
		routerCfg.Metrics = &routerMetrics{m: s.metrics}
	}

	rt, err := router.New(routerCfg)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}
	s.router = rt

	// Upstream MCP clients
	s.upstreams = upstream.NewSet(
		upstreamConfig(appCfg.Services.Search),
		upstreamConfig(appCfg.Services.Drive),
		upstreamConfig(appCfg.Services.Database),
		upstreamConfig(appCfg.Services.RAGPDF),
	)

	// Agent-facing MCP surface over the same router and upstreams.
	if appCfg.MCP.Enabled {
		s.mcp = mcp.NewServer(mcp.ServerConfig{
			SocketPath: appCfg.MCP.Socket,
			TCPAddr:    appCfg.MCP.TCPAddr,
			Handler: mcp.NewHandler(mcp.HandlerConfig{
				Router:    s.router,
				Upstreams: s.upstreams,
			}),
		})
	}

	s.handler = NewHandler(s, log)

	return s, nil
}

// buildCache constructs the decision cache from config.
func buildCache(cfg config.CacheConfig) (router.Cache, error) {
	switch cfg.Type {
	case "redis":
		return router.NewRedisCache(cfg.RedisURL, time.Duration(cfg.TTL)*time.Second)
	case "memory", "":
		return router.NewMemoryCache(cfg.Size), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// buildRegistry constructs the keyword registry, from a patterns file
// when configured, otherwise from the built-in tables.
func buildRegistry(cfg config.RouterConfig) (*router.Registry, error) {
	if cfg.PatternsFile != "" {
		return router.LoadPatternsFile(cfg.PatternsFile)
	}
	return router.NewRegistry(), nil
}

// buildDetector constructs the ambiguity detector, honoring pattern
// overrides from config.
func buildDetector(cfg config.RouterConfig) (*router.AmbiguityDetector, error) {
	if len(cfg.AmbiguousPatterns) == 0 {
		return router.NewAmbiguityDetector(nil)
	}
	return router.NewAmbiguityDetector(cfg.AmbiguousPatterns)
}

// buildWeights maps config weights onto the matcher.
func buildWeights(cfg config.RouterConfig) router.Weights {
	w := router.DefaultWeights()
	if cfg.PhraseWeight > 0 {
		w.PhraseWeight = cfg.PhraseWeight
	}
	if cfg.KeywordWeight > 0 {
		w.KeywordWeight = cfg.KeywordWeight
	}
	if cfg.NegativePenalty > 0 {
		w.NegativePenalty = cfg.NegativePenalty
	}
	if cfg.ConfidenceDivisor > 0 {
		w.ConfidenceDivisor = cfg.ConfidenceDivisor
	}
	if cfg.MinScore > 0 {
		w.MinScore = cfg.MinScore
	}
	if cfg.SecondaryThreshold > 0 {
		w.SecondaryThreshold = cfg.SecondaryThreshold
	}
	return w
}

// upstreamConfig maps a service config onto an upstream client config.
func upstreamConfig(cfg config.ServiceConfig) upstream.Config {
	c := upstream.DefaultConfig(cfg.URL)
	if cfg.TimeoutSec > 0 {
		c.Timeout = cfg.Timeout()
	}
	return c
}

// publishDecision is the router's decision hook: it publishes every
// resolved decision on the event bus.
func (s *Server) publishDecision(ctx context.Context, d *router.Decision) {
	topic := bus.TopicRouteDecision
	event := bus.NewDecisionEvent(d)
	if d.Path == router.PathLLM {
		topic = bus.TopicRouteEscalated
		event = bus.NewEscalatedEvent(d)
	}
	if err := s.bus.Publish(ctx, topic, event); err != nil {
		s.log.Warn("Failed to publish decision event", "topic", topic, "error", err)
	}
}

// metricsPersistence picks the metrics storage backend: Redis when a
// URL is configured, in-memory otherwise.
func metricsPersistence(redisURL string) string {
	if redisURL != "" {
		return "redis"
	}
	return "memory"
}

// routerMetrics adapts the metrics registry to the router's recorder
// interface.
type routerMetrics struct {
	m *metrics.Metrics
}

func (a *routerMetrics) RecordRoute(path router.Path, service router.Service, seconds float64) {
	a.m.RecordRoute(string(path), string(service), seconds)
}

func (a *routerMetrics) RecordCache(hit bool) {
	a.m.RecordCache(hit)
}

func (a *routerMetrics) RecordLLM(seconds float64, err error) {
	a.m.RecordLLM(seconds, err)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	// Feed bus events into the metrics registry.
	if s.metrics != nil {
		sub := metrics.NewEventSubscriber(s.metrics, s.bus)
		if err := sub.SubscribeToEvents(context.Background()); err != nil {
			s.log.Warn("Failed to subscribe metrics to events", "error", err)
		}
	}

	// MCP server runs alongside the HTTP surface until Stop cancels it.
	if s.mcp != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.mcpCancel = cancel
		go func() {
			if err := s.mcp.Start(ctx); err != nil {
				s.log.Error("MCP server error", "error", err)
			}
		}()
	}

	// Setup routes
	handler := s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("Starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server. Readiness drops before the
// in-flight drain so load balancers stop sending new work.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.log.Info("Shutting down server...")

	if s.mcpCancel != nil {
		s.mcpCancel()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	// Close services
	if s.bus != nil {
		s.bus.Close()
	}
	if s.metrics != nil {
		s.metrics.Close()
	}

	s.log.Info("Server stopped")

	return nil
}

// setupRoutes configures all HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.handler.RegisterRoutes(mux)

	if s.metrics != nil && s.appCfg.Observability.MetricsEnabled {
		path := s.appCfg.Observability.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = ResponseWrapperMiddleware(handler)

	if s.appCfg.Security.APIKey != "" {
		auth := middleware.NewAPIKeyAuth(s.appCfg.Security.APIKey,
			"/healthz", "/readyz", "/metrics")
		handler = auth.Middleware(handler)
	}

	handler = CORSMiddleware(handler)

	if s.appCfg.Security.RateLimit > 0 {
		rlCfg := middleware.DefaultRateLimiterConfig()
		rlCfg.RequestsPerSecond = float64(s.appCfg.Security.RateLimit)
		rl := middleware.NewRateLimiter(rlCfg)
		handler = rl.Middleware(handler)
	}

	if s.metrics != nil {
		handler = metrics.HTTPMiddleware(s.metrics, handler)
	}

	return wrapWithLogging(handler, s.log)
}

// CORSMiddleware adds permissive CORS headers and answers preflight
// requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// wrapWithLogging returns a handler with request logging. The caller's
// connection ID, when sent, rides along in the request context.
func wrapWithLogging(handler http.Handler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Malformed IDs are dropped rather than rejected; the header is
		// advisory and only feeds logs.
		if connID := r.Header.Get("X-Connection-ID"); connID != "" {
			if err := security.ValidateConnectionID(connID); err == nil {
				r = r.WithContext(reqcontext.WithConnectionID(r.Context(), connID))
			}
		}

		// Create response writer wrapper to capture status
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		handler.ServeHTTP(wrapped, r)

		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
			"connection_id", reqcontext.GetConnectionID(r.Context()),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Health returns the server health status.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Router exposes the wired router, mainly for tests.
func (s *Server) Router() *router.Router {
	return s.router
}
