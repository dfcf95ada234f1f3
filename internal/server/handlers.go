package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/agentgateway/agent-gateway/internal/bus"
	apperrors "github.com/agentgateway/agent-gateway/internal/pkg/errors"
	"github.com/agentgateway/agent-gateway/internal/pkg/logger"
	"github.com/agentgateway/agent-gateway/internal/pkg/security"
	"github.com/agentgateway/agent-gateway/internal/router"
	"github.com/agentgateway/agent-gateway/internal/upstream"
)

// Handler serves the gateway's HTTP API.
type Handler struct {
	srv *Server
	log *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(srv *Server, log *logger.Logger) *Handler {
	return &Handler{srv: srv, log: log}
}

// RouteRequest is the body of POST /v1/route and POST /v1/query.
// NumResults optionally overrides how many results the chosen backend
// should return; zero keeps the extracted or default value.
type RouteRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

// QueryResponse is the body of POST /v1/query: the routing decision
// plus whatever the chosen backend returned.
type QueryResponse struct {
	Decision *router.Decision `json:"decision"`
	Result   any              `json:"result,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// VersionResponse is the body of GET /v1/version.
type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Upstreams []upstream.ServiceHealth `json:"upstreams"`
}

// RegisterRoutes registers the gateway API routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/route", h.requirePost(h.handleRoute))
	mux.HandleFunc("/v1/query", h.requirePost(h.handleQuery))
	mux.HandleFunc("/v1/stats", h.requireGet(h.handleStats))
	mux.HandleFunc("/v1/cache/clear", h.requirePost(h.handleCacheClear))
	mux.HandleFunc("/v1/version", h.requireGet(h.handleVersion))
	mux.HandleFunc("/healthz", h.requireGet(h.handleLiveness))
	mux.HandleFunc("/readyz", h.requireGet(h.handleReadiness))
	mux.HandleFunc("/health", h.requireGet(h.handleHealth))
}

func (h *Handler) requirePost(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (h *Handler) requireGet(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

// handleRoute resolves a query to a routing decision without calling
// any backend.
func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRouteRequest(w, r)
	if !ok {
		return
	}

	d, err := h.srv.router.Route(r.Context(), req.Query)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.log.Debug("Routed query",
		"query", security.SanitizeQuery(req.Query),
		"service", d.Service,
		"path", d.Path,
		"confidence", d.Confidence,
	)

	writeJSON(w, http.StatusOK, d)
}

// handleQuery resolves a query and dispatches it to the chosen
// backend. General queries are answered locally.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRouteRequest(w, r)
	if !ok {
		return
	}

	d, err := h.srv.router.Route(r.Context(), req.Query)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	// The routed decision may be cached and shared; overriding a call
	// parameter works on a copy.
	if req.NumResults > 0 {
		d = d.WithParameter("num_results", req.NumResults)
	}

	resp := QueryResponse{Decision: d}

	if d.Service == router.ServiceGeneral {
		resp.Message = "no backend service required for this query"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	start := time.Now()
	result, err := h.srv.upstreams.Dispatch(r.Context(), d)
	elapsed := time.Since(start).Seconds()
	if h.srv.metrics != nil {
		h.srv.metrics.RecordUpstream(string(d.Service), elapsed, err)
	}
	if err != nil {
		h.log.Warn("Upstream dispatch failed",
			"service", d.Service,
			"intent", d.Intent,
			"error", err,
		)
		h.writeAppError(w, apperrors.Wrap(apperrors.CodeUpstreamError, "dispatch failed", err))
		return
	}

	resp.Result = result
	writeJSON(w, http.StatusOK, resp)
}

// handleStats returns routing statistics, with collector detail when
// metrics are enabled.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	snapshot := h.srv.router.Stats(r.Context())

	if h.srv.collector == nil {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	detail, err := h.srv.collector.Collect(r.Context())
	if err != nil {
		h.log.Warn("Metrics collection failed", "error", err)
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"router":  snapshot,
		"metrics": detail,
	})
}

// handleCacheClear clears the decision cache and resets the counters.
func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.srv.router.ClearCache(r.Context()); err != nil {
		h.writeAppError(w, err)
		return
	}

	if err := h.srv.bus.Publish(r.Context(), bus.TopicCacheCleared, bus.NewCacheClearedEvent()); err != nil {
		h.log.Warn("Failed to publish cache cleared event", "error", err)
	}
	if h.srv.metrics != nil {
		h.srv.metrics.UpdateCacheSize(0)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleVersion returns build information.
func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   h.srv.cfg.Version,
		GoVersion: runtime.Version(),
	})
}

// handleLiveness reports process liveness.
func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness reports whether the server accepts traffic.
func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !h.srv.Health() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleHealth aggregates gateway and upstream health. Unhealthy
// upstreams are published on the event bus.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := h.srv.upstreams.HealthAll(r.Context())

	for _, res := range results {
		if h.srv.metrics != nil {
			h.srv.metrics.SetUpstreamHealthy(string(res.Service), res.Status != "disconnected")
		}
		if res.Status == "disconnected" {
			event := bus.NewUnhealthyEvent(res.Service, res.Error)
			if err := h.srv.bus.Publish(r.Context(), bus.TopicUpstreamUnhealthy, event); err != nil {
				h.log.Warn("Failed to publish unhealthy event", "service", res.Service, "error", err)
			}
		}
	}

	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.srv.cfg.Version,
		Upstreams: results,
	}
	status := http.StatusOK
	if !upstream.Healthy(results) {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// decodeRouteRequest parses and validates the shared request body.
func (h *Handler) decodeRouteRequest(w http.ResponseWriter, r *http.Request) (RouteRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, security.MaxRequestSize)
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := security.ValidateQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// writeAppError maps application errors onto HTTP responses.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeError(w, appErr.HTTPStatus(), appErr.Message)
		return
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, apiErr.Message)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "request timed out")
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err // Encoding error after response started
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
