package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentgateway/agent-gateway/internal/router"
)

func (h *Handler) defineTools() []Tool {
	return []Tool{
		{
			Name:        "route_query",
			Description: "Decide which backend service (search, drive, database, rag_pdf) should handle a natural-language query, without executing it. Returns the service, intent and confidence.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {
						Type:        "string",
						Description: "Natural language query (e.g., 'search the web for go releases', 'summarize my pdf')",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "dispatch_query",
			Description: "Route a natural-language query and execute it against the chosen backend service. Returns the routing decision and the backend's response.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {
						Type:        "string",
						Description: "Natural language query to route and execute",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "router_stats",
			Description: "Get routing statistics: query totals, keyword vs LLM split, cache hit rate.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
		{
			Name:        "clear_cache",
			Description: "Clear the decision cache and reset the routing counters.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
		{
			Name:        "service_health",
			Description: "Check the health of all upstream backend services.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
	}
}

func (h *Handler) callTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	switch name {
	case "route_query":
		return h.toolRouteQuery(ctx, args)
	case "dispatch_query":
		return h.toolDispatchQuery(ctx, args)
	case "router_stats":
		return h.toolRouterStats(ctx)
	case "clear_cache":
		return h.toolClearCache(ctx)
	case "service_health":
		return h.toolServiceHealth(ctx)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// queryArgs is the shared argument shape for the routing tools.
type queryArgs struct {
	Query string `json:"query"`
}

func (h *Handler) toolRouteQuery(ctx context.Context, args json.RawMessage) (string, error) {
	var params queryArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return "", err
	}

	d, err := h.router.Route(ctx, params.Query)
	if err != nil {
		return "", err
	}

	output := fmt.Sprintf("Service: %s\nIntent: %s\nConfidence: %.2f\nPath: %s\n",
		d.Service, d.Intent, d.Confidence, d.Path)
	if len(d.Secondary) > 0 {
		output += fmt.Sprintf("Secondary: %v\n", d.Secondary)
	}
	if d.Reasoning != "" {
		output += fmt.Sprintf("Reasoning: %s\n", d.Reasoning)
	}
	return output, nil
}

func (h *Handler) toolDispatchQuery(ctx context.Context, args json.RawMessage) (string, error) {
	var params queryArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return "", err
	}

	d, err := h.router.Route(ctx, params.Query)
	if err != nil {
		return "", err
	}

	if d.Service == router.ServiceGeneral {
		return fmt.Sprintf("Routed to %s: no backend service required for this query", d.Service), nil
	}

	result, err := h.upstreams.Dispatch(ctx, d)
	if err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Routed to %s (%s, confidence %.2f)\n\n%s",
		d.Service, d.Path, d.Confidence, payload), nil
}

func (h *Handler) toolRouterStats(ctx context.Context) (string, error) {
	stats := h.router.Stats(ctx)

	return fmt.Sprintf("Total queries: %d\nKeyword routes: %d (%.1f%%)\nLLM routes: %d (%.1f%%)\nCache hits: %d (%.1f%%)\nCache size: %d\nLLM enabled: %v",
		stats.TotalQueries,
		stats.KeywordRoutes, stats.KeywordRate*100,
		stats.LLMRoutes, stats.LLMRate*100,
		stats.CacheHits, stats.CacheHitRate*100,
		stats.CacheSize, stats.LLMEnabled), nil
}

func (h *Handler) toolClearCache(ctx context.Context) (string, error) {
	if err := h.router.ClearCache(ctx); err != nil {
		return "", err
	}
	return "Cache cleared", nil
}

func (h *Handler) toolServiceHealth(ctx context.Context) (string, error) {
	results := h.upstreams.HealthAll(ctx)

	var output string
	for _, r := range results {
		line := fmt.Sprintf("- %s: %s (%dms)", r.Service, r.Status, r.LatencyMS)
		if r.Error != "" {
			line += " - " + r.Error
		}
		output += line + "\n"
	}
	return output, nil
}
