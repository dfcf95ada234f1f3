package bus

import (
	"fmt"
	"time"

	"github.com/agentgateway/agent-gateway/internal/router"
)

const eventSource = "agent-gateway"

func newEvent(eventType string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        fmt.Sprintf("%s-%d", eventType, now.UnixNano()),
		Type:      eventType,
		Source:    eventSource,
		Timestamp: now.Unix(),
		Payload:   payload,
	}
}

// DecisionPayload is the payload of route.decision and route.escalated
// events.
type DecisionPayload struct {
	Query      string         `json:"query"`
	Service    router.Service `json:"service"`
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Path       router.Path    `json:"path"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// NewDecisionEvent builds a route.decision event from a resolved decision.
func NewDecisionEvent(d *router.Decision) Event {
	return newEvent(TopicRouteDecision, DecisionPayload{
		Query:      d.Query,
		Service:    d.Service,
		Intent:     d.Intent,
		Confidence: d.Confidence,
		Path:       d.Path,
		Reasoning:  d.Reasoning,
	})
}

// NewEscalatedEvent builds a route.escalated event for a decision the LLM
// classifier resolved.
func NewEscalatedEvent(d *router.Decision) Event {
	return newEvent(TopicRouteEscalated, DecisionPayload{
		Query:      d.Query,
		Service:    d.Service,
		Intent:     d.Intent,
		Confidence: d.Confidence,
		Path:       d.Path,
		Reasoning:  d.Reasoning,
	})
}

// CacheClearedPayload is the payload of cache.cleared events.
type CacheClearedPayload struct {
	ClearedAt time.Time `json:"cleared_at"`
}

// NewCacheClearedEvent builds a cache.cleared event.
func NewCacheClearedEvent() Event {
	return newEvent(TopicCacheCleared, CacheClearedPayload{ClearedAt: time.Now()})
}

// UnhealthyPayload is the payload of upstream.unhealthy events.
type UnhealthyPayload struct {
	Service router.Service `json:"service"`
	Error   string         `json:"error,omitempty"`
}

// NewUnhealthyEvent builds an upstream.unhealthy event for one backend.
func NewUnhealthyEvent(service router.Service, errMsg string) Event {
	return newEvent(TopicUpstreamUnhealthy, UnhealthyPayload{
		Service: service,
		Error:   errMsg,
	})
}
