package bus

import (
	"testing"
	"time"

	"github.com/agentgateway/agent-gateway/internal/router"
)

func TestNewDecisionEvent(t *testing.T) {
	d := &router.Decision{
		Query:      "search for news",
		Service:    router.ServiceSearch,
		Intent:     router.IntentWebSearch,
		Confidence: 0.95,
		Path:       router.PathKeyword,
		Timestamp:  time.Now(),
	}

	event := NewDecisionEvent(d)

	if event.Type != TopicRouteDecision {
		t.Errorf("Type = %s, want %s", event.Type, TopicRouteDecision)
	}
	if event.Source != "agent-gateway" {
		t.Errorf("Source = %s, want agent-gateway", event.Source)
	}
	if event.ID == "" {
		t.Error("ID should be set")
	}

	payload, ok := event.Payload.(DecisionPayload)
	if !ok {
		t.Fatalf("Payload type = %T, want DecisionPayload", event.Payload)
	}
	if payload.Service != router.ServiceSearch || payload.Path != router.PathKeyword {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNewUnhealthyEvent(t *testing.T) {
	event := NewUnhealthyEvent(router.ServiceDrive, "connection refused")

	if event.Type != TopicUpstreamUnhealthy {
		t.Errorf("Type = %s, want %s", event.Type, TopicUpstreamUnhealthy)
	}

	payload := event.Payload.(UnhealthyPayload)
	if payload.Service != router.ServiceDrive || payload.Error == "" {
		t.Errorf("payload = %+v", payload)
	}
}
