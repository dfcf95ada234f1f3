package metrics

import (
	"context"

	"github.com/agentgateway/agent-gateway/internal/bus"
)

// EventSubscriber subscribes to the event bus and updates metrics from
// gateway events. This keeps a metrics view even for decisions published
// by other gateway instances sharing the bus.
type EventSubscriber struct {
	metrics *Metrics
	bus     bus.Bus
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber(metrics *Metrics, eventBus bus.Bus) *EventSubscriber {
	return &EventSubscriber{
		metrics: metrics,
		bus:     eventBus,
	}
}

// SubscribeToEvents subscribes to all relevant events and updates metrics.
func (es *EventSubscriber) SubscribeToEvents(ctx context.Context) error {
	if err := es.bus.Subscribe(ctx, bus.TopicRouteDecision, es.handleRouteDecision); err != nil {
		return err
	}

	if err := es.bus.Subscribe(ctx, bus.TopicRouteEscalated, es.handleRouteEscalated); err != nil {
		return err
	}

	if err := es.bus.Subscribe(ctx, bus.TopicCacheCleared, es.handleCacheCleared); err != nil {
		return err
	}

	if err := es.bus.Subscribe(ctx, bus.TopicUpstreamUnhealthy, es.handleUpstreamUnhealthy); err != nil {
		return err
	}

	return nil
}

// Event handlers

func (es *EventSubscriber) handleRouteDecision(ctx context.Context, event bus.Event) error {
	payload, ok := event.Payload.(bus.DecisionPayload)
	if !ok {
		return nil
	}

	es.metrics.RoutesByPath.WithLabels(string(payload.Path)).Inc()
	es.metrics.RoutesByService.WithLabels(string(payload.Service)).Inc()
	return nil
}

func (es *EventSubscriber) handleRouteEscalated(ctx context.Context, event bus.Event) error {
	es.metrics.LLMRequests.Inc()
	return nil
}

func (es *EventSubscriber) handleCacheCleared(ctx context.Context, event bus.Event) error {
	es.metrics.CacheSize.Set(0)
	return nil
}

func (es *EventSubscriber) handleUpstreamUnhealthy(ctx context.Context, event bus.Event) error {
	payload, ok := event.Payload.(bus.UnhealthyPayload)
	if !ok {
		return nil
	}

	es.metrics.UpstreamHealthy.WithLabels(string(payload.Service)).Set(0)
	return nil
}
