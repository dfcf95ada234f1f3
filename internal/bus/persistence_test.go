package bus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentgateway/agent-gateway/internal/router"
)

func TestEventLogger(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "events.log")

	t.Run("NewEventLogger_Enabled", func(t *testing.T) {
		logger, err := NewEventLogger(logPath, true)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		if !logger.IsEnabled() {
			t.Error("Expected logger to be enabled")
		}
	})

	t.Run("NewEventLogger_Disabled", func(t *testing.T) {
		logger, err := NewEventLogger(logPath, false)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		if logger.IsEnabled() {
			t.Error("Expected logger to be disabled")
		}
	})

	t.Run("Log_Enabled", func(t *testing.T) {
		logger, err := NewEventLogger(logPath, true)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		event := NewDecisionEvent(decisionFixture("search for golang tutorials"))
		if err := logger.Log(TopicRouteDecision, event); err != nil {
			t.Fatalf("Log failed: %v", err)
		}

		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Fatal("Log file was not created")
		}
	})

	t.Run("Log_Disabled", func(t *testing.T) {
		logger, err := NewEventLogger(logPath, false)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		// Should not error, just no-op.
		event := NewCacheClearedEvent()
		if err := logger.Log(TopicCacheCleared, event); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	})

	t.Run("GetEvents", func(t *testing.T) {
		os.Remove(logPath)

		logger, err := NewEventLogger(logPath, true)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		now := time.Now()
		for i := 0; i < 5; i++ {
			event := NewDecisionEvent(decisionFixture(fmt.Sprintf("weather in city %d", i)))
			event.Timestamp = now.Add(time.Duration(i) * time.Second).Unix()
			if err := logger.Log(TopicRouteDecision, event); err != nil {
				t.Fatalf("Log failed: %v", err)
			}
		}

		events, err := logger.GetEvents(now.Add(-1*time.Minute), 0)
		if err != nil {
			t.Fatalf("GetEvents failed: %v", err)
		}

		if len(events) != 5 {
			t.Errorf("Expected 5 events, got %d", len(events))
		}

		events, err = logger.GetEvents(now.Add(-1*time.Minute), 3)
		if err != nil {
			t.Fatalf("GetEvents failed: %v", err)
		}

		if len(events) != 3 {
			t.Errorf("Expected 3 events (limit), got %d", len(events))
		}

		time.Sleep(100 * time.Millisecond)
		cutoff := time.Now().Add(-2 * time.Second)
		events, err = logger.GetEvents(cutoff, 0)
		if err != nil {
			t.Fatalf("GetEvents failed: %v", err)
		}

		if len(events) < 3 {
			t.Errorf("Expected at least 3 events (since filter), got %d", len(events))
		}
	})

	t.Run("Replay", func(t *testing.T) {
		os.Remove(logPath)

		logger, err := NewEventLogger(logPath, true)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		now := time.Now()
		for i := 0; i < 3; i++ {
			event := NewUnhealthyEvent(router.ServiceDatabase, "dial tcp: connection refused")
			event.Timestamp = now.Add(time.Duration(i) * time.Second).Unix()
			if err := logger.Log(TopicUpstreamUnhealthy, event); err != nil {
				t.Fatalf("Log failed: %v", err)
			}
		}

		replayBus := NewMemoryBus()
		defer replayBus.Close()

		eventCount := 0
		ctx := context.Background()
		err = replayBus.Subscribe(ctx, TopicUpstreamUnhealthy, func(ctx context.Context, event Event) error {
			eventCount++
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}

		if err := logger.Replay(ctx, replayBus, now.Add(-1*time.Minute)); err != nil {
			t.Fatalf("Replay failed: %v", err)
		}

		time.Sleep(100 * time.Millisecond)

		if eventCount != 3 {
			t.Errorf("Expected 3 replayed events, got %d", eventCount)
		}
	})
}

func TestLoggedBus(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "logged_bus.log")

	t.Run("Publish_LogsEvent", func(t *testing.T) {
		innerBus := NewMemoryBus()
		defer innerBus.Close()

		logger, err := NewEventLogger(logPath, true)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		loggedBus := NewLoggedBus(innerBus, logger, nil)
		defer loggedBus.Close()

		event := NewDecisionEvent(decisionFixture("list my drive folders"))

		ctx := context.Background()
		if err := loggedBus.Publish(ctx, TopicRouteDecision, event); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		events, err := logger.GetEvents(time.Now().Add(-1*time.Minute), 0)
		if err != nil {
			t.Fatalf("GetEvents failed: %v", err)
		}

		if len(events) != 1 {
			t.Fatalf("Expected 1 logged event, got %d", len(events))
		}

		if events[0].Event.ID != event.ID {
			t.Errorf("Expected event ID %q, got %q", event.ID, events[0].Event.ID)
		}
		if events[0].Topic != TopicRouteDecision {
			t.Errorf("Expected topic %q, got %q", TopicRouteDecision, events[0].Topic)
		}
	})

	t.Run("Request_LogsRequestAndResponse", func(t *testing.T) {
		os.Remove(logPath)

		innerBus := NewMemoryBus()
		defer innerBus.Close()

		logger, err := NewEventLogger(logPath, true)
		if err != nil {
			t.Fatalf("NewEventLogger failed: %v", err)
		}
		defer logger.Close()

		loggedBus := NewLoggedBus(innerBus, logger, nil)
		defer loggedBus.Close()

		ctx := context.Background()

		err = loggedBus.Subscribe(ctx, TopicRouteDecision, func(ctx context.Context, event Event) error {
			resp := Event{
				ID:            "resp-123",
				Type:          TopicRouteDecision,
				Source:        eventSource,
				CorrelationID: event.CorrelationID,
				Payload: DecisionPayload{
					Query:   "save this note",
					Service: router.ServiceDatabase,
					Path:    router.PathKeyword,
				},
			}
			return innerBus.Respond(event.CorrelationID, resp)
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}

		req := Event{
			ID:            "req-123",
			Type:          TopicRouteDecision,
			Source:        eventSource,
			CorrelationID: "route-req-log",
		}

		_, err = loggedBus.Request(ctx, TopicRouteDecision, req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		time.Sleep(100 * time.Millisecond)
		events, err := logger.GetEvents(time.Now().Add(-1*time.Minute), 0)
		if err != nil {
			t.Fatalf("GetEvents failed: %v", err)
		}

		// Request and response both hit the log.
		if len(events) < 2 {
			t.Errorf("Expected at least 2 logged events (request + response), got %d", len(events))
		}
	})
}
