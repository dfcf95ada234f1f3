package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/agentgateway/agent-gateway/internal/router"
)

// fakeModel returns canned completions.
type fakeModel struct {
	content string
	err     error
	prompts []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.prompts = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.content, f.err
}

func TestClassify(t *testing.T) {
	model := &fakeModel{content: `{
		"primary_service": "database",
		"intent": "search_documents",
		"confidence": 0.92,
		"reasoning": "User wants their saved notes"
	}`}

	c := NewWithModel(model, DefaultConfig(), nil)

	got, err := c.Classify(context.Background(), "check my notes", router.KnownServices)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if got.Service != router.ServiceDatabase {
		t.Errorf("Service = %s, want database", got.Service)
	}
	if got.Intent != "search_documents" {
		t.Errorf("Intent = %s, want search_documents", got.Intent)
	}
	if got.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", got.Confidence)
	}
	if got.Reasoning == "" {
		t.Error("Reasoning should be carried through")
	}

	// Prompt carries a system message and the query.
	if len(model.prompts) != 2 {
		t.Fatalf("prompt messages = %d, want 2", len(model.prompts))
	}
	if model.prompts[0].Role != llms.ChatMessageTypeSystem {
		t.Errorf("first message role = %s, want system", model.prompts[0].Role)
	}
}

func TestClassifyNormalizesVerdict(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantService    router.Service
		wantIntent     string
		wantConfidence float64
	}{
		{
			name:           "uppercase service name",
			content:        `{"primary_service": "SEARCH", "intent": "web_search", "confidence": 0.9}`,
			wantService:    router.ServiceSearch,
			wantIntent:     "web_search",
			wantConfidence: 0.9,
		},
		{
			name:           "unknown service maps to general",
			content:        `{"primary_service": "email", "intent": "send", "confidence": 0.9}`,
			wantService:    router.ServiceGeneral,
			wantIntent:     "send",
			wantConfidence: 0.9,
		},
		{
			name:           "out-of-range confidence defaults",
			content:        `{"primary_service": "drive", "intent": "list_files", "confidence": 7.5}`,
			wantService:    router.ServiceDrive,
			wantIntent:     "list_files",
			wantConfidence: 0.8,
		},
		{
			name:           "missing intent defaults",
			content:        `{"primary_service": "rag_pdf", "confidence": 0.85}`,
			wantService:    router.ServiceRAGPDF,
			wantIntent:     router.IntentGeneralConversation,
			wantConfidence: 0.85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithModel(&fakeModel{content: tt.content}, DefaultConfig(), nil)

			got, err := c.Classify(context.Background(), "some query", router.KnownServices)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			if got.Service != tt.wantService {
				t.Errorf("Service = %s, want %s", got.Service, tt.wantService)
			}
			if got.Intent != tt.wantIntent {
				t.Errorf("Intent = %s, want %s", got.Intent, tt.wantIntent)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestClassifyModelError(t *testing.T) {
	c := NewWithModel(&fakeModel{err: errors.New("rate limited")}, DefaultConfig(), nil)

	if _, err := c.Classify(context.Background(), "query", router.KnownServices); err == nil {
		t.Error("Classify() should propagate model errors")
	}
}

func TestClassifyMalformedJSON(t *testing.T) {
	c := NewWithModel(&fakeModel{content: "not json"}, DefaultConfig(), nil)

	if _, err := c.Classify(context.Background(), "query", router.KnownServices); err == nil {
		t.Error("Classify() should reject unparseable responses")
	}
}

func TestClassifyEmptyResponse(t *testing.T) {
	model := &fakeModel{}
	c := NewWithModel(model, DefaultConfig(), nil)

	// Empty content is not valid JSON either.
	if _, err := c.Classify(context.Background(), "query", router.KnownServices); err == nil {
		t.Error("Classify() should reject empty responses")
	}
}
