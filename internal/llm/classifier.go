// Package llm provides the LLM fallback classifier for query routing.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/agentgateway/agent-gateway/internal/pkg/logger"
	"github.com/agentgateway/agent-gateway/internal/router"
)

// Config configures the classifier.
type Config struct {
	// Model is the chat model name.
	Model string

	// Temperature keeps classification deterministic when low.
	Temperature float64

	// MaxTokens bounds the response size.
	MaxTokens int

	// Timeout bounds each classification call.
	Timeout time.Duration
}

// DefaultConfig returns sensible classifier defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
		MaxTokens:   200,
		Timeout:     15 * time.Second,
	}
}

// Classifier routes a query with a single JSON-mode chat completion.
// It implements router.Classifier.
type Classifier struct {
	model llms.Model
	cfg   Config
	log   *logger.Logger
}

// New creates a classifier backed by the OpenAI chat API. The API key is
// read from the environment by the provider.
func New(cfg Config, log *logger.Logger) (*Classifier, error) {
	if cfg.Model == "" {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	model, err := openai.New(openai.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("creating LLM model: %w", err)
	}

	return &Classifier{model: model, cfg: cfg, log: log}, nil
}

// NewWithModel creates a classifier over an existing model. Used by tests.
func NewWithModel(model llms.Model, cfg Config, log *logger.Logger) *Classifier {
	if cfg.Model == "" {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}
	return &Classifier{model: model, cfg: cfg, log: log}
}

const systemPrompt = `You are an intelligent routing system that determines which service should handle a user's query.

Available services:
1. search - For web searches, online information, current news, internet searches, "find online", "google"
2. drive - For Google Drive operations (upload, download, list files in Drive)
3. database - For notes, saved documents, creating/editing notes, "in my notes", "my saved documents"
4. rag_pdf - For PDF documents, uploaded files, questions about PDFs, summaries of uploaded documents

Analyze the query carefully:
- "search online", "find on internet" -> search
- "in my notes", "my saved" -> database
- "my PDF", "uploaded document" -> rag_pdf
- "Google Drive", "upload to drive" -> drive

Return JSON in this exact format:
{
    "primary_service": "database",
    "intent": "search_documents",
    "confidence": 0.95,
    "reasoning": "User wants to search their saved notes"
}

Service names must be one of: "search", "drive", "database", "rag_pdf", "general"
Be precise and confident.`

// verdict is the JSON shape the model is asked to return.
type verdict struct {
	PrimaryService string  `json:"primary_service"`
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// Classify asks the model to pick a destination service for the query.
func (c *Classifier) Classify(ctx context.Context, query string, candidates []router.Service) (*router.Classification, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	userPrompt := fmt.Sprintf(`Route this query to the appropriate service:

Query: %q

Candidate services: %s

Return JSON with primary_service, intent, confidence (0.0-1.0), and reasoning.`,
		query, joinServices(candidates))

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.cfg.Temperature),
		llms.WithMaxTokens(c.cfg.MaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	var v verdict
	if err := json.Unmarshal([]byte(resp.Choices[0].Content), &v); err != nil {
		return nil, fmt.Errorf("parsing LLM response: %w", err)
	}

	svc := router.ParseService(strings.ToLower(v.PrimaryService))
	confidence := v.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.8
	}
	intent := v.Intent
	if intent == "" {
		intent = router.IntentGeneralConversation
	}

	c.log.Debug("LLM classification",
		"service", svc,
		"confidence", confidence,
		"reasoning", v.Reasoning,
	)

	return &router.Classification{
		Service:    svc,
		Intent:     intent,
		Confidence: confidence,
		Reasoning:  v.Reasoning,
	}, nil
}

func joinServices(candidates []router.Service) string {
	names := make([]string, len(candidates))
	for i, s := range candidates {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
