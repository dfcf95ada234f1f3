// Package router implements hybrid query routing for the agent gateway.
//
// Routing is a two-tier dispatch: a keyword matcher scores the query against
// per-service pattern tables, and an LLM classifier is consulted only when the
// keyword result is low-confidence, ambiguous, or tied. Resolved decisions are
// cached by normalized query text.
package router

import (
	"context"
	"time"
)

// Service identifies a destination MCP service.
type Service string

const (
	// ServiceSearch handles web searches via Google Custom Search.
	ServiceSearch Service = "search"

	// ServiceDrive handles Google Drive file operations.
	ServiceDrive Service = "drive"

	// ServiceDatabase handles notes and saved documents (MySQL + ChromaDB).
	ServiceDatabase Service = "database"

	// ServiceRAGPDF handles uploaded PDFs and questions about them.
	ServiceRAGPDF Service = "rag_pdf"

	// ServiceGeneral is the fallback for queries no service matches.
	ServiceGeneral Service = "general"
)

// KnownServices lists the routable services in registry order.
// ServiceGeneral is excluded: it is a fallback, not a pattern-matched target.
var KnownServices = []Service{ServiceSearch, ServiceDrive, ServiceDatabase, ServiceRAGPDF}

// ParseService maps a service name to a Service, defaulting to general.
func ParseService(name string) Service {
	switch Service(name) {
	case ServiceSearch, ServiceDrive, ServiceDatabase, ServiceRAGPDF:
		return Service(name)
	default:
		return ServiceGeneral
	}
}

// Path records which tier of the dispatch resolved a query.
type Path string

const (
	// PathCache means the decision came from the decision cache.
	PathCache Path = "cache"

	// PathKeyword means the keyword matcher's result was accepted.
	PathKeyword Path = "keyword"

	// PathLLM means the LLM classifier chose the service.
	PathLLM Path = "llm"
)

// Decision is the immutable outcome of routing one query.
type Decision struct {
	// Query is the original query text.
	Query string `json:"query"`

	// Service is the chosen destination.
	Service Service `json:"service"`

	// Secondary lists other services whose scores cleared the
	// secondary threshold.
	Secondary []Service `json:"secondary_services,omitempty"`

	// Intent is the service-specific operation the query implies.
	Intent string `json:"intent"`

	// Parameters holds extracted call parameters for the destination.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Confidence is the routing confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Path is the dispatch tier that produced this decision.
	Path Path `json:"path"`

	// Reasoning is the classifier's explanation, when the LLM was used.
	Reasoning string `json:"reasoning,omitempty"`

	// Timestamp is when the decision was created.
	Timestamp time.Time `json:"timestamp"`
}

// WithParameter returns a copy of the decision with one call parameter
// overridden. The receiver, which may be a shared cache entry, is left
// untouched.
func (d *Decision) WithParameter(key string, value any) *Decision {
	clone := *d
	clone.Parameters = make(map[string]any, len(d.Parameters)+1)
	for k, v := range d.Parameters {
		clone.Parameters[k] = v
	}
	clone.Parameters[key] = value
	return &clone
}

// Classification is an LLM classifier verdict.
type Classification struct {
	Service    Service
	Intent     string
	Confidence float64
	Reasoning  string
}

// Classifier resolves queries the keyword matcher cannot settle.
// Implementations make a single external call; the router treats any
// error as a signal to degrade to the keyword result.
type Classifier interface {
	Classify(ctx context.Context, query string, candidates []Service) (*Classification, error)
}
