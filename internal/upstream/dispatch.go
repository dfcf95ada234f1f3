package upstream

import (
	"context"
	"fmt"

	"github.com/agentgateway/agent-gateway/internal/router"
)

// paramString reads a string parameter with a fallback.
func paramString(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// paramInt reads a numeric parameter with a fallback. JSON round-trips
// numbers as float64, so both forms are accepted.
func paramInt(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// Dispatch executes a routing decision against its destination backend and
// returns the backend payload. File transfer intents need a request body
// and are rejected here; they go through the dedicated endpoints.
func (s *Set) Dispatch(ctx context.Context, d *router.Decision) (any, error) {
	switch d.Service {
	case router.ServiceSearch:
		return s.Search.Search(ctx, SearchRequest{
			Query:      paramString(d.Parameters, "query", d.Query),
			NumResults: paramInt(d.Parameters, "num_results", 5),
		})

	case router.ServiceDrive:
		return s.dispatchDrive(ctx, d)

	case router.ServiceDatabase:
		return s.dispatchDatabase(ctx, d)

	case router.ServiceRAGPDF:
		return s.dispatchRAGPDF(ctx, d)

	default:
		return nil, fmt.Errorf("no backend for service %q", d.Service)
	}
}

func (s *Set) dispatchDrive(ctx context.Context, d *router.Decision) (any, error) {
	switch d.Intent {
	case router.IntentListFiles:
		files, err := s.Drive.ListFiles(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"files": files}, nil

	case router.IntentDownloadFile, router.IntentDeleteFile, router.IntentUploadFile:
		return nil, fmt.Errorf("intent %q requires the drive file endpoints", d.Intent)

	default:
		return nil, fmt.Errorf("unsupported drive intent %q", d.Intent)
	}
}

func (s *Set) dispatchDatabase(ctx context.Context, d *router.Decision) (any, error) {
	switch d.Intent {
	case router.IntentSearchDocuments, router.IntentListDocuments:
		return s.Database.Search(ctx, DocumentSearchRequest{
			Query:      paramString(d.Parameters, "query", d.Query),
			SearchType: "hybrid",
			Limit:      paramInt(d.Parameters, "limit", 10),
		})

	case router.IntentCreateDocument:
		return s.Database.CreateDocument(ctx, Document{
			Title:    d.Query,
			Content:  d.Query,
			Category: paramString(d.Parameters, "category", "general"),
		})

	default:
		return nil, fmt.Errorf("unsupported database intent %q", d.Intent)
	}
}

func (s *Set) dispatchRAGPDF(ctx context.Context, d *router.Decision) (any, error) {
	switch d.Intent {
	case router.IntentAskQuestion:
		return s.RAGPDF.Ask(ctx, AskRequest{
			Question:         paramString(d.Parameters, "question", d.Query),
			MaxContextChunks: paramInt(d.Parameters, "max_context_chunks", 7),
		})

	case router.IntentSearchPDFs:
		return s.RAGPDF.Search(ctx, PDFSearchRequest{
			Query: d.Query,
			Limit: paramInt(d.Parameters, "limit", 10),
		})

	case router.IntentListPDFs, router.IntentListAllDocuments:
		return s.RAGPDF.Search(ctx, PDFSearchRequest{
			Query: "",
			Limit: paramInt(d.Parameters, "limit", 100),
		})

	case router.IntentSummarizePDF:
		return s.RAGPDF.Summarize(ctx, SummarizeRequest{
			PDFID: paramString(d.Parameters, "pdf_id", ""),
		})

	case router.IntentUploadPDF:
		return nil, fmt.Errorf("intent %q requires the upload endpoint", d.Intent)

	default:
		return nil, fmt.Errorf("unsupported rag_pdf intent %q", d.Intent)
	}
}
