package upstream

import (
	"context"
	"io"
)

// RAGPDFClient talks to the PDF question-answering MCP service.
type RAGPDFClient struct {
	*client
}

// NewRAGPDFClient creates a client for the rag_pdf service.
func NewRAGPDFClient(cfg Config) *RAGPDFClient {
	return &RAGPDFClient{client: newClient(cfg)}
}

// PDFInfo describes an uploaded PDF.
type PDFInfo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
	Status   string `json:"status,omitempty"`
}

// PDFSearchRequest searches across uploaded PDF content.
type PDFSearchRequest struct {
	Query string `json:"query"`
	PDFID string `json:"pdf_id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// PDFChunk is a matched passage from an uploaded PDF.
type PDFChunk struct {
	PDFID   string  `json:"pdf_id"`
	Page    int     `json:"page"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// PDFSearchResponse is the result of a PDF content search.
type PDFSearchResponse struct {
	Query   string     `json:"query"`
	Results []PDFChunk `json:"results"`
	Total   int        `json:"total"`
}

// AskRequest is a question about uploaded PDFs.
type AskRequest struct {
	Question         string `json:"question"`
	PDFID            string `json:"pdf_id,omitempty"`
	MaxContextChunks int    `json:"max_context_chunks,omitempty"`
}

// Answer is the response to a PDF question.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// SummarizeRequest asks for a summary of one uploaded PDF.
type SummarizeRequest struct {
	PDFID     string `json:"pdf_id"`
	MaxLength int    `json:"max_length,omitempty"`
}

// Summary is a PDF summary.
type Summary struct {
	PDFID   string `json:"pdf_id"`
	Summary string `json:"summary"`
}

// Upload uploads a PDF for processing.
func (c *RAGPDFClient) Upload(ctx context.Context, filename string, content io.Reader) (*PDFInfo, error) {
	var info PDFInfo
	if err := c.postFile(ctx, "/upload", "file", filename, content, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Search finds passages in uploaded PDFs.
func (c *RAGPDFClient) Search(ctx context.Context, req PDFSearchRequest) (*PDFSearchResponse, error) {
	var resp PDFSearchResponse
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ask answers a question grounded on uploaded PDF content.
func (c *RAGPDFClient) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	var ans Answer
	if err := c.post(ctx, "/ask", req, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

// Summarize produces a summary of one uploaded PDF.
func (c *RAGPDFClient) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	var sum Summary
	if err := c.post(ctx, "/summarize", req, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Health checks the rag_pdf service.
func (c *RAGPDFClient) Health(ctx context.Context) (*HealthStatus, error) {
	return c.health(ctx)
}
