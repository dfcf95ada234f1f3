package upstream

import "context"

// DatabaseClient talks to the notes/documents MCP service.
type DatabaseClient struct {
	*client
}

// NewDatabaseClient creates a client for the database service.
func NewDatabaseClient(cfg Config) *DatabaseClient {
	return &DatabaseClient{client: newClient(cfg)}
}

// Document is a saved note or document.
type Document struct {
	ID        string  `json:"id,omitempty"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Category  string  `json:"category,omitempty"`
	Score     float64 `json:"score,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// DocumentSearchRequest is a search over saved documents.
type DocumentSearchRequest struct {
	Query string `json:"query"`

	// SearchType is semantic, keyword or hybrid.
	SearchType string `json:"search_type,omitempty"`

	Limit int `json:"limit,omitempty"`
}

// DocumentSearchResponse is the result of a document search.
type DocumentSearchResponse struct {
	Query      string     `json:"query"`
	Documents  []Document `json:"documents"`
	Total      int        `json:"total"`
	SearchType string     `json:"search_type,omitempty"`
}

// SyncStatus reports consistency between the relational and vector stores.
type SyncStatus struct {
	InSync        bool  `json:"in_sync"`
	RelationalDoc int64 `json:"relational_documents"`
	VectorDoc     int64 `json:"vector_documents"`
	Missing       int64 `json:"missing,omitempty"`
}

// CreateDocument stores a new document.
func (c *DatabaseClient) CreateDocument(ctx context.Context, doc Document) (*Document, error) {
	var created Document
	if err := c.post(ctx, "/documents", doc, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Search runs a semantic, keyword or hybrid search over documents.
func (c *DatabaseClient) Search(ctx context.Context, req DocumentSearchRequest) (*DocumentSearchResponse, error) {
	var resp DocumentSearchResponse
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifySync checks relational/vector store consistency.
func (c *DatabaseClient) VerifySync(ctx context.Context) (*SyncStatus, error) {
	var status SyncStatus
	if err := c.get(ctx, "/sync/verify", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health checks the database service.
func (c *DatabaseClient) Health(ctx context.Context) (*HealthStatus, error) {
	return c.health(ctx)
}
