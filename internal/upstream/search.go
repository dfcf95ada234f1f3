package upstream

import "context"

// SearchClient talks to the web search MCP service.
type SearchClient struct {
	*client
}

// NewSearchClient creates a client for the search service.
func NewSearchClient(cfg Config) *SearchClient {
	return &SearchClient{client: newClient(cfg)}
}

// SearchRequest is a web search request.
type SearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

// WebResult is a single web search result.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank"`
}

// SearchResponse is a web search response.
type SearchResponse struct {
	Query        string      `json:"query"`
	Results      []WebResult `json:"results"`
	TotalResults int         `json:"total_results"`
	SearchEngine string      `json:"search_engine,omitempty"`
}

// Search runs a web search.
func (c *SearchClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the search service.
func (c *SearchClient) Health(ctx context.Context) (*HealthStatus, error) {
	return c.health(ctx)
}
