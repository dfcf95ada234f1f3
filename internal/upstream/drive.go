package upstream

import (
	"context"
	"io"
)

// DriveClient talks to the Google Drive MCP service.
type DriveClient struct {
	*client
}

// NewDriveClient creates a client for the drive service.
func NewDriveClient(cfg Config) *DriveClient {
	return &DriveClient{client: newClient(cfg)}
}

// DriveFile describes a file stored in Drive.
type DriveFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MimeType   string `json:"mime_type,omitempty"`
	Size       int64  `json:"size,omitempty"`
	WebLink    string `json:"web_link,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// Upload uploads a file to Drive.
func (c *DriveClient) Upload(ctx context.Context, filename string, content io.Reader) (*DriveFile, error) {
	var file DriveFile
	if err := c.postFile(ctx, "/upload", "file", filename, content, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFiles lists files stored in Drive.
func (c *DriveClient) ListFiles(ctx context.Context) ([]DriveFile, error) {
	var resp struct {
		Files []DriveFile `json:"files"`
	}
	if err := c.get(ctx, "/files", &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// GetFile returns metadata for one file.
func (c *DriveClient) GetFile(ctx context.Context, id string) (*DriveFile, error) {
	var file DriveFile
	if err := c.get(ctx, "/files/"+id, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Download streams a file's content. The caller must close the reader.
func (c *DriveClient) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	return c.stream(ctx, "/download/"+id)
}

// DeleteFile removes a file from Drive.
func (c *DriveClient) DeleteFile(ctx context.Context, id string) error {
	return c.delete(ctx, "/files/"+id)
}

// Health checks the drive service.
func (c *DriveClient) Health(ctx context.Context) (*HealthStatus, error) {
	return c.health(ctx)
}
