package upstream

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentgateway/agent-gateway/internal/router"
)

// Set bundles the clients for all four backend services.
type Set struct {
	Search   *SearchClient
	Drive    *DriveClient
	Database *DatabaseClient
	RAGPDF   *RAGPDFClient
}

// NewSet creates clients for all backends from per-service configs.
func NewSet(search, drive, database, ragpdf Config) *Set {
	return &Set{
		Search:   NewSearchClient(search),
		Drive:    NewDriveClient(drive),
		Database: NewDatabaseClient(database),
		RAGPDF:   NewRAGPDFClient(ragpdf),
	}
}

// ServiceHealth is the health of one backend as seen by the gateway.
type ServiceHealth struct {
	Service   router.Service `json:"service"`
	Status    string         `json:"status"`
	LatencyMS int64          `json:"latency_ms"`
	Error     string         `json:"error,omitempty"`
}

// healthChecker is what the fan-out needs from each client.
type healthChecker interface {
	Health(ctx context.Context) (*HealthStatus, error)
}

// HealthAll checks every backend concurrently. A backend that cannot be
// reached is reported with status "disconnected" rather than failing the
// aggregate; the slice is ordered search, drive, database, rag_pdf.
func (s *Set) HealthAll(ctx context.Context) []ServiceHealth {
	checks := []struct {
		service router.Service
		client  healthChecker
	}{
		{router.ServiceSearch, s.Search},
		{router.ServiceDrive, s.Drive},
		{router.ServiceDatabase, s.Database},
		{router.ServiceRAGPDF, s.RAGPDF},
	}

	results := make([]ServiceHealth, len(checks))

	g, ctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			start := time.Now()
			status, err := check.client.Health(ctx)

			h := ServiceHealth{
				Service:   check.service,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			switch {
			case err != nil:
				h.Status = "disconnected"
				h.Error = err.Error()
			case status.Status != "":
				h.Status = status.Status
			default:
				h.Status = "healthy"
			}
			results[i] = h
			return nil
		})
	}

	// Checks never return errors; Wait only orders the writes.
	g.Wait()

	return results
}

// Healthy reports whether every backend answered its health check.
func Healthy(results []ServiceHealth) bool {
	for _, h := range results {
		if h.Status == "disconnected" {
			return false
		}
	}
	return true
}
