package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	auth := NewAPIKeyAuth("")
	handler := auth.Middleware(authTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth disabled", rec.Code)
	}
}

func TestAPIKeyAuthHeader(t *testing.T) {
	auth := NewAPIKeyAuth("sekrit")
	handler := auth.Middleware(authTestHandler())

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"valid x-api-key", "X-API-Key", "sekrit", http.StatusOK},
		{"valid bearer", "Authorization", "Bearer sekrit", http.StatusOK},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"missing key", "", "", http.StatusUnauthorized},
		{"basic auth ignored", "Authorization", "Basic c2Vrcml0", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/route", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAPIKeyAuthSkipPaths(t *testing.T) {
	auth := NewAPIKeyAuth("sekrit", "/healthz", "/metrics")
	handler := auth.Middleware(authTestHandler())

	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status for %s = %d, want 200 without key", path, rec.Code)
		}
	}

	// Non-skipped path still requires the key
	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
