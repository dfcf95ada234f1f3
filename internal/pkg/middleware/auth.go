package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/agentgateway/agent-gateway/internal/pkg/errors"
)

// APIKeyAuth enforces a static API key on requests. The key is accepted
// from the X-API-Key header or an Authorization Bearer token. Paths in
// skipPaths (health probes, metrics scrapes) bypass the check.
type APIKeyAuth struct {
	key       string
	skipPaths map[string]bool
}

// NewAPIKeyAuth creates an API key middleware. An empty key disables
// enforcement entirely.
func NewAPIKeyAuth(key string, skipPaths ...string) *APIKeyAuth {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &APIKeyAuth{key: key, skipPaths: skip}
}

// Middleware returns an HTTP middleware that rejects requests without a
// valid key.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	if a.key == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		if subtle.ConstantTimeCompare([]byte(requestKey(r)), []byte(a.key)) != 1 {
			apperrors.WriteErrorWithStatus(w, http.StatusUnauthorized,
				apperrors.UnauthorizedError())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestKey extracts the presented API key from the request.
func requestKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
