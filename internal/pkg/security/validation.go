// Package security provides security utilities for input validation,
// sanitization, and sensitive data masking.
package security

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Validation limits for gateway requests.
const (
	// Query limits.
	MinQueryLength = 1
	MaxQueryLength = 10000

	// Connection ID limits.
	MaxConnectionIDLength = 64

	// MaxRequestSize caps the size of JSON request bodies.
	MaxRequestSize = 1 * 1024 * 1024 // 1MB
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
}

// connectionIDRegex matches valid connection IDs: alphanumeric, hyphen, underscore.
var connectionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateQuery validates a user query string.
// Requirements: Required, 1-10000 chars, valid UTF-8.
func ValidateQuery(query string) error {
	if query == "" {
		return &ValidationError{
			Field:      "query",
			Constraint: "required",
		}
	}

	if !utf8.ValidString(query) {
		return &ValidationError{
			Field:      "query",
			Constraint: "must be valid UTF-8",
		}
	}

	length := utf8.RuneCountInString(query)
	if length < MinQueryLength {
		return &ValidationError{
			Field:      "query",
			Value:      length,
			Constraint: fmt.Sprintf("minimum length is %d characters", MinQueryLength),
		}
	}

	if length > MaxQueryLength {
		return &ValidationError{
			Field:      "query",
			Value:      length,
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxQueryLength),
		}
	}

	return nil
}

// ValidateConnectionID validates a client-supplied connection ID.
// Requirements: 1-64 chars, alphanumeric + hyphen + underscore, must
// start with alphanumeric. Empty IDs are allowed (the header is optional).
func ValidateConnectionID(id string) error {
	if id == "" {
		return nil
	}

	if len(id) > MaxConnectionIDLength {
		return &ValidationError{
			Field:      "connection_id",
			Value:      len(id),
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxConnectionIDLength),
		}
	}

	if !connectionIDRegex.MatchString(id) {
		return &ValidationError{
			Field:      "connection_id",
			Value:      SanitizeForLog(id),
			Constraint: "must contain only alphanumeric characters, hyphens, and underscores, and start with alphanumeric",
		}
	}

	return nil
}
