package router

import (
	"fmt"
	"regexp"
)

// AmbiguityDetector flags queries whose surface form suggests keyword
// matching alone cannot route them: comparisons, conditionals, coordinated
// alternatives, and method-choice questions. Purely syntactic.
type AmbiguityDetector struct {
	patterns []*regexp.Regexp
}

// DefaultAmbiguousPatterns returns the built-in ambiguity patterns.
func DefaultAmbiguousPatterns() []string {
	return []string{
		// Complex questions.
		`\b(what|which|how|why|when|where)\b.*\b(is|are|was|were|do|does|did)\b`,
		// Descriptive queries.
		`\b(show|tell|explain|describe)\b.*\b(about|regarding|concerning)\b`,
		// Conditionals and negation.
		`\b(find|search|look)\b.*\b(but|however|although|not|except)\b`,
		// Coordinated alternatives.
		`\b(both|either|neither)\b.*\b(and|or)\b`,
		// Comparison.
		`\b(compare|difference|similar|different|versus|vs)\b`,
		// Method-choice uncertainty.
		`\b(should|would|could)\b.*\b(search|find|get|show)\b`,
		// Broad relationship queries.
		`\b(all|everything|anything)\b.*\b(about|regarding|related to)\b`,
	}
}

// NewAmbiguityDetector compiles the given patterns, falling back to the
// defaults when none are supplied.
func NewAmbiguityDetector(patterns []string) (*AmbiguityDetector, error) {
	if len(patterns) == 0 {
		patterns = DefaultAmbiguousPatterns()
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compiling ambiguity pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	return &AmbiguityDetector{patterns: compiled}, nil
}

// Detect reports whether the query matches any ambiguity pattern.
func (d *AmbiguityDetector) Detect(query string) bool {
	for _, re := range d.patterns {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}
