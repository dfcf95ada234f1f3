package router

import (
	"regexp"
	"sort"
	"strings"
)

// Weights configures the keyword scoring policy. The exact formula is
// deliberately configuration, not a fixed algorithm: score is monotonic in
// matched phrase/keyword weight, reduced by negative matches, and mapped to
// a confidence by a divisor.
type Weights struct {
	// PhraseWeight is added per matched phrase.
	PhraseWeight float64

	// KeywordWeight is added per matched keyword.
	KeywordWeight float64

	// NegativePenalty is subtracted per matched negative keyword.
	NegativePenalty float64

	// ConfidenceDivisor maps the raw score to [0, 1].
	ConfidenceDivisor float64

	// MinScore is the floor below which a query is classified general.
	MinScore float64

	// SecondaryThreshold is the score a non-primary service needs to be
	// reported as a secondary destination.
	SecondaryThreshold float64
}

// DefaultWeights returns the default scoring policy.
func DefaultWeights() Weights {
	return Weights{
		PhraseWeight:       6.0,
		KeywordWeight:      2.5,
		NegativePenalty:    8.0,
		ConfidenceDivisor:  5.0,
		MinScore:           1.0,
		SecondaryThreshold: 2.0,
	}
}

// MatchResult is the output of scoring a query against the registry.
type MatchResult struct {
	// Service is the best-scoring service, or general if nothing cleared
	// the minimum score.
	Service Service

	// Confidence is the primary score normalized to [0, 1].
	Confidence float64

	// Scores holds the raw score per registered service.
	Scores map[Service]float64

	// Secondary lists other services above the secondary threshold.
	Secondary []Service

	// Tied reports whether the top two scores are within the given
	// tie threshold (set by the caller via TopGap).
	topGap   float64
	topScore float64
}

// TopScore returns the raw score of the winning service.
func (m *MatchResult) TopScore() float64 { return m.topScore }

// TiedWithin reports whether the top two scores are within gap of each
// other and the top score is positive.
func (m *MatchResult) TiedWithin(gap float64) bool {
	return m.topScore > 0 && m.topGap < gap
}

// Matcher scores queries against the service registry.
type Matcher struct {
	registry *Registry
	weights  Weights
}

// NewMatcher creates a matcher over the given registry.
func NewMatcher(registry *Registry, weights Weights) *Matcher {
	return &Matcher{registry: registry, weights: weights}
}

// Score computes the raw relevance score of a normalized query for one
// service. A query matching nothing scores 0.
func (m *Matcher) Score(query string, svc Service) float64 {
	ps, ok := m.registry.Patterns(svc)
	if !ok {
		return 0
	}

	score := 0.0

	// Negative keywords are strong disqualifiers, checked first.
	for _, neg := range ps.NegativeKeywords {
		if strings.Contains(query, neg) {
			score -= m.weights.NegativePenalty
		}
	}

	for _, phrase := range ps.Phrases {
		if strings.Contains(query, phrase) {
			score += m.weights.PhraseWeight
		}
	}

	for _, re := range m.registry.keywordMatchers(svc) {
		if re.MatchString(query) {
			score += m.weights.KeywordWeight
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// Match scores the query against every registered service and picks the
// best. The query must already be normalized (see NormalizeQuery).
func (m *Matcher) Match(query string) *MatchResult {
	result := &MatchResult{
		Service: ServiceGeneral,
		Scores:  make(map[Service]float64),
	}

	services := m.registry.Services()
	for _, svc := range services {
		result.Scores[svc] = m.Score(query, svc)
	}

	// Stable winner selection: highest score, registry order breaks ties.
	var best Service
	bestScore := -1.0
	for _, svc := range services {
		if result.Scores[svc] > bestScore {
			best = svc
			bestScore = result.Scores[svc]
		}
	}

	sorted := make([]float64, 0, len(result.Scores))
	for _, s := range result.Scores {
		sorted = append(sorted, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	result.topScore = bestScore
	if len(sorted) > 1 {
		result.topGap = sorted[0] - sorted[1]
	}

	result.Confidence = bestScore / m.weights.ConfidenceDivisor
	if result.Confidence > 1.0 {
		result.Confidence = 1.0
	}

	if bestScore >= m.weights.MinScore {
		result.Service = best
	} else {
		result.Confidence = 0
	}

	for _, svc := range services {
		if svc != result.Service && result.Scores[svc] >= m.weights.SecondaryThreshold {
			result.Secondary = append(result.Secondary, svc)
		}
	}

	return result
}

// listAllPatterns detect enumeration queries that always belong to the PDF
// store regardless of scoring ("list all my documents" and friends).
var listAllPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(list|show)\s+(all|my|everything)\b`),
	regexp.MustCompile(`\ball\s+(documents|pdfs|files|notes|uploaded)\b`),
	regexp.MustCompile(`\bshow\s+(everything|all)\b`),
	regexp.MustCompile(`\blist\s+(everything|all)\b`),
	regexp.MustCompile(`\bmy\s+(documents|pdfs|files)\b`),
	regexp.MustCompile(`\buploaded\s+(documents|pdfs|files)\b`),
}

// IsListAllQuery reports whether a normalized query is an enumeration of
// stored documents.
func IsListAllQuery(query string) bool {
	for _, re := range listAllPatterns {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

// NormalizeQuery lowercases and collapses whitespace for matching.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
