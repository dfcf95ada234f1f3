package router

import (
	"context"
	"time"

	"github.com/agentgateway/agent-gateway/internal/pkg/logger"
)

// Options configures the dispatch policy thresholds.
type Options struct {
	// ConfidenceThreshold is the keyword confidence below which the
	// classifier is consulted.
	ConfidenceThreshold float64

	// TieThreshold is the raw-score gap under which the top two services
	// count as tied.
	TieThreshold float64
}

// DefaultOptions returns the default dispatch thresholds.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 0.75,
		TieThreshold:        3.0,
	}
}

// MetricsRecorder receives routing observations. Implemented by the
// metrics package; an interface here avoids the import cycle.
type MetricsRecorder interface {
	RecordRoute(path Path, service Service, seconds float64)
	RecordCache(hit bool)
	RecordLLM(seconds float64, err error)
}

// DecisionFunc receives every resolved decision, e.g. to publish it on
// the event bus.
type DecisionFunc func(ctx context.Context, d *Decision)

// Router is the hybrid dispatcher: cache, then keyword matching, then an
// optional LLM classifier for queries the matcher cannot settle.
type Router struct {
	opts       Options
	matcher    *Matcher
	detector   *AmbiguityDetector
	cache      Cache
	classifier Classifier
	stats      *Stats
	metrics    MetricsRecorder
	onDecision DecisionFunc
	log        *logger.Logger
}

// Config wires a Router's collaborators. Classifier, Metrics and
// OnDecision are optional.
type Config struct {
	Options    Options
	Registry   *Registry
	Weights    Weights
	Detector   *AmbiguityDetector
	Cache      Cache
	Classifier Classifier
	Metrics    MetricsRecorder
	OnDecision DecisionFunc
	Log        *logger.Logger
}

// New creates a router. Zero-value options fall back to defaults.
func New(cfg Config) (*Router, error) {
	if cfg.Options.ConfidenceThreshold == 0 {
		cfg.Options = DefaultOptions()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if err := cfg.Registry.Validate(); err != nil {
		return nil, err
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.Detector == nil {
		d, err := NewAmbiguityDetector(nil)
		if err != nil {
			return nil, err
		}
		cfg.Detector = d
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache(200)
	}
	if cfg.Log == nil {
		cfg.Log = logger.Default()
	}

	return &Router{
		opts:       cfg.Options,
		matcher:    NewMatcher(cfg.Registry, cfg.Weights),
		detector:   cfg.Detector,
		cache:      cfg.Cache,
		classifier: cfg.Classifier,
		stats:      &Stats{},
		metrics:    cfg.Metrics,
		onDecision: cfg.OnDecision,
		log:        cfg.Log,
	}, nil
}

// Route resolves the destination service for a query.
//
// Dispatch: CACHE_CHECK -> KEYWORD_MATCH -> {ACCEPT | ESCALATE} ->
// [LLM_CALL] -> CACHE_WRITE -> DONE. A classifier failure degrades to the
// best keyword match; it never fails the query.
func (r *Router) Route(ctx context.Context, query string) (*Decision, error) {
	start := time.Now()
	normalized := NormalizeQuery(query)
	key := CacheKey(query)

	// CACHE_CHECK: exact-string lookup short-circuits everything.
	if cached, ok := r.cache.Get(ctx, key); ok {
		d := *cached
		d.Query = query
		origin := d.Path
		d.Path = PathCache
		d.Timestamp = time.Now()

		r.stats.recordHit(origin)
		r.observe(ctx, &d, time.Since(start))
		return &d, nil
	}

	// Enumeration queries always go to the PDF store.
	if IsListAllQuery(normalized) {
		d := &Decision{
			Query:      query,
			Service:    ServiceRAGPDF,
			Secondary:  []Service{ServiceDatabase},
			Intent:     IntentListAllDocuments,
			Parameters: ExtractParameters(query, ServiceRAGPDF, IntentListAllDocuments),
			Confidence: 1.0,
			Path:       PathKeyword,
			Timestamp:  time.Now(),
		}
		r.finish(ctx, key, d, start)
		return d, nil
	}

	// KEYWORD_MATCH always runs on a miss.
	match := r.matcher.Match(normalized)

	d := &Decision{
		Query:      query,
		Service:    match.Service,
		Secondary:  match.Secondary,
		Confidence: match.Confidence,
		Path:       PathKeyword,
		Timestamp:  time.Now(),
	}

	// ACCEPT or ESCALATE.
	if r.classifier != nil && r.shouldEscalate(normalized, match) {
		llmStart := time.Now()
		cls, err := r.classifier.Classify(ctx, query, r.candidates())
		if r.metrics != nil {
			r.metrics.RecordLLM(time.Since(llmStart).Seconds(), err)
		}

		if err != nil {
			// Degrade to the keyword result, no retry.
			r.log.Warn("LLM classification failed, using keyword match",
				"error", err,
				"service", d.Service,
				"confidence", d.Confidence,
			)
		} else {
			d.Service = cls.Service
			d.Intent = cls.Intent
			d.Confidence = cls.Confidence
			d.Reasoning = cls.Reasoning
			d.Path = PathLLM
		}
	}

	if d.Intent == "" {
		d.Intent = ExtractIntent(normalized, d.Service)
	}
	if d.Parameters == nil {
		d.Parameters = ExtractParameters(query, d.Service, d.Intent)
	}

	r.finish(ctx, key, d, start)
	return d, nil
}

// shouldEscalate applies the ESCALATE conditions. ACCEPT requires the
// keyword confidence to clear the threshold with an unambiguous query and
// no score tie among the top candidates; anything else escalates.
func (r *Router) shouldEscalate(normalized string, match *MatchResult) bool {
	lowConfidence := match.Confidence < r.opts.ConfidenceThreshold
	ambiguous := r.detector.Detect(normalized)
	tied := match.TiedWithin(r.opts.TieThreshold)

	return lowConfidence || ambiguous || tied
}

func (r *Router) candidates() []Service {
	return append([]Service(nil), KnownServices...)
}

// finish records, caches and publishes a freshly resolved decision.
func (r *Router) finish(ctx context.Context, key string, d *Decision, start time.Time) {
	r.stats.recordMiss(d.Path)
	r.cache.Put(ctx, key, d)
	r.observe(ctx, d, time.Since(start))

	r.log.Debug("Routed query",
		"service", d.Service,
		"path", d.Path,
		"confidence", d.Confidence,
		"intent", d.Intent,
	)
}

func (r *Router) observe(ctx context.Context, d *Decision, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordRoute(d.Path, d.Service, elapsed.Seconds())
		r.metrics.RecordCache(d.Path == PathCache)
	}
	if r.onDecision != nil {
		r.onDecision(ctx, d)
	}
}

// ClearCache empties the decision cache and resets the hit/miss counters.
func (r *Router) ClearCache(ctx context.Context) error {
	if err := r.cache.Clear(ctx); err != nil {
		return err
	}
	r.stats.Reset()
	r.log.Info("Decision cache cleared")
	return nil
}

// Stats returns a snapshot of the routing counters.
func (r *Router) Stats(ctx context.Context) Snapshot {
	snap := r.stats.Snapshot()
	snap.CacheSize = r.cache.Len(ctx)
	snap.LLMEnabled = r.classifier != nil
	return snap
}
