package router

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PatternSet holds the match vocabulary for one service.
type PatternSet struct {
	// Keywords are single terms matched on word boundaries.
	Keywords []string `yaml:"keywords"`

	// Phrases are multi-word sequences matched by substring.
	// They carry the highest weight.
	Phrases []string `yaml:"phrases"`

	// NegativeKeywords disqualify the service when present.
	NegativeKeywords []string `yaml:"negative_keywords"`
}

// Registry is the static mapping from service to its pattern set.
// Built once at process start and read-only thereafter.
type Registry struct {
	patterns map[Service]PatternSet
	keywords map[Service][]*regexp.Regexp
}

// NewRegistry builds a registry from the default pattern tables.
func NewRegistry() *Registry {
	return NewRegistryWithPatterns(DefaultPatterns())
}

// NewRegistryWithPatterns builds a registry from explicit pattern tables.
// Services absent from the map are not routable by keyword.
func NewRegistryWithPatterns(patterns map[Service]PatternSet) *Registry {
	r := &Registry{
		patterns: make(map[Service]PatternSet, len(patterns)),
		keywords: make(map[Service][]*regexp.Regexp, len(patterns)),
	}
	for svc, ps := range patterns {
		r.patterns[svc] = ps
		compiled := make([]*regexp.Regexp, 0, len(ps.Keywords))
		for _, kw := range ps.Keywords {
			// Word-boundary match, case handled by normalizing the query.
			compiled = append(compiled, regexp.MustCompile(`\b`+regexp.QuoteMeta(strings.ToLower(kw))+`\b`))
		}
		r.keywords[svc] = compiled
	}
	return r
}

// LoadPatternsFile builds a registry from a YAML file mapping service
// names to pattern sets. The file replaces the built-in tables entirely.
func LoadPatternsFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading patterns file: %w", err)
	}

	var raw map[string]PatternSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing patterns file: %w", err)
	}

	patterns := make(map[Service]PatternSet, len(raw))
	for name, ps := range raw {
		svc := ParseService(name)
		if svc == ServiceGeneral {
			return nil, fmt.Errorf("patterns file: unknown service %q", name)
		}
		patterns[svc] = ps
	}
	return NewRegistryWithPatterns(patterns), nil
}

// Services returns the registered services in stable order.
func (r *Registry) Services() []Service {
	out := make([]Service, 0, len(r.patterns))
	for _, svc := range KnownServices {
		if _, ok := r.patterns[svc]; ok {
			out = append(out, svc)
		}
	}
	return out
}

// Patterns returns the pattern set for a service.
func (r *Registry) Patterns(svc Service) (PatternSet, bool) {
	ps, ok := r.patterns[svc]
	return ps, ok
}

// keywordMatchers returns the compiled keyword matchers for a service.
func (r *Registry) keywordMatchers(svc Service) []*regexp.Regexp {
	return r.keywords[svc]
}

// Validate checks that every registered service has some vocabulary.
func (r *Registry) Validate() error {
	for svc, ps := range r.patterns {
		if len(ps.Keywords) == 0 && len(ps.Phrases) == 0 {
			return fmt.Errorf("service %q has no keywords or phrases", svc)
		}
	}
	return nil
}

// DefaultPatterns returns the built-in per-service pattern tables.
func DefaultPatterns() map[Service]PatternSet {
	return map[Service]PatternSet{
		ServiceSearch: {
			Keywords: []string{
				"search online", "google", "find online", "look up online",
				"latest", "news", "current", "today", "internet",
				"web search", "search the web",
			},
			Phrases: []string{
				"search for", "search the web", "search online",
				"google search", "find information online",
				"what are the latest", "current news", "recent news",
				"look up online", "find on the internet",
			},
			NegativeKeywords: []string{
				"my pdf", "my document", "uploaded", "my file",
				"my notes", "in my",
			},
		},
		ServiceDrive: {
			Keywords: []string{
				"drive", "google drive", "upload", "download",
				"file", "files", "folder",
			},
			Phrases: []string{
				"upload to drive", "save to drive", "upload file",
				"list my files", "show my files", "files in drive",
				"download from drive", "get from drive",
			},
			NegativeKeywords: []string{"search", "find information", "pdf", "note"},
		},
		ServiceDatabase: {
			Keywords: []string{
				"note", "notes", "remember", "save note",
				"create note", "store note", "add note",
				"search notes", "find note", "my notes",
				"in my notes", "from my notes", "budget",
				"meeting", "reminder", "information",
			},
			Phrases: []string{
				"create a note", "save this note", "remember this",
				"search my notes", "find in notes", "add to notes",
				"in my notes", "from my notes", "my saved notes",
				"what is in my notes", "search for in notes",
				"list all notes", "show my notes",
			},
			NegativeKeywords: []string{"pdf", "document file", "upload", "summarize"},
		},
		ServiceRAGPDF: {
			Keywords: []string{
				"pdf", "pdfs", "paper", "research", "document",
				"upload pdf", "analyze pdf", "summarize", "summary",
				"my pdf", "the pdf", "this pdf", "uploaded",
				"findings", "conclusion", "book", "article",
				"list pdfs", "all pdfs", "my documents",
				"list all documents", "show all documents",
				"list all my", "show all my", "all uploaded",
			},
			Phrases: []string{
				"upload pdf", "upload this pdf", "process pdf",
				"what pdfs", "my pdfs", "pdf files", "my pdf",
				"summarize pdf", "summarize this", "give me a summary",
				"what are the findings", "what does the paper say",
				"according to the pdf", "in the document", "in my pdf",
				"ask question about", "question about pdf",
				"uploaded pdf", "uploaded document",
				"list all documents", "show all documents",
				"list my documents", "all my documents",
				"list all pdfs", "show all pdfs", "all uploaded",
				"list everything", "show everything",
			},
			NegativeKeywords: []string{"online", "web search", "google", "internet"},
		},
	}
}
