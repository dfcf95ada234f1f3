package router

import "testing"

func TestAmbiguityDetect(t *testing.T) {
	d, err := NewAmbiguityDetector(nil)
	if err != nil {
		t.Fatalf("NewAmbiguityDetector() error = %v", err)
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"should i search online or check my notes", true},
		{"what is the difference between the two papers", true},
		{"find the report but not the draft", true},
		{"show me everything about machine learning", true},
		{"compare the uploaded pdfs", true},
		{"either the notes or the pdf", true},
		{"search for golang tutorials", false},
		{"upload file to drive", false},
		{"summarize my pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := d.Detect(tt.query); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestAmbiguityCustomPatterns(t *testing.T) {
	d, err := NewAmbiguityDetector([]string{`\bmaybe\b`})
	if err != nil {
		t.Fatalf("NewAmbiguityDetector() error = %v", err)
	}

	if !d.Detect("maybe search for it") {
		t.Error("custom pattern should match")
	}

	// Default patterns are replaced, not merged.
	if d.Detect("should i search online or check my notes") {
		t.Error("default patterns should not apply with custom set")
	}
}

func TestAmbiguityInvalidPattern(t *testing.T) {
	if _, err := NewAmbiguityDetector([]string{`(`}); err == nil {
		t.Error("NewAmbiguityDetector() should reject invalid regex")
	}
}
