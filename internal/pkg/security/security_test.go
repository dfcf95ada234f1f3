package security

import (
	"net/http"
	"strings"
	"testing"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"newline escaped", "line1\nline2", "line1\\nline2"},
		{"carriage return escaped", "a\rb", "a\\rb"},
		{"tab escaped", "a\tb", "a\\tb"},
		{"control chars removed", "a\x00b\x1bc", "abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeForLogTruncation(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := SanitizeForLogWithLength(long, 50)

	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string should end with ..., got %q", got)
	}
	if len(got) > 60 {
		t.Errorf("truncated string too long: %d chars", len(got))
	}
}

func TestMaskSensitiveHeaders(t *testing.T) {
	headers := http.Header{
		"Authorization": []string{"Bearer secret-token"},
		"X-Api-Key":     []string{"key123"},
		"Content-Type":  []string{"application/json"},
		"X-Request-Id":  []string{"req-1"},
	}

	masked := MaskSensitiveHeaders(headers)

	if got := masked.Get("Authorization"); got != "[REDACTED]" {
		t.Errorf("Authorization = %q, want [REDACTED]", got)
	}
	if got := masked.Get("X-Api-Key"); got != "[REDACTED]" {
		t.Errorf("X-Api-Key = %q, want [REDACTED]", got)
	}
	if got := masked.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := masked.Get("X-Request-Id"); got != "req-1" {
		t.Errorf("X-Request-Id = %q, want req-1", got)
	}

	// Original untouched
	if got := headers.Get("Authorization"); got != "Bearer secret-token" {
		t.Errorf("original Authorization modified: %q", got)
	}
}

func TestMaskSensitiveHeadersNil(t *testing.T) {
	if got := MaskSensitiveHeaders(nil); got != nil {
		t.Errorf("MaskSensitiveHeaders(nil) = %v, want nil", got)
	}
}

func TestMaskSensitiveMap(t *testing.T) {
	m := map[string]string{
		"username":     "alice",
		"password":     "hunter2",
		"api_secret":   "shh",
		"redis_url":    "redis://localhost:6379",
		"access_token": "tok",
	}

	masked := MaskSensitiveMap(m)

	if masked["username"] != "alice" {
		t.Errorf("username = %q, want alice", masked["username"])
	}
	if masked["redis_url"] != "redis://localhost:6379" {
		t.Errorf("redis_url = %q, want original value", masked["redis_url"])
	}
	for _, key := range []string{"password", "api_secret", "access_token"} {
		if masked[key] != "[REDACTED]" {
			t.Errorf("%s = %q, want [REDACTED]", key, masked[key])
		}
	}
}

func TestMaskSensitiveMapNil(t *testing.T) {
	if got := MaskSensitiveMap(nil); got != nil {
		t.Errorf("MaskSensitiveMap(nil) = %v, want nil", got)
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "search for latest news", "search for latest news"},
		{"strips control chars", "find\x00 my\x01 notes", "find my notes"},
		{"keeps newlines and tabs", "line1\nline2\tend", "line1\nline2\tend"},
		{"trims whitespace", "  upload file  ", "upload file"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeQuery(tt.input); got != tt.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func BenchmarkSanitizeForLog(b *testing.B) {
	s := "search for latest news\nwith a newline and some length to it"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SanitizeForLog(s)
	}
}

func BenchmarkMaskSensitiveHeaders(b *testing.B) {
	headers := http.Header{
		"Authorization": []string{"Bearer secret"},
		"Content-Type":  []string{"application/json"},
		"Accept":        []string{"*/*"},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MaskSensitiveHeaders(headers)
	}
}
