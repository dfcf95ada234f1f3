package hash

import (
	"strings"
	"testing"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{
			[]byte("hello"),
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			[]byte(""),
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got := SHA256(tt.input)
			if got != tt.want {
				t.Errorf("SHA256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSHA256String(t *testing.T) {
	got := SHA256String("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	if got != want {
		t.Errorf("SHA256String(hello) = %s, want %s", got, want)
	}
}

func TestSHA256Short(t *testing.T) {
	hash := SHA256([]byte("hello"))

	tests := []struct {
		n    int
		want string
	}{
		{8, hash[:8]},
		{16, hash[:16]},
		{32, hash[:32]},
		{64, hash},  // full hash
		{100, hash}, // exceeds length, returns full
	}

	for _, tt := range tests {
		got := SHA256Short([]byte("hello"), tt.n)
		if got != tt.want {
			t.Errorf("SHA256Short(hello, %d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestConnectionID(t *testing.T) {
	// Same inputs should produce same output
	id1 := ConnectionID("host-a", "aa:bb:cc:dd:ee:ff", "linux", "amd64")
	id2 := ConnectionID("host-a", "aa:bb:cc:dd:ee:ff", "linux", "amd64")

	if id1 != id2 {
		t.Errorf("ConnectionID not deterministic: %s != %s", id1, id2)
	}

	// Different inputs should produce different output
	id3 := ConnectionID("host-b", "aa:bb:cc:dd:ee:ff", "linux", "amd64")
	if id1 == id3 {
		t.Errorf("ConnectionID collision: %s == %s", id1, id3)
	}

	// Should be 16 characters
	if len(id1) != 16 {
		t.Errorf("ConnectionID length = %d, want 16", len(id1))
	}

	// Should be hex
	for _, c := range id1 {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("ConnectionID contains non-hex character: %c", c)
		}
	}
}

func BenchmarkSHA256(b *testing.B) {
	data := []byte("benchmark test data for hashing performance measurement")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SHA256(data)
	}
}

func BenchmarkConnectionID(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ConnectionID("workstation-07", "aa:bb:cc:dd:ee:ff", "linux", "amd64")
	}
}
