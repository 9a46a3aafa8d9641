package domain

import (
	"strings"
	"testing"
)

func TestParseHash(t *testing.T) {
	t.Parallel()

	sha1 := "ABCDEF0123456789abcdef0123456789abcdef01"
	got, err := ParseHash(sha1)
	if err != nil {
		t.Fatalf("ParseHash() error = %v", err)
	}
	if got.String() != strings.ToLower(sha1) {
		t.Fatalf("ParseHash() = %q, want lowercase input", got)
	}
	if got.Short() != "abcdef01" {
		t.Fatalf("Short() = %q, want %q", got.Short(), "abcdef01")
	}

	if _, err := ParseHash(strings.Repeat("a", 64)); err != nil {
		t.Fatalf("sha256 hash rejected: %v", err)
	}
	for _, bad := range []string{"", "abc123", strings.Repeat("z", 40)} {
		if _, err := ParseHash(bad); err == nil {
			t.Fatalf("ParseHash(%q) expected error", bad)
		}
	}
}

func TestHashShortKeepsShortValues(t *testing.T) {
	t.Parallel()

	if got := Hash("abc").Short(); got != "abc" {
		t.Fatalf("Short() = %q, want %q", got, "abc")
	}
}
