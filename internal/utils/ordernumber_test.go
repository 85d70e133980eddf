package utils

import (
	"strings"
	"testing"
	"time"
)

func TestNewOrderNumberShape(t *testing.T) {
	no, err := NewOrderNumber()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(no) != 20 {
		t.Fatalf("expected 20 characters, got %d (%q)", len(no), no)
	}
	if !strings.HasPrefix(no, "RS") {
		t.Errorf("missing prefix: %q", no)
	}
	if !IsOrderNumber(no) {
		t.Errorf("generated number fails its own validator: %q", no)
	}
	// The embedded timestamp must be the current UTC second (allow one
	// second of slack around the generation call).
	ts := no[2:16]
	parsed, err := time.Parse("20060102150405", ts)
	if err != nil {
		t.Fatalf("timestamp portion not parseable: %q", ts)
	}
	if d := time.Since(parsed.UTC()); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("timestamp drift too large: %v", d)
	}
}

func TestIsOrderNumber(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"RS202601021504051234", true},
		{"RS20260102150405123", false},    // too short
		{"RS2026010215040512345", false},  // too long
		{"XX202601021504051234", false},   // wrong prefix
		{"RS2026010215040512a4", false},   // non-digit suffix
		{"RS20260102150405 234", false},   // whitespace
		{"", false},
	}
	for _, c := range cases {
		if got := IsOrderNumber(c.in); got != c.want {
			t.Errorf("IsOrderNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNewOrderNumberSuffixVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		no, err := NewOrderNumber()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		seen[no[16:]] = true
	}
	// 50 draws over 10,000 values collapsing to a single suffix would mean
	// the randomness is broken.
	if len(seen) < 2 {
		t.Errorf("suffix never varied across 50 draws")
	}
}
