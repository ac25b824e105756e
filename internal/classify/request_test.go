package classify

import (
	"errors"
	"strings"
	"testing"

	"sentimark/internal/services"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
	}{
		{"strict", ModeStrict},
		{"STRICT", ModeStrict},
		{" Lenient ", ModeLenient},
	}
	for _, tc := range cases {
		mode, err := ParseMode(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if mode != tc.want {
			t.Fatalf("parse %q: expected %q, got %q", tc.in, tc.want, mode)
		}
	}
	if _, err := ParseMode("balanced"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewRequestValidates(t *testing.T) {
	req, err := NewRequest("  Great fun.  ", ModeStrict, 0.9)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if req.ReviewText != "Great fun." {
		t.Fatalf("expected trimmed text, got %q", req.ReviewText)
	}
	if _, err := NewRequest("   ", ModeStrict, 0.9); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank text, got %v", err)
	}
	if _, err := NewRequest("fine", Mode("other"), 0.9); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad mode, got %v", err)
	}
}

func TestCacheKeyIdentity(t *testing.T) {
	base := Request{ReviewText: "Great fun.", Mode: ModeStrict, Temperature: 0.9}
	if base.CacheKey() != (Request{ReviewText: "Great fun.", Mode: ModeStrict, Temperature: 0.9}).CacheKey() {
		t.Fatal("identical requests must share a key")
	}
	if base.CacheKey() != (Request{ReviewText: "  Great fun.  ", Mode: ModeStrict, Temperature: 0.9}).CacheKey() {
		t.Fatal("surrounding whitespace must not change the key")
	}
	variants := []Request{
		{ReviewText: "Great fun!", Mode: ModeStrict, Temperature: 0.9},
		{ReviewText: "Great fun.", Mode: ModeLenient, Temperature: 0.9},
		{ReviewText: "Great fun.", Mode: ModeStrict, Temperature: 0.2},
	}
	for _, variant := range variants {
		if variant.CacheKey() == base.CacheKey() {
			t.Fatalf("expected distinct key for %+v", variant)
		}
	}
}

func TestCacheKeyShape(t *testing.T) {
	key := Request{ReviewText: "Great fun.", Mode: ModeStrict, Temperature: 0.9}.CacheKey()
	parts := strings.Split(key, "|")
	if len(parts) != 3 {
		t.Fatalf("expected mode|temperature|digest, got %q", key)
	}
	if parts[0] != "strict" || parts[1] != "0.9" {
		t.Fatalf("unexpected key prefix: %q", key)
	}
	if len(parts[2]) != 64 {
		t.Fatalf("expected sha-256 hex digest, got %q", parts[2])
	}
}
