package moderation

import (
	"strings"
	"testing"
)

func TestNormalizeLeetspeak(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"s3x", "sex"},
		{"pr0n", "pron"},
		{"t33n", "teen"},
		{"m1nor", "minor"},
		{"$ex", "sex"},
	}
	for _, tc := range cases {
		got, indicators := Normalize(tc.in)
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, expected %q", tc.in, got, tc.want)
		}
		if len(indicators) == 0 {
			t.Fatalf("expected leetspeak indicator for %q", tc.in)
		}
	}
}

func TestNormalizePreservesStandaloneNumbers(t *testing.T) {
	got, _ := Normalize("i am 17 years old")
	if got != "i am 17 years old" {
		t.Fatalf("numbers should survive normalization, got %q", got)
	}
}

func TestNormalizeZeroWidth(t *testing.T) {
	got, indicators := Normalize("te​en gi‍rl")
	if got != "teen girl" {
		t.Fatalf("expected zero-width runes stripped, got %q", got)
	}
	found := false
	for _, ind := range indicators {
		if ind == "normalized:zero_width" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected zero_width indicator, got %v", indicators)
	}
}

func TestNormalizeEmoji(t *testing.T) {
	got, indicators := Normalize("hola 🍆💦")
	if !strings.Contains(got, "eggplant") || !strings.Contains(got, "splash") {
		t.Fatalf("expected emoji tokens, got %q", got)
	}
	found := false
	for _, ind := range indicators {
		if ind == "normalized:emoji" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected emoji indicator, got %v", indicators)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got, _ := Normalize("  hello \t\n  world  ")
	if got != "hello world" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
}

func TestNormalizeLowercases(t *testing.T) {
	got, _ := Normalize("HELLO World")
	if got != "hello world" {
		t.Fatalf("expected lowercase, got %q", got)
	}
}
