package common

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "simple name",
			in:   "Jean Baudrillard",
			want: "jean-baudrillard",
		},
		{
			name: "punctuation collapses",
			in:   "Grimes!!",
			want: "grimes",
		},
		{
			name: "mixed punctuation runs",
			in:   "Simulacra & Simulation (1981)",
			want: "simulacra-simulation-1981",
		},
		{
			name: "leading and trailing junk",
			in:   "  --The Matrix--  ",
			want: "the-matrix",
		},
		{
			name: "already normalized",
			in:   "hyperreality",
			want: "hyperreality",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "only punctuation",
			in:   "?!...",
			want: "",
		},
		{
			name: "unicode letters survive",
			in:   "Café Müller",
			want: "café-müller",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeID(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIDTruncates(t *testing.T) {
	long := ""
	for range 30 {
		long += "verylongword "
	}

	id := NormalizeID(long)
	if len(id) > 100 {
		t.Errorf("NormalizeID() length = %d, want <= 100", len(id))
	}
	if id[len(id)-1] == '-' {
		t.Errorf("NormalizeID() left a trailing hyphen after truncation: %q", id)
	}
}

func TestNormalizeIDTruncatesOnRuneBoundary(t *testing.T) {
	// 60 three-byte runes normalize to 180 bytes; a byte-wise cut at 100
	// would land inside a rune.
	long := strings.Repeat("世", 60)

	id := NormalizeID(long)
	if len(id) > 100 {
		t.Errorf("NormalizeID() length = %d, want <= 100", len(id))
	}
	if !utf8.ValidString(id) {
		t.Errorf("NormalizeID() produced invalid UTF-8: %q", id)
	}
	if id != strings.Repeat("世", 33) {
		t.Errorf("NormalizeID() = %q, want 33 whole runes", id)
	}
}

func TestNormalizeIDCollision(t *testing.T) {
	// Punctuation-only differences collide on purpose.
	if NormalizeID("Grimes") != NormalizeID("Grimes!!") {
		t.Error("expected punctuation variants to normalize identically")
	}
	if NormalizeID("Grimes") == NormalizeID("Claire Boucher") {
		t.Error("distinct names must not collide")
	}
}

func TestRelationshipID(t *testing.T) {
	a := RelationshipID("jean-baudrillard", RelationInfluences, "hyperreality")
	b := RelationshipID("jean-baudrillard", RelationInfluences, "hyperreality")
	if a != b {
		t.Error("same triple must derive the same id")
	}

	c := RelationshipID("hyperreality", RelationInfluences, "jean-baudrillard")
	if a == c {
		t.Error("direction must be part of the identity")
	}
}

func TestPromoteSignificance(t *testing.T) {
	tests := []struct {
		name        string
		current     Significance
		occurrences int
		want        Significance
	}{
		{"single occurrence keeps minor", SignificanceMinor, 1, SignificanceMinor},
		{"two occurrences promote to moderate", SignificanceMinor, 2, SignificanceModerate},
		{"five occurrences promote to major", SignificanceMinor, 5, SignificanceMajor},
		{"major is never demoted", SignificanceMajor, 1, SignificanceMajor},
		{"moderate stays at two", SignificanceModerate, 2, SignificanceModerate},
		{"moderate to major at five", SignificanceModerate, 7, SignificanceMajor},
		{"unknown defaults to moderate", Significance("huge"), 1, SignificanceModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PromoteSignificance(tt.current, tt.occurrences)
			if got != tt.want {
				t.Errorf("PromoteSignificance(%q, %d) = %q, want %q", tt.current, tt.occurrences, got, tt.want)
			}
		})
	}
}

func TestUnionStrings(t *testing.T) {
	got := UnionStrings([]string{"a", "b"}, "b", "c", "", "a", "d")
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("UnionStrings() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UnionStrings()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
