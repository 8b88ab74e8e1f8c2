package norm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain lowercase", "narm", "narm"},
		{"uppercase folded", "NARM", "narm"},
		{"trademark sign dropped", "Somatic Experiencing®", "somatic-experiencing"},
		{"underscores become hyphens", "somatic_experiencing", "somatic-experiencing"},
		{"diacritics stripped", "Körperpsychothérapie", "korperpsychotherapie"},
		{"en dash unified", "8–12 Uhr", "8-12-uhr"},
		{"em dash unified", "mind—body", "mind-body"},
		{"minus sign unified", "trauma−therapie", "trauma-therapie"},
		{"whitespace runs collapse", "  Inner   Relationship  Focusing ", "inner-relationship-focusing"},
		{"mixed separators collapse", "EMDR _ - Therapie", "emdr-therapie"},
		{"punctuation dropped", "Hakomi (Methode)!", "hakomi-methode"},
		{"empty input", "", ""},
		{"only punctuation", "®™!?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Somatic Experiencing®",
		"somatic_experiencing",
		"Körperorientierte Psychotherapie",
		"NARM",
		"Morgens (8–12 Uhr)",
		"",
		"---",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	assert.Equal(t, Normalize("somatic_experiencing"), Normalize("Somatic Experiencing®"))
	assert.Equal(t, "somatic-experiencing", Normalize("Somatic Experiencing®"))
}

func TestNormalizeSet(t *testing.T) {
	got := NormalizeSet([]string{"NARM", "narm", "Somatic Experiencing®", "", "®"})
	assert.Equal(t, []string{"narm", "somatic-experiencing"}, got)

	if NormalizeSet(nil) != nil {
		t.Error("expected nil for nil input")
	}
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"shared element", []string{"narm", "hakomi"}, []string{"hakomi"}, true},
		{"disjoint", []string{"narm"}, []string{"hakomi"}, false},
		{"empty left", nil, []string{"narm"}, false},
		{"empty right", []string{"narm"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intersects(tt.a, tt.b); got != tt.want {
				t.Errorf("Intersects(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	set := NormalizeSet([]string{"NARM", "Somatic Experiencing®"})
	assert.True(t, Contains(set, "narm"))
	assert.True(t, Contains(set, "somatic_experiencing"))
	assert.False(t, Contains(set, "hakomi"))
}
