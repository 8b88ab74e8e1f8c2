// Package norm canonicalizes free-text modality and format identifiers so
// patient input and therapist profile data compare equal despite formatting
// drift ("Somatic Experiencing®" vs "somatic_experiencing").
package norm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize maps a raw identifier into the canonical space [a-z0-9-].
// Deterministic and idempotent; malformed input degrades to a possibly
// empty string, never an error.
func Normalize(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}

	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-', r == '‐', r == '‑', r == '‒', r == '–', r == '—', r == '−',
			r == '_', unicode.IsSpace(r):
			pendingHyphen = true
		default:
			// Trademark signs, punctuation, anything else: dropped.
		}
	}
	return b.String()
}

// NormalizeSet normalizes every entry, dropping empties and duplicates while
// preserving first-seen order.
func NormalizeSet(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		n := Normalize(r)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Intersects reports whether the two normalized sets share any element.
func Intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// Contains reports whether the normalized set contains the normalized needle.
func Contains(set []string, needle string) bool {
	n := Normalize(needle)
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}
