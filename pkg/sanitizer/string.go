package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims s and collapses interior whitespace runs to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeSubject(subject string) string {
	return strings.ToLower(TrimAndNormalize(subject))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeStringSlice applies normalizer and drops empties and duplicates, keeping order.
func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		n := normalizer(item)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
