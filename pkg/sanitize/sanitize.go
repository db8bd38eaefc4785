// Package sanitize cleans user-supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// String strips markup, trims, and caps the result at maxLen runes.
func String(input string, maxLen int) string {
	cleaned := strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
	if maxLen > 0 && utf8.RuneCountInString(cleaned) > maxLen {
		runes := []rune(cleaned)
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return cleaned
}

// Optional returns nil for inputs that are empty after sanitizing.
func Optional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	cleaned := String(*input, maxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// List cleans each entry and drops empties and duplicates, keeping order.
func List(values []string, maxLen int) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		cleaned := String(v, maxLen)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}
