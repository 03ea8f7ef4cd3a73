// Package slug derives filesystem and URL safe keys from display names.
package slug

import (
	"strings"
	"unicode"
)

// Normalize lower-cases name, drops every rune that is not a letter, digit,
// whitespace or hyphen, and joins the remaining words with single hyphens.
//
// The result is deterministic but not unique. An empty result means the name
// carries no usable key and must not be used to address a resource.
func Normalize(name string) string {
	lowered := strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), "-")
}
