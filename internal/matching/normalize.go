// Package matching resolves free-text account and category names against
// the live ledger lists.
package matching

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, turns every non-alphanumeric rune into a space,
// collapses whitespace and trims. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
