// Package textutil normalizes scraped text before it reaches the digest.
package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Typographic characters that survive NFKC but render badly in the
// final document.
var replacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	" ", " ", // non-breaking space
)

// Clean applies NFKC normalization, replaces smart punctuation with
// plain ASCII equivalents and trims surrounding whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = replacer.Replace(s)
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most n runes, appending an ellipsis when
// anything was cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
