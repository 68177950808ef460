// Package plate decides which recognized text fragments look like license
// plates.
//
// The check is deliberately coarse: any token mixing upper-case ASCII letters
// and digits with no separator characters passes. There is no per-region
// plate grammar and no normalization (no trimming, no case folding).
package plate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/pkg/fn"
)

var (
	upperRe = regexp.MustCompile(`[A-Z]`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// disallowed holds the separator characters that disqualify a token.
// Whitespace of any kind is checked separately.
const disallowed = "/^$|+ "

// IsPlateCandidate reports whether text contains at least one A-Z letter, at
// least one 0-9 digit, and none of the disallowed characters.
func IsPlateCandidate(text string) bool {
	if !upperRe.MatchString(text) || !digitRe.MatchString(text) {
		return false
	}
	if strings.ContainsAny(text, disallowed) {
		return false
	}
	return !strings.ContainsFunc(text, unicode.IsSpace)
}

// Candidates returns the text of every fragment that passes
// IsPlateCandidate, in fragment order. Repeated plates are kept.
func Candidates(fragments []domain.TextFragment) []string {
	hits := fn.Filter(fragments, func(f domain.TextFragment) bool {
		return IsPlateCandidate(f.Text)
	})
	return fn.Map(hits, func(f domain.TextFragment) string { return f.Text })
}
