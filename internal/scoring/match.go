// Package scoring turns a camp's keyword set and an account's bio and tweets
// into weighted, sentiment-gated scores.
package scoring

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountMatches returns the number of non-overlapping, case-insensitive occurrences of term in text.
//
// A term that starts with a letter or digit only matches at a word start, so it
// counts whole words and word prefixes ("bitcoin" in "bitcoiners") but not
// infixes ("art" in "start"). Terms that start with a symbol ("#btc", "$ETH")
// match anywhere. Empty or whitespace-only terms never match.
func CountMatches(text, term string) int {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || text == "" {
		return 0
	}
	text = strings.ToLower(text)
	first, _ := utf8.DecodeRuneInString(term)
	needBoundary := isWordRune(first)

	n := 0
	for pos := 0; pos <= len(text)-len(term); {
		i := strings.Index(text[pos:], term)
		if i < 0 {
			break
		}
		at := pos + i
		if needBoundary && at > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:at])
			if isWordRune(prev) {
				pos = at + 1
				continue
			}
		}
		n++
		pos = at + len(term)
	}
	return n
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
