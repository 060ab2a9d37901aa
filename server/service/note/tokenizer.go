// Package note provides note text utilities: query tokenization, markdown
// plain-text rendering and excerpt truncation.
package note

import (
	"strings"
	"unicode"
)

// TokenizeQuery splits query text into deduplicated, lowercased tokens for
// tag matching. CJK characters each form a token; runs of letters and digits
// form word tokens.
func TokenizeQuery(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var tokens []string
	seen := make(map[string]bool)
	add := func(token string) {
		if token == "" || seen[token] {
			return
		}
		tokens = append(tokens, token)
		seen[token] = true
	}

	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			add(strings.ToLower(word.String()))
			word.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			add(string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}
