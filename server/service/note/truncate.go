package note

import (
	"strings"
	"unicode"
)

// TruncateAtWordBoundary truncates text to at most maxChars characters without
// splitting a word: the cut lands on a whitespace boundary, or directly after
// a CJK character. When not even the first word fits the budget, the result
// is empty. Returns the truncated text and whether a cut was made.
func TruncateAtWordBoundary(text string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return "", text != ""
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text, false
	}

	cut := maxChars
	for cut > 0 && !boundaryAt(runes, cut) {
		cut--
	}
	// cut == 0 means not even the first word fits; the empty result lets the
	// caller decide whether to skip or stop.
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace), true
}

// boundaryAt reports whether cutting before runes[i] keeps words intact.
func boundaryAt(runes []rune, i int) bool {
	if unicode.IsSpace(runes[i]) {
		return true
	}
	return unicode.Is(unicode.Han, runes[i-1])
}
