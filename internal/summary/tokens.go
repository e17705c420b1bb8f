package summary

import (
	"math"
	"strings"
	"unicode/utf8"
)

// ApproxTokens estimates the token cost of a text without a tokenizer:
// the larger of chars/4 and words*1.1, never less than 1. Deterministic, so
// stored estimates never drift between runs.
func ApproxTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))

	byChars := int(math.Ceil(float64(chars) / 4.0))
	byWords := int(math.Ceil(float64(words) * 1.1))

	est := byChars
	if byWords > est {
		est = byWords
	}
	if est < 1 {
		est = 1
	}
	return est
}
