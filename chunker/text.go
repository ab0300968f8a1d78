package chunker

import (
	"strings"
	"unicode"
)

const keptPunctuation = `.,!?;:()-[]{}'"`

// Normalize collapses whitespace runs to single spaces, then strips
// characters outside the word, whitespace and common punctuation classes,
// then trims. A stripped character between two spaces leaves both.
func Normalize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	cleaned := strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}
		return -1
	}, collapsed)
	return strings.TrimSpace(cleaned)
}

// allowed matches letters, any numeric rune (superscripts and fractions
// included), underscore, whitespace and keptPunctuation. Combining marks
// are stripped.
func allowed(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
		return true
	case unicode.IsSpace(r):
		return true
	}
	return strings.ContainsRune(keptPunctuation, r)
}

// SplitSentences splits after '.', '!' or '?' when followed by whitespace.
// Fragments are trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = appendTrimmed(out, runes[start:i+1])

		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = appendTrimmed(out, runes[start:])
	}
	return out
}

func appendTrimmed(out []string, r []rune) []string {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return out
	}
	return append(out, s)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
