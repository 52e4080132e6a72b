package analyzer

import "strings"

// Stem strips common English inflections so that "returns", "returned" and
// "returning" share one form. Only plural, -ing, -ed and trailing -e are
// handled.
func Stem(word string) string {
	if len(word) <= 3 {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		word = word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		word = word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
	case strings.HasSuffix(word, "s"):
		word = word[:len(word)-1]
	}

	for _, suffix := range []string{"ing", "ed"} {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		base := word[:len(word)-len(suffix)]
		if len(base) >= 3 && hasVowel(base) {
			word = undouble(base)
		}
		break
	}

	if len(word) > 3 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "ee") {
		word = word[:len(word)-1]
	}

	return word
}

func hasVowel(s string) bool {
	return strings.ContainsAny(s, "aeiouy")
}

// undouble turns "shipp" into "ship". l, s and z doubles are kept ("install").
func undouble(s string) string {
	n := len(s)
	if n < 2 || s[n-1] != s[n-2] {
		return s
	}
	switch s[n-1] {
	case 'l', 's', 'z', 'a', 'e', 'i', 'o', 'u':
		return s
	}
	return s[:n-1]
}
