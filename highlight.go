package main

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsHighlighted reports whether text mentions one of the configured keywords
// or the user's own name. Matching is case-insensitive and requires a
// non-alphanumeric boundary on each side of the match, except that a keyword
// whose own first or last character is non-alphanumeric skips the check on
// that side (so "!bot" matches inside "x!bot"). Every occurrence of a
// keyword is tried before giving up on it.
func IsHighlighted(text string, keywords []string, ownName string) bool {
	return highlighted(strings.ToLower(text), keywords, ownName)
}

// highlighted is IsHighlighted over text already folded to lowercase, for
// callers that cache the folded form.
func highlighted(lower string, keywords []string, ownName string) bool {
	if ownName != "" && containsKeyword(lower, strings.ToLower(ownName)) {
		return true
	}
	for _, kw := range keywords {
		if containsKeyword(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// containsKeyword scans all occurrences of kw in text (both lowercase) until
// one sits on qualifying boundaries. Boundary checks decode whole runes so
// they never split a multi-byte character.
func containsKeyword(text, kw string) bool {
	if kw == "" {
		return false
	}

	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	skipBefore := !isWordRune(first)
	skipAfter := !isWordRune(last)

	for from := 0; from <= len(text)-len(kw); {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		at := from + i
		end := at + len(kw)

		beforeOK := at == 0 || skipBefore
		if !beforeOK {
			r, _ := utf8.DecodeLastRuneInString(text[:at])
			beforeOK = !isWordRune(r)
		}
		afterOK := end == len(text) || skipAfter
		if !afterOK {
			r, _ := utf8.DecodeRuneInString(text[end:])
			afterOK = !isWordRune(r)
		}
		if beforeOK && afterOK {
			return true
		}
		from = at + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
