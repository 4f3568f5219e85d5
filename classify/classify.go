// Package classify decides whether a text fragment should be sent to a
// translation engine. Fragments that carry no natural language — URLs,
// email addresses, filesystem paths, bare numbers, operator soup — are
// skipped so they survive translation byte-identical.
//
// Classification is a pure function over the fragment text. The rules are
// ordered and the first matching rule wins.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Decision is the outcome of classifying a fragment.
type Decision string

const (
	// Translate marks a fragment as natural language worth translating.
	Translate Decision = "translate"
	// Skip marks a fragment that must pass through unchanged.
	Skip Decision = "skip"
)

// urlPrefixes are scheme-ish prefixes that mark a fragment as a link target.
var urlPrefixes = []string{
	"http://",
	"https://",
	"ftp://",
	"www.",
	"mailto:",
}

var (
	numericRe     = regexp.MustCompile(`^[\d\s.\-%,]+$`)
	emailRe       = regexp.MustCompile(`^[\w.\-]+@[\w.\-]+\.\w+$`)
	pathRe        = regexp.MustCompile(`^[A-Za-z]:\\|^/[\w/]`)
	punctuationRe = regexp.MustCompile(`^[{}()\[\];=<>+/*\-]+$`)
)

// Classify applies the skip rules in order and returns the first match:
//
//  1. fewer than 2 characters after trimming
//  2. digits, whitespace and .-%, only
//  3. URL prefix (http, https, ftp, www., mailto:)
//  4. email address
//  5. filesystem path (drive letter or absolute Unix path)
//  6. punctuation and operator characters only
//
// Anything else is translatable.
func Classify(text string) Decision {
	trimmed := strings.TrimSpace(text)

	if utf8.RuneCountInString(trimmed) < 2 {
		return Skip
	}
	if numericRe.MatchString(trimmed) {
		return Skip
	}
	for _, prefix := range urlPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return Skip
		}
	}
	if emailRe.MatchString(trimmed) {
		return Skip
	}
	if pathRe.MatchString(trimmed) {
		return Skip
	}
	if punctuationRe.MatchString(trimmed) {
		return Skip
	}
	return Translate
}

// ShouldTranslate reports whether Classify(text) == Translate.
func ShouldTranslate(text string) bool {
	return Classify(text) == Translate
}
