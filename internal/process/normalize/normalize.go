// Package normalize turns noisy channel text into a canonical comparison form.
//
// Word characters follow Unicode rules: letters, numbers and underscore in any
// script count as word characters, so Cyrillic or Greek posts normalize the
// same way Latin ones do.
package normalize

import (
	"regexp"
	"strings"
)

var (
	hashtagRe     = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	urlRe         = regexp.MustCompile(`http[^\s\p{Z}]+`)
	mentionRe     = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}]`)
)

// Text strips hashtags, links, mentions, punctuation and case from s.
// The steps run exactly once each; the result is never re-normalized.
func Text(s string) string {
	if s == "" {
		return ""
	}

	s = Collapse(hashtagRe.ReplaceAllString(s, ""))
	s = strings.ToLower(s)
	s = urlRe.ReplaceAllString(s, "")
	s = mentionRe.ReplaceAllString(s, "")
	s = StripPunctuation(s)

	return Collapse(s)
}

// StripPunctuation replaces every rune that is neither a word character nor
// whitespace with a single space.
func StripPunctuation(s string) string {
	return punctuationRe.ReplaceAllString(s, " ")
}

// Collapse squeezes whitespace runs to single spaces and trims the ends.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Words splits normalized text on whitespace.
func Words(s string) []string {
	return strings.Fields(s)
}
