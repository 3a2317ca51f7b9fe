package dedup

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lueurxax/telegram-relay/internal/process/normalize"
)

const (
	keyMaxLines      = 3
	keyMinLineLength = 10
	keyMinLength     = 20
	keyMinWords      = 3
	keyMinWordLength = 2
	keyShortWords    = 8
	keyMaxWords      = 10
)

var digitsRe = regexp.MustCompile(`\p{Nd}+`)

// Cleaner prepares text for comparison.
type Cleaner interface {
	Clean(text string) string
}

// KeyBuilder derives comparison keys from the leading lines of a message.
type KeyBuilder struct {
	cleaner   Cleaner
	stopWords map[string]struct{}
}

// NewKeyBuilder creates a KeyBuilder. Stop words are matched case-insensitively.
func NewKeyBuilder(cleaner Cleaner, stopWords []string) *KeyBuilder {
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}

	return &KeyBuilder{cleaner: cleaner, stopWords: set}
}

// Clean exposes the underlying comparison cleaner.
func (b *KeyBuilder) Clean(text string) string {
	return b.cleaner.Clean(text)
}

// Build returns the comparison key of text, or "" when the text is too short
// or has fewer than three significant words to fingerprint reliably.
func (b *KeyBuilder) Build(text string) string {
	cleaned := b.cleaner.Clean(text)
	if cleaned == "" {
		return ""
	}

	lines := strings.Split(cleaned, "\n")
	if len(lines) > keyMaxLines {
		lines = lines[:keyMaxLines]
	}

	mainLines := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > keyMinLineLength {
			mainLines = append(mainLines, line)
		}
	}

	if len(mainLines) == 0 {
		return ""
	}

	content := strings.ToLower(strings.Join(mainLines, " "))
	content = normalize.StripPunctuation(content)
	content = digitsRe.ReplaceAllString(content, " ")
	content = normalize.Collapse(content)

	if utf8.RuneCountInString(content) < keyMinLength {
		return ""
	}

	words := make([]string, 0, keyMaxWords)

	for _, w := range normalize.Words(content) {
		if _, stop := b.stopWords[w]; stop {
			continue
		}

		if utf8.RuneCountInString(w) <= keyMinWordLength {
			continue
		}

		words = append(words, w)
	}

	if len(words) < keyMinWords {
		return ""
	}

	n := min(keyMaxWords, max(keyShortWords, len(words)), len(words))

	return strings.Join(words[:n], " ")
}
