// Package filters implements message text filtering.
//
// The package provides:
//   - Ad-block stripping of text that is about to be forwarded
//   - Comparison cleaning that feeds duplicate detection
//   - Blacklist matching by keyword or regular expression
//
// Patterns are compiled once at startup and shared read-only afterwards.
package filters

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

const (
	// ad and compare patterns are matched case-insensitively per line
	adPatternFlags        = "(?im)"
	blacklistPatternFlags = "(?i)"
)

// CompilePatterns compiles ad patterns as case-insensitive, multiline expressions.
func CompilePatterns(exprs []string) ([]*regexp.Regexp, error) {
	return compile(exprs, adPatternFlags)
}

func compile(exprs []string, flags string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))

	for _, expr := range exprs {
		re, err := regexp.Compile(flags + expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", apperrors.ErrInvalidPattern, expr, err)
		}

		out = append(out, re)
	}

	return out, nil
}

// Stripper removes promotional blocks from text destined for forwarding.
type Stripper struct {
	patterns []*regexp.Regexp
	enabled  bool
}

// NewStripper creates a Stripper. A disabled Stripper returns text unchanged.
func NewStripper(patterns []*regexp.Regexp, enabled bool) *Stripper {
	return &Stripper{patterns: patterns, enabled: enabled}
}

// Enabled reports whether stripping is switched on.
func (s *Stripper) Enabled() bool {
	return s.enabled
}

// Strip returns the cleaned text and how many characters were removed.
// An empty result means the whole message was promotional.
//
// Ticker-only lines are dropped only when the text has more than one line after
// pattern removal; a lone ticker line is kept.
func (s *Stripper) Strip(text string) (string, int) {
	if !s.enabled || text == "" {
		return text, 0
	}

	lines := splitLines(applyPatterns(s.patterns, text))
	multiline := len(lines) > 1
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" || isSeparatorLine(line) {
			continue
		}

		if multiline && isTickerLine(line) {
			continue
		}

		kept = append(kept, line)
	}

	result := strings.Join(kept, "\n")
	result = blankRunRe.ReplaceAllString(result, "\n\n")
	result = strings.TrimSpace(result)

	return result, utf8.RuneCountInString(text) - utf8.RuneCountInString(result)
}

// CompareCleaner prepares text for duplicate comparison.
type CompareCleaner struct {
	patterns []*regexp.Regexp
}

// NewCompareCleaner creates a CompareCleaner over the comparison pattern set.
func NewCompareCleaner(patterns []*regexp.Regexp) *CompareCleaner {
	return &CompareCleaner{patterns: patterns}
}

// Clean removes comparison patterns, blank and separator lines, ticker lines and
// hashtag lines. Remaining lines are trimmed and joined with newlines.
func (c *CompareCleaner) Clean(text string) string {
	if text == "" {
		return ""
	}

	lines := splitLines(applyPatterns(c.patterns, text))
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" || isSeparatorLine(line) || isTickerLine(line) || isHashtagLine(line) {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

// Blacklist suppresses messages that contain configured keywords or patterns.
type Blacklist struct {
	keywords []string
	patterns []*regexp.Regexp
	sources  []string
	caser    cases.Caser
}

// NewBlacklist compiles the patterns case-insensitively. Keywords match as
// case-folded substrings.
func NewBlacklist(keywords, patterns []string) (*Blacklist, error) {
	compiled, err := compile(patterns, blacklistPatternFlags)
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(keywords))

	for _, kw := range keywords {
		if kw == "" {
			continue
		}

		kept = append(kept, kw)
	}

	return &Blacklist{
		keywords: kept,
		patterns: compiled,
		sources:  patterns,
		caser:    cases.Fold(),
	}, nil
}

// Match reports whether text is blacklisted and a human-readable reason.
func (b *Blacklist) Match(text string) (bool, string) {
	if b == nil || text == "" {
		return false, ""
	}

	lowerText := b.caser.String(text)

	for _, kw := range b.keywords {
		if strings.Contains(lowerText, b.caser.String(kw)) {
			return true, fmt.Sprintf("keyword: '%s'", kw)
		}
	}

	for i, re := range b.patterns {
		if re.MatchString(text) {
			return true, fmt.Sprintf("pattern: '%s'", b.sources[i])
		}
	}

	return false, ""
}
