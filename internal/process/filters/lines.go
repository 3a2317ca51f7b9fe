package filters

import (
	"regexp"
	"strings"
)

var (
	separatorLineRe = regexp.MustCompile(`^[\s\-•=~_]*$`)
	tickerLineRe    = regexp.MustCompile(`^(\$?[A-Z]+(?:\s+\$?[A-Z]+)*)$`)
	hashtagLineRe   = regexp.MustCompile(`^#[\p{L}\p{N}_]+`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// isSeparatorLine matches decorative rules such as "-----" or "• • •".
func isSeparatorLine(line string) bool {
	return separatorLineRe.MatchString(line)
}

// isTickerLine matches lines made only of upper-case symbols, e.g. "$AAPL $TSLA".
func isTickerLine(line string) bool {
	return tickerLineRe.MatchString(line)
}

func isHashtagLine(line string) bool {
	return hashtagLineRe.MatchString(line)
}

func applyPatterns(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		text = p.ReplaceAllString(text, "")
	}

	return text
}
