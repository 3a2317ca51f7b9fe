package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

var testAdPatterns = []string{
	`^подписывайтесь.*$`,
	`^реклама.*$`,
	`^sponsored by .*$`,
}

func mustPatterns(t *testing.T, exprs []string) *Stripper {
	t.Helper()

	compiled, err := CompilePatterns(exprs)
	require.NoError(t, err)

	return NewStripper(compiled, true)
}

func TestCompilePatterns(t *testing.T) {
	compiled, err := CompilePatterns(testAdPatterns)
	require.NoError(t, err)
	assert.Len(t, compiled, len(testAdPatterns))

	_, err = CompilePatterns([]string{`(unclosed`})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPattern)
}

func TestStripper_Strip(t *testing.T) {
	s := mustPatterns(t, testAdPatterns)

	tests := []struct {
		name         string
		input        string
		expected     string
		charsRemoved int
	}{
		{
			name:         "empty text",
			input:        "",
			expected:     "",
			charsRemoved: 0,
		},
		{
			name:         "clean text untouched",
			input:        "Fed holds rates steady",
			expected:     "Fed holds rates steady",
			charsRemoved: 0,
		},
		{
			name:         "ad line removed case-insensitively",
			input:        "Fed holds rates\nSPONSORED BY Acme",
			expected:     "Fed holds rates",
			charsRemoved: 18,
		},
		{
			name:         "separator and blank lines dropped",
			input:        "Headline\n\n-----\n\n\nBody",
			expected:     "Headline\nBody",
			charsRemoved: 9,
		},
		{
			name:         "lone ticker line kept",
			input:        "$AAPL $TSLA",
			expected:     "$AAPL $TSLA",
			charsRemoved: 0,
		},
		{
			name:         "ticker line dropped when another line exists",
			input:        "$AAPL $TSLA\nApple and Tesla rally",
			expected:     "Apple and Tesla rally",
			charsRemoved: 12,
		},
		{
			name:         "promotional only becomes empty",
			input:        "Подписывайтесь на канал\nРеклама: скидки",
			expected:     "",
			charsRemoved: 39,
		},
		{
			name:         "outer whitespace trimmed",
			input:        "   Hello world   ",
			expected:     "Hello world",
			charsRemoved: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := s.Strip(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.charsRemoved, removed)
		})
	}
}

func TestStripper_Disabled(t *testing.T) {
	compiled, err := CompilePatterns(testAdPatterns)
	require.NoError(t, err)

	s := NewStripper(compiled, false)
	in := "Реклама здесь\n$AAPL\n\n\n"

	got, removed := s.Strip(in)
	assert.Equal(t, in, got)
	assert.Zero(t, removed)
	assert.False(t, s.Enabled())
}

func TestCompareCleaner_Clean(t *testing.T) {
	compiled, err := CompilePatterns(testAdPatterns)
	require.NoError(t, err)

	c := NewCompareCleaner(compiled)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "lone ticker line dropped",
			input:    "$AAPL $TSLA",
			expected: "",
		},
		{
			name:     "hashtag line dropped",
			input:    "#markets #news\nStocks rally on earnings",
			expected: "Stocks rally on earnings",
		},
		{
			name:     "ad and separators dropped",
			input:    "  Oil jumps  \n• • •\nРеклама у нас\nBrent above 90",
			expected: "Oil jumps\nBrent above 90",
		},
		{
			name:     "mixed case line kept",
			input:    "BREAKING news today",
			expected: "BREAKING news today",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Clean(tt.input))
		})
	}
}

func TestBlacklist_Match(t *testing.T) {
	b, err := NewBlacklist([]string{"Casino", ""}, []string{`\bpromo\s*code\b`})
	require.NoError(t, err)

	tests := []struct {
		name       string
		text       string
		filtered   bool
		wantReason string
	}{
		{
			name:       "empty text",
			text:       "",
			filtered:   false,
			wantReason: "",
		},
		{
			name:       "keyword case folded",
			text:       "Best CASINO bonuses",
			filtered:   true,
			wantReason: "keyword: 'Casino'",
		},
		{
			name:       "pattern case insensitive",
			text:       "Use PROMO CODE now",
			filtered:   true,
			wantReason: `pattern: '\bpromo\s*code\b'`,
		},
		{
			name:       "clean text",
			text:       "Central bank update",
			filtered:   false,
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered, reason := b.Match(tt.text)
			assert.Equal(t, tt.filtered, filtered)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestNewBlacklist_InvalidPattern(t *testing.T) {
	_, err := NewBlacklist(nil, []string{`[`})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPattern)
}

func TestLineClassifiers(t *testing.T) {
	assert.True(t, isSeparatorLine("----"))
	assert.True(t, isSeparatorLine("=~_ •"))
	assert.False(t, isSeparatorLine("-- a --"))

	assert.True(t, isTickerLine("$AAPL $TSLA"))
	assert.True(t, isTickerLine("BTC ETH"))
	assert.False(t, isTickerLine("$aapl"))
	assert.False(t, isTickerLine("AAPL up"))

	assert.True(t, isHashtagLine("#crypto is hot"))
	assert.False(t, isHashtagLine("crypto #hot"))
}
