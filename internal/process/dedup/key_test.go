package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay/internal/process/filters"
)

var testStopWords = []string{"the", "and", "The"}

func newTestKeyBuilder(t *testing.T) *KeyBuilder {
	t.Helper()

	patterns, err := filters.CompilePatterns([]string{`^реклама.*$`})
	require.NoError(t, err)

	return NewKeyBuilder(filters.NewCompareCleaner(patterns), testStopWords)
}

func TestKeyBuilder_Build(t *testing.T) {
	kb := newTestKeyBuilder(t)

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
			name:     "below length floor",
			input:    "Hello world",
			expected: "",
		},
		{
			name:     "all lines too short",
			input:    "Short one\nShort two\nShort 3",
			expected: "",
		},
		{
			name:     "fewer than three significant words",
			input:    "the and of is at the and of is at",
			expected: "",
		},
		{
			name:     "digits stripped before length check",
			input:    "Up 12345678901234567890",
			expected: "",
		},
		{
			name:     "ten words cap",
			input:    "Central bank raises interest rates by 25 basis points\nMarkets react sharply to the decision",
			expected: "central bank raises interest rates basis points markets react sharply",
		},
		{
			name:     "only first three lines",
			input:    "Short one\nGold prices climb again today\nSilver follows the move higher\nCopper ignored here entirely line",
			expected: "gold prices climb again today silver follows move higher",
		},
		{
			name:     "fewer words than eight kept as is",
			input:    "Bitcoin surges past record",
			expected: "bitcoin surges past record",
		},
		{
			name:     "hashtag and ticker lines ignored",
			input:    "#crypto\n$BTC\nBitcoin surges past record",
			expected: "bitcoin surges past record",
		},
		{
			name:     "ad line ignored",
			input:    "Реклама: лучший вклад\nBitcoin surges past record",
			expected: "bitcoin surges past record",
		},
		{
			name:     "cyrillic short words dropped",
			input:    "Курс доллара снова растет на бирже",
			expected: "курс доллара снова растет бирже",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, kb.Build(tt.input))
		})
	}
}

func TestKeyBuilder_DigitsDoNotChangeKey(t *testing.T) {
	kb := newTestKeyBuilder(t)

	a := kb.Build("Central bank raises interest rates by 25 basis points")
	b := kb.Build("Central bank raises interest rates by 50 basis points")

	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
}
