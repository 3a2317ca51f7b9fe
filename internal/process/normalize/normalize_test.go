package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
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
			name:     "whitespace only",
			input:    " \t\n ",
			expected: "",
		},
		{
			name:     "hashtag removed",
			input:    "Breaking: market up 5% #stocks",
			expected: "breaking market up 5",
		},
		{
			name:     "link removed",
			input:    "Read more https://example.com/a?b=c now",
			expected: "read more now",
		},
		{
			name:     "mention removed",
			input:    "Thanks @newsdesk for the tip",
			expected: "thanks for the tip",
		},
		{
			name:     "hashtag before lowercase",
			input:    "#BREAKING News",
			expected: "news",
		},
		{
			name:     "emoji and punctuation become spaces",
			input:    "🔥Rates—higher!!!",
			expected: "rates higher",
		},
		{
			name:     "cyrillic kept",
			input:    "Курс #рубль вырос, @канал!",
			expected: "курс вырос",
		},
		{
			name:     "underscore is a word character",
			input:    "snake_case stays",
			expected: "snake_case stays",
		},
		{
			name:     "newlines collapse",
			input:    "line one\n\n\nline two",
			expected: "line one line two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTextNoiseRemovalIsStable(t *testing.T) {
	inputs := []string{
		"Breaking: market up 5% #stocks",
		"see http://x.y/z and @someone #tag",
		"a#b c@d e.http",
		"##double #tag@mention",
		"Погода @meteo #новости https://t.me/x",
	}

	for _, in := range inputs {
		once := Text(in)
		twice := Text(once)

		assert.NotContains(t, twice, "#", in)
		assert.NotContains(t, twice, "@", in)
		assert.NotContains(t, twice, "http://", in)
		assert.Equal(t, hashtagRe.FindAllString(once, -1), []string(nil), in)
		assert.Equal(t, mentionRe.FindAllString(once, -1), []string(nil), in)
	}
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "a b c", Collapse("  a \t b\n\nc  "))
	assert.Equal(t, "", Collapse("   "))
	assert.Equal(t, "x y", Collapse("x y"))
}

func TestStripPunctuation(t *testing.T) {
	assert.Equal(t, "a  b c ", StripPunctuation("a, b.c!"))
	assert.Equal(t, "слово 42", StripPunctuation("слово 42"))
}
