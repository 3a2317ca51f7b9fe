package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// Patterns holds the text patterns and word lists used by the relay.
// Ad patterns are RE2 expressions matched case-insensitively per line.
type Patterns struct {
	ComparePatterns   []string `yaml:"compare_patterns"`
	ForwardPatterns   []string `yaml:"forward_patterns"`
	StopWords         []string `yaml:"stop_words"`
	BlacklistKeywords []string `yaml:"blacklist_keywords"`
	BlacklistPatterns []string `yaml:"blacklist_patterns"`
}

// LoadPatterns reads the pattern file at path. An empty path loads the
// built-in defaults.
func LoadPatterns(path string) (Patterns, error) {
	data := defaultPatterns

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Patterns{}, fmt.Errorf("reading patterns file: %w", err)
		}

		data = raw
	}

	return ParsePatterns(data)
}

// ParsePatterns decodes a YAML pattern document.
func ParsePatterns(data []byte) (Patterns, error) {
	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Patterns{}, fmt.Errorf("%w: decoding patterns: %w", apperrors.ErrInvalidConfig, err)
	}

	return p, nil
}

// DefaultPatterns returns the built-in pattern set.
func DefaultPatterns() Patterns {
	p, err := ParsePatterns(defaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("embedded patterns.yaml is invalid: %v", err))
	}

	return p
}
