package dedup

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity algorithms.
const (
	AlgorithmJaccard  = "jaccard"
	AlgorithmSequence = "sequence"
)

// Jaccard returns |A∩B| / |A∪B| over the whitespace-delimited words of a and b.
// Either side without words scores 0.
func Jaccard(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0

	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}

	union := len(wordsA) + len(wordsB) - intersection

	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		set[f] = struct{}{}
	}

	return set
}

// SequenceRatio returns the longest-matching-blocks ratio 2*M/T of a and b,
// compared rune by rune. Two empty strings score 1.
func SequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}

	return out
}

// Scorer pairs a similarity algorithm with the preprocessing that feeds it.
type Scorer struct {
	algorithm  string
	preprocess func(string) string
}

// NewScorer creates a Scorer. A nil preprocess compares texts as given.
func NewScorer(algorithm string, preprocess func(string) string) Scorer {
	if preprocess == nil {
		preprocess = func(s string) string { return s }
	}

	return Scorer{algorithm: algorithm, preprocess: preprocess}
}

// Score returns a similarity in [0,1]. Empty input on either side scores 0.
func (s Scorer) Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	a, b = s.preprocess(a), s.preprocess(b)

	switch s.algorithm {
	case AlgorithmSequence:
		return SequenceRatio(a, b)
	default:
		return Jaccard(a, b)
	}
}
