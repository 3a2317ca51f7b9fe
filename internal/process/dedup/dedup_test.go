package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/process/normalize"
)

const (
	testThreshold = 0.8
	testMaxSize   = 1000

	textRatesA = "Central bank raises interest rates by 25 basis points"
	textRatesB = "Central bank raises interest rates by 50 basis points"
)

func msg(id int64, text string) domain.Message {
	return domain.Message{ID: id, Text: text, Date: testNow.Add(-time.Duration(100-id) * time.Second)}
}

func newThreshold(threshold float64) Detector {
	return NewThresholdDetector(NewWindow(time.Hour, testMaxSize, fixedClock(testNow)), threshold)
}

func newKeyed(t *testing.T, threshold float64, limit int) Detector {
	t.Helper()

	return NewKeyedDetector(NewWindow(time.Hour, testMaxSize, fixedClock(testNow)), newTestKeyBuilder(t), threshold, limit)
}

func TestThresholdDetector_ExactRepeat(t *testing.T) {
	d := newThreshold(testThreshold)

	first := d.Check(msg(1, "Breaking: market up 5% #stocks"))
	assert.False(t, first.Duplicate)
	assert.Equal(t, 1, d.Size())

	second := d.Check(msg(2, "Breaking: market up 5%"))
	require.True(t, second.Duplicate)
	assert.InDelta(t, 1.0, second.Evidence.Similarity, scoreDelta)
	assert.Equal(t, int64(1), second.Evidence.MatchedID)
	assert.Equal(t, "Breaking: market up 5% #stocks", second.Evidence.MatchedText)
	assert.Equal(t, 1, d.Size(), "duplicates are not cached")
}

func TestThresholdDetector_Boundary(t *testing.T) {
	const (
		a = "alpha beta gamma delta"
		b = "alpha beta gamma epsilon"
	)

	similarity := Jaccard(normalize.Text(a), normalize.Text(b))
	require.InDelta(t, 0.6, similarity, scoreDelta)

	tests := []struct {
		name      string
		threshold float64
		duplicate bool
	}{
		{name: "equal to threshold is duplicate", threshold: similarity, duplicate: true},
		{name: "just below similarity", threshold: similarity - 1e-9, duplicate: true},
		{name: "just above similarity", threshold: similarity + 1e-9, duplicate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newThreshold(tt.threshold)
			d.Check(msg(1, a))

			assert.Equal(t, tt.duplicate, d.Check(msg(2, b)).Duplicate)
		})
	}
}

func TestThresholdDetector_EmptyNormalizedIsUnique(t *testing.T) {
	d := newThreshold(testThreshold)

	v := d.Check(msg(1, "#only #tags https://example.com @someone"))

	assert.False(t, v.Duplicate)
	assert.Zero(t, d.Size())
}

func TestThresholdDetector_FirstMatchWinsOldestFirst(t *testing.T) {
	d := newThreshold(0.5)

	d.Check(msg(1, "one two three four"))
	d.Check(msg(2, "one two three five six seven eight"))

	v := d.Check(msg(3, "one two three four five"))
	require.True(t, v.Duplicate)
	assert.Equal(t, int64(1), v.Evidence.MatchedID)
}

func TestThresholdDetector_RecordIsNoop(t *testing.T) {
	d := newThreshold(testThreshold)

	assert.True(t, d.RecordsOnCheck())
	d.Record(msg(1, "something unique here"))
	assert.Zero(t, d.Size())

	d.Seed(msg(2, "seeded history message"))
	assert.Equal(t, 1, d.Size())
	assert.Equal(t, StrategyThreshold, d.Name())
}

func TestDetectors_IgnoreOwnCacheEntry(t *testing.T) {
	detectors := map[string]Detector{
		StrategyThreshold: newThreshold(testThreshold),
		StrategyKeyed:     newKeyed(t, testThreshold, DefaultCandidateLimit),
	}

	for name, d := range detectors {
		t.Run(name, func(t *testing.T) {
			d.Seed(msg(7, textRatesA))
			require.Equal(t, 1, d.Size())

			assert.False(t, d.Check(msg(7, textRatesA)).Duplicate)
			d.Record(msg(7, textRatesA))
			assert.Equal(t, 1, d.Size(), "a message is cached once")

			v := d.Check(msg(8, textRatesA))
			require.True(t, v.Duplicate)
			assert.Equal(t, int64(7), v.Evidence.MatchedID)
		})
	}
}

func TestKeyedDetector_Boundary(t *testing.T) {
	kb := newTestKeyBuilder(t)
	similarity := SequenceRatio(kb.Clean(textRatesA), kb.Clean(textRatesB))
	require.Less(t, similarity, 1.0)

	tests := []struct {
		name      string
		threshold float64
		duplicate bool
	}{
		{name: "equal to threshold is unique", threshold: similarity, duplicate: false},
		{name: "just below similarity", threshold: similarity - 1e-9, duplicate: true},
		{name: "just above similarity", threshold: similarity + 1e-9, duplicate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newKeyed(t, tt.threshold, DefaultCandidateLimit)
			d.Record(msg(1, textRatesA))

			v := d.Check(msg(2, textRatesB))
			assert.Equal(t, tt.duplicate, v.Duplicate)

			if tt.duplicate {
				assert.InDelta(t, similarity, v.Evidence.Similarity, scoreDelta)
				assert.Equal(t, int64(1), v.Evidence.MatchedID)
				assert.Equal(t, kb.Build(textRatesB), v.Evidence.Key)
			}
		})
	}
}

func TestKeyedDetector_CheckDoesNotRecord(t *testing.T) {
	d := newKeyed(t, testThreshold, DefaultCandidateLimit)

	assert.False(t, d.RecordsOnCheck())
	assert.False(t, d.Check(msg(1, textRatesA)).Duplicate)
	assert.Zero(t, d.Size())
	assert.False(t, d.Check(msg(2, textRatesA)).Duplicate, "nothing cached until Record")

	d.Record(msg(1, textRatesA))

	v := d.Check(msg(2, textRatesA))
	require.True(t, v.Duplicate)
	assert.InDelta(t, 1.0, v.Evidence.Similarity, scoreDelta)
	assert.Equal(t, testNow.Add(-99*time.Second), v.Evidence.MatchedAt)
}

func TestKeyedDetector_EmptyKeyIsUnique(t *testing.T) {
	d := newKeyed(t, testThreshold, DefaultCandidateLimit)

	d.Record(msg(1, "Hello world"))

	assert.False(t, d.Check(msg(2, "Hello world")).Duplicate)
}

func TestKeyedDetector_BoundedRecall(t *testing.T) {
	fillers := []string{
		"Gold prices climb again today on weak dollar",
		"Oil futures slide after inventory report surprise",
	}

	tests := []struct {
		name      string
		limit     int
		duplicate bool
	}{
		{name: "original outside the scan cap", limit: 2, duplicate: false},
		{name: "original inside the scan cap", limit: 3, duplicate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newKeyed(t, testThreshold, tt.limit)
			d.Record(msg(1, textRatesA))

			for i, f := range fillers {
				d.Record(msg(int64(i+2), f))
			}

			assert.Equal(t, tt.duplicate, d.Check(msg(10, textRatesA)).Duplicate)
		})
	}
}

func TestKeyedDetector_EvictsExpired(t *testing.T) {
	d := newKeyed(t, testThreshold, DefaultCandidateLimit)

	old := domain.Message{ID: 1, Text: textRatesA, Date: testNow.Add(-2 * time.Hour)}
	d.Seed(old)

	assert.Zero(t, d.Size())
	assert.False(t, d.Check(msg(2, textRatesA)).Duplicate)
}

func TestNew(t *testing.T) {
	window := NewWindow(time.Hour, testMaxSize, fixedClock(testNow))
	kb := newTestKeyBuilder(t)

	d, err := New(Options{Strategy: StrategyThreshold, Threshold: testThreshold}, window, kb)
	require.NoError(t, err)
	assert.Equal(t, StrategyThreshold, d.Name())

	d, err = New(Options{Threshold: testThreshold}, window, kb)
	require.NoError(t, err)
	assert.Equal(t, StrategyKeyed, d.Name())

	_, err = New(Options{Strategy: "fuzzy"}, window, kb)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}
