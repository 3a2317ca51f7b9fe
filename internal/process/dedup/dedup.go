// Package dedup decides whether a message repeats one seen recently.
//
// Two strategies are available:
//   - threshold: Jaccard similarity of normalized words against every cached
//     message; similarity >= threshold is a duplicate. Unique messages are
//     cached at check time.
//   - keyed: comparison keys narrow the newest cached messages to candidates,
//     then a sequence ratio > threshold is a duplicate. Messages are cached only
//     after the caller has delivered them.
//
// A message is never compared with its own cache entry, so a post seeded from
// history and then received live is still relayed.
//
// Detectors are not safe for concurrent use; callers serialize Check and Record.
package dedup

import (
	"fmt"
	"unicode/utf8"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/process/normalize"
)

// Strategy names.
const (
	StrategyThreshold = "threshold"
	StrategyKeyed     = "keyed"
)

const (
	// DefaultCandidateLimit bounds the keyed scan to the newest cached messages.
	DefaultCandidateLimit = 50
	evidenceKeyLength     = 50
)

// Detector classifies messages against recent history.
type Detector interface {
	// Check classifies msg. It never fails.
	Check(msg domain.Message) domain.Verdict
	// Record caches msg after it has been delivered. It is a no-op for
	// strategies that cache during Check.
	Record(msg domain.Message)
	// Seed caches a historical message without classifying it.
	Seed(msg domain.Message)
	// RecordsOnCheck reports whether Check already caches unique messages.
	RecordsOnCheck() bool
	// Name returns the strategy name.
	Name() string
	// Size returns the number of cached messages.
	Size() int
}

// Options configures a Detector.
type Options struct {
	Strategy       string
	Threshold      float64
	CandidateLimit int
}

// New builds the detector named by opts.Strategy.
func New(opts Options, window *Window, keys *KeyBuilder) (Detector, error) {
	switch opts.Strategy {
	case StrategyThreshold:
		return NewThresholdDetector(window, opts.Threshold), nil
	case StrategyKeyed, "":
		return NewKeyedDetector(window, keys, opts.Threshold, opts.CandidateLimit), nil
	default:
		return nil, fmt.Errorf("%w: unknown dedup strategy %q", apperrors.ErrInvalidConfig, opts.Strategy)
	}
}

type thresholdDetector struct {
	window    *Window
	threshold float64
}

// NewThresholdDetector creates the Jaccard strategy. The first cached message,
// oldest first, with similarity >= threshold wins.
func NewThresholdDetector(window *Window, threshold float64) Detector {
	return &thresholdDetector{window: window, threshold: threshold}
}

func (d *thresholdDetector) Check(msg domain.Message) domain.Verdict {
	d.window.Evict(d.window.Now())

	normalized := normalize.Text(msg.Text)
	if normalized == "" {
		return domain.Verdict{}
	}

	for _, e := range d.window.Entries() {
		if e.ID == msg.ID {
			continue
		}

		similarity := Jaccard(normalized, e.Normalized)
		if similarity >= d.threshold {
			return domain.Verdict{
				Duplicate: true,
				Evidence: domain.Evidence{
					Similarity:  similarity,
					MatchedID:   e.ID,
					MatchedAt:   e.Timestamp,
					MatchedText: e.Text,
				},
			}
		}
	}

	d.record(msg, normalized)

	return domain.Verdict{}
}

func (d *thresholdDetector) Record(domain.Message) {}

func (d *thresholdDetector) Seed(msg domain.Message) {
	normalized := normalize.Text(msg.Text)
	if normalized == "" {
		return
	}

	d.record(msg, normalized)
}

func (d *thresholdDetector) record(msg domain.Message, normalized string) {
	if d.window.Contains(msg.ID) {
		return
	}

	d.window.Record(Entry{
		ID:         msg.ID,
		Timestamp:  msg.Date,
		Text:       msg.Text,
		Normalized: normalized,
	})
}

func (d *thresholdDetector) RecordsOnCheck() bool { return true }

func (d *thresholdDetector) Name() string { return StrategyThreshold }

func (d *thresholdDetector) Size() int { return d.window.Len() }

type keyedDetector struct {
	window    *Window
	keys      *KeyBuilder
	scorer    Scorer
	threshold float64
	limit     int
}

// NewKeyedDetector creates the key-assisted strategy. Only the newest limit
// cached messages are scanned, newest first; an older repeat is reported as
// unique.
func NewKeyedDetector(window *Window, keys *KeyBuilder, threshold float64, limit int) Detector {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	return &keyedDetector{
		window:    window,
		keys:      keys,
		scorer:    NewScorer(AlgorithmSequence, keys.Clean),
		threshold: threshold,
		limit:     limit,
	}
}

func (d *keyedDetector) Check(msg domain.Message) domain.Verdict {
	d.window.Evict(d.window.Now())

	key := d.keys.Build(msg.Text)
	if key == "" {
		return domain.Verdict{}
	}

	for _, e := range d.window.Newest(d.limit) {
		if e.ID == msg.ID || e.Key == "" || e.Key != key {
			continue
		}

		similarity := d.scorer.Score(msg.Text, e.Text)
		if similarity > d.threshold {
			return domain.Verdict{
				Duplicate: true,
				Evidence: domain.Evidence{
					Similarity:  similarity,
					MatchedID:   e.ID,
					MatchedAt:   e.Timestamp,
					MatchedText: e.Text,
					Key:         truncateRunes(key, evidenceKeyLength),
				},
			}
		}
	}

	return domain.Verdict{}
}

func (d *keyedDetector) Record(msg domain.Message) {
	if d.window.Contains(msg.ID) {
		return
	}

	d.window.Record(Entry{
		ID:        msg.ID,
		Timestamp: msg.Date,
		Text:      msg.Text,
		Key:       d.keys.Build(msg.Text),
	})
}

func (d *keyedDetector) Seed(msg domain.Message) {
	d.Record(msg)
}

func (d *keyedDetector) RecordsOnCheck() bool { return false }

func (d *keyedDetector) Name() string { return StrategyKeyed }

func (d *keyedDetector) Size() int { return d.window.Len() }

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)

	return string(r[:n])
}
