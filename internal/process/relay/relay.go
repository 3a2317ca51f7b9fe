// Package relay drives messages from the source channel to the destination:
// blacklist, duplicate check, ad stripping, delivery and bookkeeping.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/core/ports"
	"github.com/lueurxax/telegram-relay/internal/output/report"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
	"github.com/lueurxax/telegram-relay/internal/platform/worker"
	"github.com/lueurxax/telegram-relay/internal/process/dedup"
	"github.com/lueurxax/telegram-relay/internal/process/filters"
)

const (
	previewRunes          = 80
	journalTimeout        = 5 * time.Second
	defaultForwardHistory = 100
	reasonDuplicate       = "duplicate"
	reasonPanic           = "panic"
)

// Config tunes the relay loop.
type Config struct {
	RunID               string
	CleanForwardedText  bool
	ForwardDelay        time.Duration
	MaxForwardedHistory int
	// StatsEvery logs a snapshot after every N forwards. Zero disables.
	StatsEvery    int
	HistoryWindow time.Duration
	HistoryLimit  int
}

// Option customizes a Relay.
type Option func(*Relay)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

// Relay processes messages strictly one at a time.
type Relay struct {
	cfg       Config
	detector  dedup.Detector
	stripper  *filters.Stripper
	blacklist *filters.Blacklist
	deliverer ports.Deliverer
	journal   ports.Journal
	logger    *zerolog.Logger
	now       func() time.Time

	// mu serializes message handling; the detector is not concurrency safe.
	mu sync.Mutex

	statsMu   sync.Mutex
	stats     domain.Stats
	forwarded []domain.ForwardRecord
}

// New builds a Relay. A nil stripper forwards natively, a nil blacklist
// filters nothing and a nil journal discards decisions.
func New(
	cfg Config,
	detector dedup.Detector,
	stripper *filters.Stripper,
	blacklist *filters.Blacklist,
	deliverer ports.Deliverer,
	journal ports.Journal,
	logger *zerolog.Logger,
	opts ...Option,
) *Relay {
	if cfg.MaxForwardedHistory <= 0 {
		cfg.MaxForwardedHistory = defaultForwardHistory
	}

	if journal == nil {
		journal = ports.NopJournal{}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	r := &Relay{
		cfg:       cfg,
		detector:  detector,
		stripper:  stripper,
		blacklist: blacklist,
		deliverer: deliverer,
		journal:   journal,
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.stats.StartedAt = r.now()

	return r
}

// Run handles messages from src until the stream closes or ctx is canceled.
// A message already being handled is finished before Run returns.
func (r *Relay) Run(ctx context.Context, src ports.MessageSource) error {
	msgs := src.Messages()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			r.Handle(ctx, msg)
		}
	}
}

// LoadHistory seeds the duplicate window with source messages from the last
// HistoryWindow. Failures are logged and leave the window as it was.
func (r *Relay) LoadHistory(ctx context.Context, src ports.MessageSource) int {
	since := r.now().Add(-r.cfg.HistoryWindow)

	msgs, err := src.History(ctx, since, r.cfg.HistoryLimit)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Could not load channel history, starting with an empty window")

		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seeded := 0

	for _, m := range msgs {
		if m.Text == "" {
			continue
		}

		r.detector.Seed(m)
		seeded++
	}

	size := r.detector.Size()
	r.update(func(s *domain.Stats) { s.CacheSize = size })

	observability.HistoryLoaded.Add(float64(seeded))
	observability.CacheSize.Set(float64(size))

	r.logger.Info().Int("loaded", seeded).Int("cache_size", size).Msg("Loaded channel history")

	return seeded
}

// Handle classifies and, when appropriate, relays one message.
func (r *Relay) Handle(ctx context.Context, msg domain.Message) (outcome domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer worker.RecoverPanicWith(r.logger, "handle message", func(any) {
		r.update(func(s *domain.Stats) { s.Errors++ })
		r.finish(ctx, msg, domain.OutcomeFailed, reasonPanic, domain.Evidence{}, 0, 0)
		outcome = domain.OutcomeFailed
	})

	r.update(func(s *domain.Stats) { s.Received++ })
	observability.MessagesReceived.Inc()

	if r.blacklist != nil {
		if hit, reason := r.blacklist.Match(msg.Text); hit {
			r.update(func(s *domain.Stats) { s.Filtered++ })
			r.logSuppressed(msg, reason, domain.Evidence{})

			return r.finish(ctx, msg, domain.OutcomeFiltered, reason, domain.Evidence{}, 0, 0)
		}
	}

	verdict := r.detector.Check(msg)
	if verdict.Duplicate {
		r.update(func(s *domain.Stats) { s.Duplicates++ })
		observability.DuplicateSimilarity.WithLabelValues(r.detector.Name()).Observe(verdict.Evidence.Similarity)
		r.logSuppressed(msg, reasonDuplicate, verdict.Evidence)

		return r.finish(ctx, msg, domain.OutcomeDuplicate, reasonDuplicate, verdict.Evidence, 0, 0)
	}

	delivery, removed := r.prepare(msg)
	if delivery.Cleaned && delivery.Text == "" && msg.Text != "" {
		r.update(func(s *domain.Stats) {
			s.Promotional++
			s.CharsRemoved += removed
		})
		observability.CharsRemoved.Add(float64(removed))
		reason := apperrors.ErrPromotionalOnly.Error()
		r.logSuppressed(msg, reason, domain.Evidence{})

		return r.finish(ctx, msg, domain.OutcomePromotional, reason, domain.Evidence{}, 0, removed)
	}

	// In-flight delivery survives shutdown so the message is not half-handled.
	if err := r.deliverer.Deliver(context.WithoutCancel(ctx), delivery); err != nil {
		r.update(func(s *domain.Stats) { s.Errors++ })
		r.logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Failed to relay message")

		return r.finish(ctx, msg, domain.OutcomeFailed, err.Error(), domain.Evidence{}, 0, 0)
	}

	forwardedAt := r.now()
	delay := max(forwardedAt.Sub(msg.Date), 0)

	r.detector.Record(msg)

	var forwards int

	r.update(func(s *domain.Stats) {
		s.Forwarded++
		s.TotalDelay += delay
		s.CharsRemoved += removed
		forwards = s.Forwarded
	})
	r.remember(domain.ForwardRecord{
		ID:           msg.ID,
		Timestamp:    msg.Date,
		ForwardedAt:  forwardedAt,
		Delay:        delay,
		OriginalText: msg.Text,
		CleanedText:  delivery.Text,
		Cleaned:      delivery.Cleaned,
		CharsRemoved: removed,
	})

	observability.ForwardDelaySeconds.Observe(delay.Seconds())
	observability.CharsRemoved.Add(float64(removed))

	ev := r.logger.Info().
		Int64("msg_id", msg.ID).
		Str("delay", report.FormatDelay(delay))
	if delivery.Cleaned {
		ev = ev.Int("chars_removed", removed)
	}

	ev.Msg("Relayed message")

	outcome = r.finish(ctx, msg, domain.OutcomeForwarded, "", domain.Evidence{}, delay, removed)

	if r.cfg.StatsEvery > 0 && forwards%r.cfg.StatsEvery == 0 {
		report.LogSnapshot(r.logger, r.Stats(), r.cleaning(), r.now())
	}

	// Pacing only; shutdown cuts it short.
	_ = worker.Wait(ctx, r.cfg.ForwardDelay)

	return outcome
}

// Stats returns a snapshot of the counters.
func (r *Relay) Stats() domain.Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	return r.stats
}

// Forwarded returns the retained forward records, oldest first.
func (r *Relay) Forwarded() []domain.ForwardRecord {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	out := make([]domain.ForwardRecord, len(r.forwarded))
	copy(out, r.forwarded)

	return out
}

// Strategy names the duplicate detection strategy in use.
func (r *Relay) Strategy() string {
	return r.detector.Name()
}

func (r *Relay) cleaning() bool {
	return r.stripper != nil && r.stripper.Enabled()
}

func (r *Relay) prepare(msg domain.Message) (domain.Delivery, int) {
	if !r.cleaning() {
		return domain.Delivery{Message: msg}, 0
	}

	cleaned, removed := r.stripper.Strip(msg.Text)

	return domain.Delivery{Message: msg, Text: cleaned, Cleaned: true}, removed
}

func (r *Relay) finish(
	ctx context.Context,
	msg domain.Message,
	outcome domain.Outcome,
	reason string,
	evidence domain.Evidence,
	delay time.Duration,
	removed int,
) domain.Outcome {
	size := r.detector.Size()
	r.update(func(s *domain.Stats) { s.CacheSize = size })

	observability.CacheSize.Set(float64(size))
	observability.MessagesHandled.WithLabelValues(string(outcome)).Inc()

	decision := domain.Decision{
		RunID:        r.cfg.RunID,
		MessageID:    msg.ID,
		Outcome:      outcome,
		Reason:       reason,
		Similarity:   evidence.Similarity,
		MatchedID:    evidence.MatchedID,
		Delay:        delay,
		CharsRemoved: removed,
		DecidedAt:    r.now(),
	}

	err := worker.RunWithTimeout(context.WithoutCancel(ctx), journalTimeout, func(ctx context.Context) error {
		return r.journal.RecordDecision(ctx, decision)
	})
	if err != nil {
		observability.JournalErrors.Inc()
		r.logger.Warn().Err(err).Int64("msg_id", msg.ID).Msg("Failed to journal relay decision")
	}

	return outcome
}

func (r *Relay) logSuppressed(msg domain.Message, reason string, evidence domain.Evidence) {
	ev := r.logger.Warn().
		Str("reason", reason).
		Int64("msg_id", msg.ID).
		Str("preview", report.Preview(msg.Text, previewRunes))

	if evidence.MatchedID != 0 {
		ev = ev.Float64("similarity", evidence.Similarity).
			Int64("duplicate_of", evidence.MatchedID).
			Str("matched_at", evidence.MatchedAt.Format(time.RFC3339))
	}

	if evidence.Key != "" {
		ev = ev.Str("key", evidence.Key)
	}

	ev.Msg("Suppressed message")
}

func (r *Relay) update(fn func(s *domain.Stats)) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	fn(&r.stats)
}

func (r *Relay) remember(rec domain.ForwardRecord) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	r.forwarded = append(r.forwarded, rec)

	if len(r.forwarded) > r.cfg.MaxForwardedHistory {
		keep := r.cfg.MaxForwardedHistory / 2
		r.forwarded = append([]domain.ForwardRecord(nil), r.forwarded[len(r.forwarded)-keep:]...)
	}
}
