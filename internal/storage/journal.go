package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

const insertDecisionSQL = `
INSERT INTO relay_decisions (
    id, run_id, message_id, outcome, reason, similarity, matched_id, delay_ms, chars_removed, decided_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const upsertRunSQL = `
INSERT INTO relay_runs (
    id, source_channel, target_channel, strategy, threshold, started_at, finished_at,
    received, duplicates, forwarded, errors, filtered, promotional, chars_removed, avg_delay_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
    finished_at = EXCLUDED.finished_at,
    received = EXCLUDED.received,
    duplicates = EXCLUDED.duplicates,
    forwarded = EXCLUDED.forwarded,
    errors = EXCLUDED.errors,
    filtered = EXCLUDED.filtered,
    promotional = EXCLUDED.promotional,
    chars_removed = EXCLUDED.chars_removed,
    avg_delay_ms = EXCLUDED.avg_delay_ms`

// RunSummary is the journal row describing one relay run.
type RunSummary struct {
	RunID      string
	Source     string
	Target     string
	Strategy   string
	Threshold  float64
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      domain.Stats
}

// RecordDecision appends one handled message to the journal.
func (db *DB) RecordDecision(ctx context.Context, d domain.Decision) error {
	_, err := db.exec.Exec(ctx, insertDecisionSQL,
		pgtype.UUID{Bytes: uuid.New(), Valid: true},
		d.RunID,
		d.MessageID,
		string(d.Outcome),
		toText(d.Reason),
		toFloat4(d.Similarity, d.Outcome == domain.OutcomeDuplicate),
		toInt8(d.MatchedID),
		pgtype.Int8{Int64: d.Delay.Milliseconds(), Valid: d.Outcome == domain.OutcomeForwarded},
		toInt4(d.CharsRemoved),
		toTimestamptz(d.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("insert relay decision: %w", err)
	}

	return nil
}

// RecordRun stores the run summary, replacing counters of an earlier write
// for the same run.
func (db *DB) RecordRun(ctx context.Context, s RunSummary) error {
	_, err := db.exec.Exec(ctx, upsertRunSQL,
		s.RunID,
		toText(s.Source),
		toText(s.Target),
		s.Strategy,
		toFloat4(s.Threshold, true),
		toTimestamptz(s.StartedAt),
		toTimestamptz(s.FinishedAt),
		toInt4(s.Stats.Received),
		toInt4(s.Stats.Duplicates),
		toInt4(s.Stats.Forwarded),
		toInt4(s.Stats.Errors),
		toInt4(s.Stats.Filtered),
		toInt4(s.Stats.Promotional),
		toInt4(s.Stats.CharsRemoved),
		s.Stats.AverageDelay().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert relay run: %w", err)
	}

	return nil
}
