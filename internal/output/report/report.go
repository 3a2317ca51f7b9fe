package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

const (
	borderWidth     = 60
	sectionWidth    = 40
	previewRunes    = 80
	timeLayout      = "2006-01-02 15:04:05"
	shortTimeLayout = "15:04:05"
	fileTimeLayout  = "20060102_150405"
	reportFileExt   = ".txt"
)

// Meta describes the run in the final report.
type Meta struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Source     string
	Target     string
	Window     time.Duration
	Threshold  float64
	Strategy   string
	Cleaning   bool
	MaxCache   int
}

// LogSnapshot writes a statistics snapshot as one structured log line.
func LogSnapshot(logger *zerolog.Logger, s domain.Stats, cleaning bool, now time.Time) {
	ev := logger.Info().
		Str("uptime", FormatUptime(now.Sub(s.StartedAt))).
		Int("received", s.Received).
		Int("duplicates", s.Duplicates).
		Int("forwarded", s.Forwarded).
		Int("errors", s.Errors).
		Int("filtered", s.Filtered).
		Int("promotional", s.Promotional).
		Int("cache_size", s.CacheSize).
		Str("avg_delay", FormatDelay(s.AverageDelay()))

	if cleaning {
		ev = ev.Int("chars_removed", s.CharsRemoved)
	}

	if s.Received > 0 {
		ev = ev.Str("duplicate_ratio", FormatPercentage(s.DuplicateRatio(), 1))
	}

	ev.Msg("Relay statistics")
}

// WriteFinal renders the final report. At most lastN of the newest records
// are listed.
func WriteFinal(w io.Writer, meta Meta, s domain.Stats, records []domain.ForwardRecord, lastN int) error {
	var sb strings.Builder

	border := strings.Repeat("=", borderWidth)
	section := strings.Repeat("-", sectionWidth)

	fmt.Fprintf(&sb, "%s\nRELAY REPORT\n%s\n\n", border, border)

	fmt.Fprintf(&sb, "RUN:\n%s\n", section)
	fmt.Fprintf(&sb, "Run ID: %s\n", meta.RunID)
	fmt.Fprintf(&sb, "Started: %s\n", meta.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Finished: %s\n", meta.FinishedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Source channel: %s\n", meta.Source)
	fmt.Fprintf(&sb, "Target channel: %s\n", meta.Target)
	fmt.Fprintf(&sb, "Duplicate window: %s\n", meta.Window)
	fmt.Fprintf(&sb, "Similarity threshold: %v\n", meta.Threshold)
	fmt.Fprintf(&sb, "Dedup strategy: %s\n", meta.Strategy)
	fmt.Fprintf(&sb, "Ad cleaning: %s\n", onOff(meta.Cleaning))

	if meta.MaxCache > 0 {
		fmt.Fprintf(&sb, "Max cache size: %d\n", meta.MaxCache)
	}

	sb.WriteString("\n")

	writeStats(&sb, s, meta.Cleaning, section)
	writeRecords(&sb, records, lastN)

	fmt.Fprintf(&sb, "\n%s\nEND OF REPORT\n%s\n", border, border)

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}

func writeStats(sb *strings.Builder, s domain.Stats, cleaning bool, section string) {
	fmt.Fprintf(sb, "STATISTICS:\n%s\n", section)
	fmt.Fprintf(sb, "Messages received: %d\n", s.Received)
	fmt.Fprintf(sb, "Duplicates found: %d\n", s.Duplicates)
	fmt.Fprintf(sb, "Unique forwarded: %d\n", s.Forwarded)
	fmt.Fprintf(sb, "Blacklisted: %d\n", s.Filtered)
	fmt.Fprintf(sb, "Promotional only: %d\n", s.Promotional)
	fmt.Fprintf(sb, "Forward errors: %d\n", s.Errors)

	if s.Forwarded > 0 {
		fmt.Fprintf(sb, "Average forward delay: %s\n", FormatDelay(s.AverageDelay()))
	}

	if cleaning {
		fmt.Fprintf(sb, "Ad characters removed: %d\n", s.CharsRemoved)

		if s.Forwarded > 0 {
			fmt.Fprintf(sb, "Average per message: %.1f characters\n", s.AverageCharsRemoved())
		}
	}

	if s.Received > 0 {
		fmt.Fprintf(sb, "Duplicate ratio: %s\n", FormatPercentage(s.DuplicateRatio(), 1))
		fmt.Fprintf(sb, "Filtering efficiency: %s\n", FormatPercentage(s.FilteringEfficiency(), 1))
	}

	sb.WriteString("\n")
}

func writeRecords(sb *strings.Builder, records []domain.ForwardRecord, lastN int) {
	if len(records) == 0 {
		return
	}

	if lastN > 0 && len(records) > lastN {
		records = records[len(records)-lastN:]
	}

	fmt.Fprintf(sb, "LAST FORWARDED MESSAGES:\n%s\n", strings.Repeat("-", borderWidth))

	for _, r := range records {
		forwarded := "N/A"
		if !r.ForwardedAt.IsZero() {
			forwarded = r.ForwardedAt.Format(shortTimeLayout)
		}

		fmt.Fprintf(sb, "[%s] -> [%s] | Delay: %s\n", r.Timestamp.Format(shortTimeLayout), forwarded, FormatDelay(r.Delay))
		fmt.Fprintf(sb, "ID: %d\n", r.ID)

		if r.Cleaned {
			fmt.Fprintf(sb, "Text (cleaned): %s\n", Preview(r.CleanedText, previewRunes))

			if r.CharsRemoved > 0 {
				fmt.Fprintf(sb, "Characters removed: %d\n", r.CharsRemoved)
			}
		} else {
			fmt.Fprintf(sb, "Text: %s\n", Preview(r.OriginalText, previewRunes))
		}

		fmt.Fprintf(sb, "%s\n", strings.Repeat("-", sectionWidth))
	}
}

// FileName returns the report file name for a run finishing at t.
func FileName(prefix string, t time.Time) string {
	return prefix + t.Format(fileTimeLayout) + reportFileExt
}

// SaveFinal writes the final report into dir and returns its path.
func SaveFinal(dir, prefix string, meta Meta, s domain.Stats, records []domain.ForwardRecord, lastN int) (string, error) {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	path := filepath.Join(dir, FileName(prefix, meta.FinishedAt))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}

	if err := WriteFinal(f, meta, s, records, lastN); err != nil {
		_ = f.Close()

		return "", err
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing report file: %w", err)
	}

	return path, nil
}

func onOff(v bool) string {
	if v {
		return "ON"
	}

	return "OFF"
}
