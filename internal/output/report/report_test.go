package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

var testFinished = time.Date(2025, 3, 14, 18, 30, 5, 0, time.UTC)

func TestFormatDelay(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Duration
		expected string
	}{
		{name: "negative", in: -time.Second, expected: "0 ms"},
		{name: "zero", in: 0, expected: "<1 ms"},
		{name: "sub millisecond", in: 500 * time.Microsecond, expected: "<1 ms"},
		{name: "milliseconds", in: 250 * time.Millisecond, expected: "250 ms"},
		{name: "seconds", in: 12345 * time.Millisecond, expected: "12.3 s"},
		{name: "minutes", in: 3*time.Minute + 7*time.Second, expected: "3 min 07 s"},
		{name: "hours", in: 2*time.Hour + 5*time.Minute + 59*time.Second, expected: "2 h 05 min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDelay(tt.in))
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "12.5%", FormatPercentage(0.125, 1))
	assert.Equal(t, "100%", FormatPercentage(1, 0))
	assert.Equal(t, "0.00%", FormatPercentage(0, 2))
	assert.Equal(t, "50%", FormatPercentage(0.5, -1))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0h 0m", FormatUptime(-time.Minute))
	assert.Equal(t, "1h 30m", FormatUptime(90*time.Minute))
	assert.Equal(t, "26h 1m", FormatUptime(26*time.Hour+time.Minute+30*time.Second))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "абв...", Preview("абвгд", 3))
}

func testMeta() Meta {
	return Meta{
		RunID:      "run-1",
		StartedAt:  testFinished.Add(-2 * time.Hour),
		FinishedAt: testFinished,
		Source:     "@source",
		Target:     "@target",
		Window:     time.Hour,
		Threshold:  0.8,
		Strategy:   "keyed",
		Cleaning:   true,
		MaxCache:   1000,
	}
}

func testRecords(n int) []domain.ForwardRecord {
	records := make([]domain.ForwardRecord, 0, n)

	for i := 1; i <= n; i++ {
		ts := testFinished.Add(-time.Duration(n-i) * time.Minute)
		records = append(records, domain.ForwardRecord{
			ID:           int64(i),
			Timestamp:    ts,
			ForwardedAt:  ts.Add(2 * time.Second),
			Delay:        2 * time.Second,
			OriginalText: "original text " + strings.Repeat("x", 100),
			CleanedText:  "cleaned text",
			Cleaned:      i%2 == 0,
			CharsRemoved: i,
		})
	}

	return records
}

func TestWriteFinal(t *testing.T) {
	stats := domain.Stats{
		Received:     10,
		Duplicates:   2,
		Forwarded:    7,
		Errors:       1,
		TotalDelay:   14 * time.Second,
		CharsRemoved: 35,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFinal(&buf, testMeta(), stats, testRecords(5), 3))

	out := buf.String()
	assert.Contains(t, out, "Run ID: run-1")
	assert.Contains(t, out, "Source channel: @source")
	assert.Contains(t, out, "Ad cleaning: ON")
	assert.Contains(t, out, "Messages received: 10")
	assert.Contains(t, out, "Average forward delay: 2.0 s")
	assert.Contains(t, out, "Average per message: 5.0 characters")
	assert.Contains(t, out, "Duplicate ratio: 20.0%")
	assert.Contains(t, out, "Filtering efficiency: 80.0%")

	assert.NotContains(t, out, "ID: 2\n")
	assert.Contains(t, out, "ID: 3\n")
	assert.Contains(t, out, "ID: 5\n")
	assert.Contains(t, out, "Text (cleaned): cleaned text")
	assert.Contains(t, out, "Characters removed: 4")
	assert.Contains(t, out, "...")
}

func TestWriteFinal_NoMessages(t *testing.T) {
	var buf bytes.Buffer

	meta := testMeta()
	meta.Cleaning = false

	require.NoError(t, WriteFinal(&buf, meta, domain.Stats{}, nil, 20))

	out := buf.String()
	assert.Contains(t, out, "Ad cleaning: OFF")
	assert.NotContains(t, out, "LAST FORWARDED MESSAGES")
	assert.NotContains(t, out, "Duplicate ratio")
	assert.NotContains(t, out, "Ad characters removed")
}

func TestSaveFinal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := SaveFinal(dir, "relay_report_", testMeta(), domain.Stats{Received: 1}, testRecords(1), 20)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "relay_report_20250314_183005.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "RELAY REPORT")
}

func TestLogSnapshot(t *testing.T) {
	var buf bytes.Buffer

	logger := zerolog.New(&buf)
	stats := domain.Stats{Received: 4, Duplicates: 1, Forwarded: 3, StartedAt: testFinished.Add(-time.Hour)}

	LogSnapshot(&logger, stats, true, testFinished)

	out := buf.String()
	assert.Contains(t, out, `"received":4`)
	assert.Contains(t, out, `"duplicate_ratio":"25.0%"`)
	assert.Contains(t, out, `"uptime":"1h 0m"`)
	assert.Contains(t, out, `"chars_removed":0`)
}
