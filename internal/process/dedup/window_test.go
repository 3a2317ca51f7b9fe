package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestWindow_EvictByAge(t *testing.T) {
	w := NewWindow(time.Hour, 100, fixedClock(testNow))

	w.Record(Entry{ID: 1, Timestamp: testNow.Add(-2 * time.Hour)})
	w.Record(Entry{ID: 2, Timestamp: testNow.Add(-time.Hour)})
	w.Record(Entry{ID: 3, Timestamp: testNow.Add(-30 * time.Minute)})
	w.Record(Entry{ID: 4, Timestamp: testNow})

	entries := w.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].ID)
	assert.Equal(t, int64(4), entries[1].ID)

	cutoff := testNow.Add(-time.Hour)
	for _, e := range entries {
		assert.True(t, e.Timestamp.After(cutoff))
	}
}

func TestWindow_EvictLater(t *testing.T) {
	w := NewWindow(time.Hour, 100, fixedClock(testNow))
	w.Record(Entry{ID: 1, Timestamp: testNow.Add(-50 * time.Minute)})
	w.Record(Entry{ID: 2, Timestamp: testNow.Add(-5 * time.Minute)})

	removed := w.Evict(testNow.Add(10 * time.Minute))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, int64(2), w.Entries()[0].ID)
}

func TestWindow_Overflow(t *testing.T) {
	const maxSize = 4

	w := NewWindow(time.Hour, maxSize, fixedClock(testNow))

	for i := 1; i <= maxSize; i++ {
		w.Record(Entry{ID: int64(i), Timestamp: testNow})
	}

	require.Equal(t, maxSize, w.Len())

	w.Record(Entry{ID: maxSize + 1, Timestamp: testNow})

	entries := w.Entries()
	require.Len(t, entries, maxSize/2)
	assert.Equal(t, int64(4), entries[0].ID)
	assert.Equal(t, int64(5), entries[1].ID)
}

func TestWindow_OverflowOddMaxSize(t *testing.T) {
	w := NewWindow(time.Hour, 5, fixedClock(testNow))

	for i := 1; i <= 6; i++ {
		w.Record(Entry{ID: int64(i), Timestamp: testNow})
	}

	assert.Equal(t, 2, w.Len())
}

func TestWindow_Newest(t *testing.T) {
	w := NewWindow(time.Hour, 100, fixedClock(testNow))
	for i := 1; i <= 5; i++ {
		w.Record(Entry{ID: int64(i), Timestamp: testNow})
	}

	newest := w.Newest(3)
	require.Len(t, newest, 3)
	assert.Equal(t, []int64{5, 4, 3}, ids(newest))

	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids(w.Newest(0)))
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids(w.Newest(50)))
}

func TestWindow_Contains(t *testing.T) {
	w := NewWindow(time.Hour, 10, fixedClock(testNow))
	w.Record(Entry{ID: 3, Timestamp: testNow})

	assert.True(t, w.Contains(3))
	assert.False(t, w.Contains(4))
}

func TestWindow_EmptyNewest(t *testing.T) {
	w := NewWindow(time.Hour, 10, nil)

	assert.Empty(t, w.Newest(5))
	assert.Zero(t, w.Len())
}

func ids(entries []Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}

	return out
}
