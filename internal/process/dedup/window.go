package dedup

import (
	"time"
)

// Entry is a message remembered by the Window.
type Entry struct {
	ID        int64
	Timestamp time.Time
	// Text is the original message text, reported as evidence.
	Text string
	// Normalized is the comparison form used by the threshold strategy.
	Normalized string
	// Key is the comparison key used by the keyed strategy.
	Key string
}

// Window is a time- and size-bounded store of recent messages, oldest first.
// It is not safe for concurrent use.
type Window struct {
	window  time.Duration
	maxSize int
	now     func() time.Time
	entries []Entry
}

// NewWindow creates a Window. A nil clock uses time.Now.
func NewWindow(window time.Duration, maxSize int, clock func() time.Time) *Window {
	if clock == nil {
		clock = time.Now
	}

	return &Window{
		window:  window,
		maxSize: maxSize,
		now:     clock,
	}
}

// Record appends e and prunes the window.
func (w *Window) Record(e Entry) {
	w.entries = append(w.entries, e)
	w.Evict(w.now())
}

// Evict drops entries with Timestamp <= now-window. If more than maxSize
// entries remain, only the newest maxSize/2 are kept.
// It returns the number of entries removed.
func (w *Window) Evict(now time.Time) int {
	before := len(w.entries)
	cutoff := now.Add(-w.window)

	kept := w.entries[:0]

	for _, e := range w.entries {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}

	clear(w.entries[len(kept):])
	w.entries = kept

	if w.maxSize > 0 && len(w.entries) > w.maxSize {
		keep := w.maxSize / 2
		trimmed := make([]Entry, keep)
		copy(trimmed, w.entries[len(w.entries)-keep:])
		w.entries = trimmed
	}

	return before - len(w.entries)
}

// Newest returns up to n entries, newest first. n <= 0 returns all of them.
func (w *Window) Newest(n int) []Entry {
	if n <= 0 || n > len(w.entries) {
		n = len(w.entries)
	}

	out := make([]Entry, 0, n)
	for i := len(w.entries) - 1; i >= len(w.entries)-n; i-- {
		out = append(out, w.entries[i])
	}

	return out
}

// Entries returns a copy of every entry, oldest first.
func (w *Window) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)

	return out
}

// Contains reports whether an entry with the given message id is cached.
func (w *Window) Contains(id int64) bool {
	for _, e := range w.entries {
		if e.ID == id {
			return true
		}
	}

	return false
}

// Len returns the number of entries.
func (w *Window) Len() int {
	return len(w.entries)
}

// Now returns the window clock reading.
func (w *Window) Now() time.Time {
	return w.now()
}
