// Package report renders relay statistics for operators: periodic snapshots
// in the log and a plain-text final report written on shutdown.
package report

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

const (
	secondsPerMinute = 60
	minutesPerHour   = 60
)

// FormatDelay renders a forward delay for humans:
// "<1 ms", "N ms", "N.N s", "M min SS s" or "H h MM min".
func FormatDelay(d time.Duration) string {
	switch {
	case d < 0:
		return "0 ms"
	case d < time.Millisecond:
		return "<1 ms"
	case d < time.Second:
		return fmt.Sprintf("%.0f ms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.1f s", d.Seconds())
	case d < time.Hour:
		total := int(d.Seconds())

		return fmt.Sprintf("%d min %02d s", total/secondsPerMinute, total%secondsPerMinute)
	default:
		total := int(d.Minutes())

		return fmt.Sprintf("%d h %02d min", total/minutesPerHour, total%minutesPerHour)
	}
}

// FormatPercentage renders a ratio in [0,1] as a percentage.
func FormatPercentage(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}

	return fmt.Sprintf("%.*f%%", decimals, v*100)
}

// FormatUptime renders an uptime as "Hh Mm".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(math.Floor(d.Hours()))
	m := int(d.Minutes()) % minutesPerHour

	return fmt.Sprintf("%dh %dm", h, m)
}

// Preview cuts s to at most n runes, appending "..." when it was cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)

	return string(r[:n]) + "..."
}
