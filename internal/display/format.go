package display

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Placeholder is rendered wherever a value is missing or unrepresentable.
const Placeholder = "—"

// FormatLatency renders a latency in milliseconds for display.
//
// FormatLatency is total: NaN, infinities, and negative values yield
// [Placeholder] rather than an error or panic. Sub-second latencies render
// as whole milliseconds ("245ms"); larger values in seconds ("1.25s").
func FormatLatency(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return Placeholder
	}
	if ms < 1000 {
		return strconv.FormatFloat(ms, 'f', 0, 64) + "ms"
	}
	return strconv.FormatFloat(ms/1000, 'f', 2, 64) + "s"
}

// FormatDuration renders a duration for display.
//
// FormatDuration is total: negative durations yield [Placeholder].
// Durations render at millisecond precision below one second, second
// precision below one minute, and minutes and seconds above that.
func FormatDuration(d time.Duration) string {
	switch {
	case d < 0:
		return Placeholder
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		mins := int(d.Minutes())
		secs := int(d.Seconds()) - mins*60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
}

// FormatPercent renders a rate in [0,1] as a percentage.
//
// FormatPercent is total: NaN, infinities, and negative values yield
// [Placeholder]. Values above 1 are clamped to "100%".
func FormatPercent(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return Placeholder
	}
	if rate > 1 {
		rate = 1
	}
	return strconv.FormatFloat(rate*100, 'f', 1, 64) + "%"
}

// FormatClock renders a timestamp as local wall-clock time.
//
// The zero time yields [Placeholder].
func FormatClock(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Local().Format("15:04:05")
}

// FormatCount renders a counter value.
//
// Negative counts yield [Placeholder]; counters cannot go backwards, so a
// negative value is a rendering bug upstream, not data.
func FormatCount(n int64) string {
	if n < 0 {
		return Placeholder
	}
	return strconv.FormatInt(n, 10)
}
