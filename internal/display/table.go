package display

import (
	"github.com/WarrickSmith/raceday/internal/health"
)

// FeedTableHeader is the column header row for [FeedRows].
var FeedTableHeader = []string{"Feed", "Polls", "Errors", "Error rate", "Avg", "Max", "Health", "Last polled"}

// FeedRows renders the per-feed statistics of a snapshot as table rows.
//
// An empty snapshot yields a single placeholder row so the monitor always
// has something to display. FeedRows never panics, whatever the snapshot
// contains.
func FeedRows(snap health.Snapshot) [][]string {
	if len(snap.Feeds) == 0 {
		return [][]string{placeholderRow(len(FeedTableHeader))}
	}

	rows := make([][]string, 0, len(snap.Feeds))
	for _, fs := range snap.Feeds {
		healthCell := fs.LastHealth
		if healthCell == "" {
			healthCell = Placeholder
		}
		rows = append(rows, []string{
			fs.Name,
			FormatCount(fs.Requests),
			FormatCount(fs.Errors),
			FormatPercent(fs.ErrorRate),
			FormatLatency(fs.AvgLatencyMs),
			FormatLatency(fs.MaxLatencyMs),
			healthCell,
			FormatClock(fs.LastPolledAt),
		})
	}
	return rows
}

// ErrorRateTableHeader is the column header row for [ErrorRateRows].
var ErrorRateTableHeader = []string{"Feed", "Error rate", "Last error"}

// ErrorRateRows renders the per-feed error rates of a snapshot as table
// rows, for the compact error view of the monitor.
//
// An empty snapshot yields a single placeholder row. ErrorRateRows never
// panics.
func ErrorRateRows(snap health.Snapshot) [][]string {
	if len(snap.Feeds) == 0 {
		return [][]string{placeholderRow(len(ErrorRateTableHeader))}
	}

	rows := make([][]string, 0, len(snap.Feeds))
	for _, fs := range snap.Feeds {
		lastErr := fs.LastError
		if lastErr == "" {
			lastErr = Placeholder
		}
		rows = append(rows, []string{fs.Name, FormatPercent(fs.ErrorRate), lastErr})
	}
	return rows
}

// placeholderRow returns a row of placeholders of the given width.
func placeholderRow(width int) []string {
	row := make([]string, width)
	for i := range row {
		row[i] = Placeholder
	}
	return row
}
