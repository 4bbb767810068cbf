package db

import (
	"fmt"
	"io"
	"time"

	"github.com/nickyhof/BatchDB/core"
)

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

// Display writes one statement outcome the way the shell prints it: a
// table for row sets followed by a one-line summary.
func Display(w io.Writer, outcome core.Outcome, elapsed time.Duration) {
	if !outcome.IsSuccess() {
		fmt.Fprintf(w, "Error (code %d): %s\n", outcome.Failure.Code, outcome.Failure.Message)
		return
	}

	result := outcome.Result
	if result.Rows != nil {
		if len(result.Rows) > 0 {
			table := NewTable(w)
			table.Append(result.Rows...)
			table.Render()
		}
		fmt.Fprintf(w, "%d rows (%s)\n", len(result.Rows), formatDuration(elapsed))
		return
	}

	summary := "OK"
	if result.RowsAffected != nil && *result.RowsAffected > 0 {
		summary = fmt.Sprintf("%d row(s) affected", *result.RowsAffected)
	}
	if result.InsertID != nil {
		summary += fmt.Sprintf(", insert id %d", *result.InsertID)
	}
	fmt.Fprintf(w, "%s (%s)\n", summary, formatDuration(elapsed))
}
