// Package export renders the finalized segment log as a flat text report.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"live-transcript-service/internal/models"
)

// ContentType is the MIME type of the report.
const ContentType = "text/plain; charset=utf-8"

// Line formats one segment:
//
//	[<timestamp>] Speaker <id> (<confidence%>% confidence, <duration>s): <text>
func Line(s models.Segment) string {
	return fmt.Sprintf("[%s] Speaker %s (%.1f%% confidence, %.2fs): %s",
		s.Timestamp(), s.Speaker, s.Confidence*100, s.Duration, s.Text)
}

// Render returns the report for segments, one line per segment, in log order.
func Render(segments []models.Segment) string {
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = Line(s)
	}
	return strings.Join(lines, "\n")
}

// Write writes the report to w.
func Write(w io.Writer, segments []models.Segment) error {
	_, err := io.WriteString(w, Render(segments))
	if err != nil {
		return fmt.Errorf("write transcript report: %w", err)
	}
	return nil
}

// FileName returns the suggested download name for a report produced at t.
func FileName(t time.Time) string {
	return "transcription-enhanced-" + t.Format("2006-01-02") + ".txt"
}
