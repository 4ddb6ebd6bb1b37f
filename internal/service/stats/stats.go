// Package stats computes running aggregates over a segment log.
package stats

import (
	"fmt"
	"strings"
	"time"

	"live-transcript-service/internal/models"
)

// Compute returns the session aggregates for segments. A zero startedAt means
// no session has started and yields a zero duration.
func Compute(segments []models.Segment, startedAt, now time.Time) models.SessionStats {
	var st models.SessionStats

	var totalConfidence float64
	speakers := make(map[string]struct{})
	for _, s := range segments {
		st.TotalWords += WordCount(s)
		totalConfidence += s.Confidence
		speakers[s.Speaker] = struct{}{}
	}
	if len(segments) > 0 {
		st.AvgConfidencePercent = totalConfidence / float64(len(segments)) * 100
	}
	st.SpeakerCount = len(speakers)

	if !startedAt.IsZero() {
		if d := now.Sub(startedAt); d > 0 {
			st.SessionDurationSeconds = d.Seconds()
		}
	}
	st.SessionDuration = FormatDuration(st.SessionDurationSeconds)
	return st
}

// WordCount returns the reported word count of s, or the whitespace token
// count of its text when none was reported.
func WordCount(s models.Segment) int {
	if s.WordCount > 0 {
		return s.WordCount
	}
	return len(strings.Fields(s.Text))
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
