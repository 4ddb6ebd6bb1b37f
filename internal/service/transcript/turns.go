package transcript

import (
	"fmt"
	"strings"

	"live-transcript-service/internal/models"
)

const (
	markerStart = "<start>"
	markerEnd   = "<end>"
)

// CleanText strips recognizer boundary markers and surrounding whitespace.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, markerEnd, "")
	text = strings.ReplaceAll(text, markerStart, "")
	return strings.TrimSpace(text)
}

// DeriveTurns groups consecutive segment-kind entries of the same speaker into
// conversation turns. Legacy utterances are not part of any turn.
func DeriveTurns(segments []models.Segment) []models.ConversationTurn {
	var turns []models.ConversationTurn

	i := 0
	for _, s := range segments {
		if s.Kind != models.KindSegment {
			continue
		}
		text := CleanText(s.Text)

		if n := len(turns); n > 0 && turns[n-1].Speaker == s.Speaker {
			last := &turns[n-1]
			last.Texts = append(last.Texts, text)
			last.Confidences = append(last.Confidences, s.Confidence)
			last.EndTime = s.EndTime
			last.LastTimestamp = s.ReceivedAt
		} else {
			turns = append(turns, models.ConversationTurn{
				ID:             fmt.Sprintf("turn-%s-%d", s.Speaker, i),
				Speaker:        s.Speaker,
				Texts:          []string{text},
				Confidences:    []float64{s.Confidence},
				StartTime:      s.StartTime,
				EndTime:        s.EndTime,
				FirstTimestamp: s.ReceivedAt,
				LastTimestamp:  s.ReceivedAt,
			})
		}
		i++
	}

	for k := range turns {
		t := &turns[k]
		t.Text = strings.ReplaceAll(strings.Join(t.Texts, ". "), "..", ".")
		var sum float64
		for _, c := range t.Confidences {
			sum += c
		}
		t.Confidence = sum / float64(len(t.Confidences))
	}
	return turns
}
