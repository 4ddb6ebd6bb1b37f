package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"live-transcript-service/internal/models"
)

var received = time.Date(2026, 10, 19, 14, 5, 9, 0, time.UTC)

func TestLine(t *testing.T) {
	s := models.Segment{
		Speaker:    "1",
		Text:       "<start> good morning",
		Confidence: 0.9234,
		Duration:   1.5,
		ReceivedAt: received,
	}

	want := "[10/19/2026, 2:05:09 PM] Speaker 1 (92.3% confidence, 1.50s): <start> good morning"
	if got := Line(s); got != want {
		t.Errorf("Line() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_MultipleLines(t *testing.T) {
	segments := []models.Segment{
		{Speaker: "A", Text: "hi", Confidence: 1, ReceivedAt: received},
		{Speaker: "B", Text: "hello", Confidence: 0.5, Duration: 0.25, ReceivedAt: received},
	}

	want := "[10/19/2026, 2:05:09 PM] Speaker A (100.0% confidence, 0.00s): hi\n" +
		"[10/19/2026, 2:05:09 PM] Speaker B (50.0% confidence, 0.25s): hello"
	if got := Render(segments); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_Empty(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Errorf("expected empty report, got %q", got)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	segments := []models.Segment{{Speaker: "A", Text: "hi", ReceivedAt: received}}

	if err := Write(&buf, segments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != Render(segments) {
		t.Errorf("expected written report to match Render, got %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_Error(t *testing.T) {
	err := Write(failingWriter{}, []models.Segment{{Speaker: "A"}})
	if err == nil {
		t.Fatal("expected error from failing writer")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(received); got != "transcription-enhanced-2026-10-19.txt" {
		t.Errorf("unexpected file name: %s", got)
	}
}
