// Package models defines the data structures for transcript events and the
// views derived from them.
package models

import "time"

// TimestampLayout is the display layout for local receipt timestamps.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// EventKind discriminates the canonical transcript events.
type EventKind string

const (
	KindPartial         EventKind = "partial"
	KindSegment         EventKind = "segment"
	KindEndpoint        EventKind = "endpoint"
	KindHeartbeat       EventKind = "heartbeat"
	KindError           EventKind = "error"
	KindLegacyUtterance EventKind = "legacy"
)

// StatusFinal marks a transcript message that must not touch the overlay.
const StatusFinal = "final"

// Event is one classified inbound message. Only the fields relevant to Kind
// are populated; absent numeric fields are zero.
type Event struct {
	Kind        EventKind
	Speaker     string
	Text        string
	PartialText string
	Status      string
	Confidence  float64
	StartTime   float64
	EndTime     float64
	Duration    float64
	WordCount   int

	// Endpoint fields.
	EndpointEvent   string
	ServerTimestamp string

	// Error fields.
	Message string
}

// IsFinal reports whether a transcript event carries the final status.
func (e Event) IsFinal() bool {
	return e.Status == StatusFinal
}

// Partial is the in-progress utterance currently shown for one speaker.
type Partial struct {
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Segment is a finalized utterance. Segments are never mutated once appended.
type Segment struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	StartTime  float64   `json:"startTime"`
	EndTime    float64   `json:"endTime"`
	Duration   float64   `json:"duration"`
	WordCount  int       `json:"wordCount"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Timestamp returns the display form of the receipt time.
func (s Segment) Timestamp() string {
	return s.ReceivedAt.Format(TimestampLayout)
}

// ConversationTurn groups consecutive segments of one speaker.
type ConversationTurn struct {
	ID             string    `json:"id"`
	Speaker        string    `json:"speaker"`
	Text           string    `json:"text"`
	Texts          []string  `json:"texts"`
	Confidences    []float64 `json:"confidences"`
	Confidence     float64   `json:"confidence"`
	StartTime      float64   `json:"startTime"`
	EndTime        float64   `json:"endTime"`
	FirstTimestamp time.Time `json:"firstTimestamp"`
	LastTimestamp  time.Time `json:"lastTimestamp"`
}

// EndpointNotification records a detected speech boundary.
type EndpointNotification struct {
	Event           string    `json:"event"`
	ServerTimestamp string    `json:"serverTimestamp"`
	ReceivedAt      time.Time `json:"receivedAt"`
}

// SessionStats holds the running aggregates over the segment log.
type SessionStats struct {
	TotalWords             int     `json:"totalWords"`
	AvgConfidencePercent   float64 `json:"avgConfidencePercent"`
	SessionDurationSeconds float64 `json:"sessionDurationSeconds"`
	SessionDuration        string  `json:"sessionDuration"`
	SpeakerCount           int     `json:"speakerCount"`
}

// ConfidenceLevel buckets a confidence value for display.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// LevelOf returns the display bucket for a confidence in [0,1].
func LevelOf(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// TranscriptView is the full read-side projection of one session.
type TranscriptView struct {
	SessionID string                 `json:"sessionId"`
	StartedAt *time.Time             `json:"startedAt,omitempty"`
	Segments  []Segment              `json:"segments"`
	Partials  []Partial              `json:"partials"`
	Turns     []ConversationTurn     `json:"turns"`
	Stats     SessionStats           `json:"stats"`
	Endpoints []EndpointNotification `json:"endpoints"`
	Speakers  map[string]string      `json:"speakers"`
}
