// Package schema checks outbound transcript events before they leave the
// process.
package schema

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEvent is wrapped by every validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// Event is implemented by payloads that can be validated.
type Event interface {
	Fields() Fields
}

// Fields are the checked attributes of an outbound event.
type Fields struct {
	EventType  string
	SessionID  string
	SegmentID  string
	Speaker    string
	Confidence float64
	Final      bool
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate reports the first violated rule: event type, session and speaker
// are required, confidence must be a finite value in [0,1], and final events
// carry a segment id.
func (v *Validator) Validate(event Event) error {
	f := event.Fields()
	switch {
	case f.EventType == "":
		return fmt.Errorf("%w: missing eventType", ErrInvalidEvent)
	case f.SessionID == "":
		return fmt.Errorf("%w: missing sessionId", ErrInvalidEvent)
	case f.Speaker == "":
		return fmt.Errorf("%w: missing speaker", ErrInvalidEvent)
	case math.IsNaN(f.Confidence) || f.Confidence < 0 || f.Confidence > 1:
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidEvent, f.Confidence)
	case f.Final && f.SegmentID == "":
		return fmt.Errorf("%w: final event without segmentId", ErrInvalidEvent)
	}
	return nil
}
