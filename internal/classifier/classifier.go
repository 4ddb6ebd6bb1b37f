// Package classifier turns raw stream messages into canonical transcript events.
//
// Classification never fails loudly: a message is decoded as a typed JSON
// object, then matched against the legacy "Speaker <id>: <text>" line format,
// and is otherwise discarded.
package classifier

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"live-transcript-service/internal/models"
)

// Wire values of the "type" discriminator.
const (
	TypeTranscript = "transcript"
	TypeSegment    = "segment"
	TypeEndpoint   = "endpoint"
	TypeHeartbeat  = "heartbeat"
	TypeError      = "error"
)

// LegacyConfidence is assigned to every legacy line.
const LegacyConfidence = 1.0

var legacyPattern = regexp.MustCompile(`^Speaker (\d+): (.+)$`)

// Classify returns the event carried by raw, or false when the message must
// be discarded.
func Classify(raw []byte) (models.Event, bool) {
	var f fields
	if err := json.Unmarshal(raw, &f); err == nil && f != nil {
		if ev, ok := f.event(); ok {
			return ev, true
		}
	}
	return classifyLegacy(string(raw))
}

// ClassifyString is Classify for text frames.
func ClassifyString(raw string) (models.Event, bool) {
	return Classify([]byte(raw))
}

func classifyLegacy(line string) (models.Event, bool) {
	m := legacyPattern.FindStringSubmatch(line)
	if m == nil {
		return models.Event{}, false
	}
	text := m[2]
	return models.Event{
		Kind:       models.KindLegacyUtterance,
		Speaker:    m[1],
		Text:       text,
		Confidence: LegacyConfidence,
		WordCount:  len(strings.Fields(text)),
		Status:     models.StatusFinal,
	}, true
}

// fields is a decoded JSON object whose values are read leniently.
type fields map[string]json.RawMessage

func (f fields) event() (models.Event, bool) {
	switch f.str("type") {
	case TypeTranscript:
		return models.Event{
			Kind:        models.KindPartial,
			Speaker:     f.str("speaker"),
			Text:        f.str("text"),
			PartialText: f.str("partial_text"),
			Status:      f.str("status"),
			Confidence:  f.num("confidence"),
		}, true
	case TypeSegment:
		return models.Event{
			Kind:       models.KindSegment,
			Speaker:    f.str("speaker"),
			Text:       f.str("text"),
			Confidence: f.num("confidence"),
			StartTime:  f.num("start_time"),
			EndTime:    f.num("end_time"),
			Duration:   f.num("duration"),
			WordCount:  int(f.num("word_count")),
			Status:     models.StatusFinal,
		}, true
	case TypeEndpoint:
		return models.Event{
			Kind:            models.KindEndpoint,
			EndpointEvent:   f.str("event"),
			ServerTimestamp: f.str("timestamp"),
		}, true
	case TypeHeartbeat:
		return models.Event{Kind: models.KindHeartbeat}, true
	case TypeError:
		return models.Event{
			Kind:    models.KindError,
			Message: f.str("message"),
		}, true
	default:
		return models.Event{}, false
	}
}

func (f fields) value(key string) any {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// str reads key as text; numbers and booleans are rendered in their JSON form.
func (f fields) str(key string) string {
	switch v := f.value(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// num reads key as a number; numeric strings are parsed, anything else is 0.
func (f fields) num(key string) float64 {
	switch v := f.value(key).(type) {
	case float64:
		return v
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	default:
		return 0
	}
}
