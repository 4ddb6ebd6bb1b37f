// Package transcript implements the aggregation engine that reduces a stream
// of classified events to a finalized segment log and a per-speaker overlay of
// in-progress utterances.
package transcript

import (
	"slices"
	"strings"
	"sync"
	"time"

	"live-transcript-service/internal/models"
	"live-transcript-service/internal/observability/metrics"
	"live-transcript-service/internal/service/endpoint"
	"live-transcript-service/internal/service/segment"
	"live-transcript-service/internal/service/speaker"
)

// SessionError is an error event reported by the upstream recognizer. It does
// not affect the transcript.
type SessionError struct {
	Message string
}

func (e *SessionError) Error() string {
	return "transcription error: " + e.Message
}

// UserMessage returns the text shown to the user.
func (e *SessionError) UserMessage() string {
	return "Transcription error: " + e.Message
}

// Observer is notified after state changes are committed.
// Implementations must not block.
type Observer interface {
	OnPartial(p models.Partial)
	OnSegment(s models.Segment)
}

// Config holds engine settings.
type Config struct {
	Palette          []string
	EndpointCapacity int
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	Segments  []models.Segment
	Partials  []models.Partial
	Endpoints []models.EndpointNotification
	Speakers  map[string]string
}

// Engine owns the segment log, the partial overlay, the speaker registry and
// the endpoint log. All mutations and reads go through one lock, so a segment
// append and the clearing of its speaker's partial are observed together.
//
// Thread-safe for concurrent access.
type Engine struct {
	mu        sync.RWMutex
	idPrefix  string
	ids       *segment.Generator
	segments  []models.Segment
	partials  map[string]models.Partial
	registry  *speaker.Registry
	endpoints *endpoint.Log

	observer Observer
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates an empty engine. idPrefix namespaces segment ids.
func New(cfg Config, idPrefix string) *Engine {
	return &Engine{
		idPrefix:  idPrefix,
		ids:       segment.New(),
		partials:  make(map[string]models.Partial),
		registry:  speaker.NewRegistry(cfg.Palette),
		endpoints: endpoint.NewLog(cfg.EndpointCapacity),
		metrics:   metrics.DefaultMetrics,
		now:       time.Now,
	}
}

// SetObserver registers o to receive committed partials and segments.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// SetClock replaces the receipt time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Apply folds ev into the engine state. An error event is returned as a
// *SessionError and leaves the state untouched.
func (e *Engine) Apply(ev models.Event) error {
	switch ev.Kind {
	case models.KindPartial:
		if ev.IsFinal() {
			return nil
		}
		p := e.upsertPartial(ev)
		e.metrics.RecordEvent(string(ev.Kind))
		e.metrics.RecordPartial()
		if o := e.currentObserver(); o != nil {
			o.OnPartial(p)
		}
		return nil

	case models.KindSegment, models.KindLegacyUtterance:
		s := e.appendSegment(ev)
		e.metrics.RecordEvent(string(ev.Kind))
		e.metrics.RecordSegmentAppended()
		if o := e.currentObserver(); o != nil {
			o.OnSegment(s)
		}
		return nil

	case models.KindEndpoint:
		e.mu.Lock()
		e.endpoints.Push(models.EndpointNotification{
			Event:           ev.EndpointEvent,
			ServerTimestamp: ev.ServerTimestamp,
			ReceivedAt:      e.now(),
		})
		e.mu.Unlock()
		e.metrics.RecordEvent(string(ev.Kind))
		return nil

	case models.KindHeartbeat:
		e.metrics.RecordEvent(string(ev.Kind))
		return nil

	case models.KindError:
		e.metrics.RecordEvent(string(ev.Kind))
		e.metrics.RecordSessionError()
		return &SessionError{Message: ev.Message}

	default:
		return nil
	}
}

func (e *Engine) upsertPartial(ev models.Event) models.Partial {
	text := ev.PartialText
	if text == "" {
		text = ev.Text
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p := models.Partial{
		Speaker:    ev.Speaker,
		Text:       text,
		Confidence: ev.Confidence,
		ReceivedAt: e.now(),
	}
	e.partials[ev.Speaker] = p
	return p
}

func (e *Engine) appendSegment(ev models.Event) models.Segment {
	duration := ev.Duration
	if duration == 0 && ev.EndTime > ev.StartTime {
		duration = ev.EndTime - ev.StartTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Register(ev.Speaker)
	s := models.Segment{
		ID:         e.ids.Next(e.idPrefix),
		Kind:       ev.Kind,
		Speaker:    ev.Speaker,
		Text:       ev.Text,
		Confidence: ev.Confidence,
		StartTime:  ev.StartTime,
		EndTime:    ev.EndTime,
		Duration:   duration,
		WordCount:  ev.WordCount,
		ReceivedAt: e.now(),
	}
	e.segments = append(e.segments, s)
	delete(e.partials, ev.Speaker)
	return s
}

func (e *Engine) currentObserver() Observer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.observer
}

// DiscardPartials drops every in-progress utterance and returns how many were
// dropped. Partials are never promoted to segments.
func (e *Engine) DiscardPartials() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.partials)
	e.partials = make(map[string]models.Partial)
	if n > 0 {
		e.metrics.RecordPartialsDiscarded(n)
	}
	return n
}

// Reset empties the log, overlay, registry and endpoint log and restarts
// segment numbering under idPrefix.
func (e *Engine) Reset(idPrefix string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.idPrefix = idPrefix
	e.ids.Reset()
	e.segments = nil
	e.partials = make(map[string]models.Partial)
	e.registry.Reset()
	e.endpoints.Reset()
}

// Snapshot returns a consistent copy of the current state. Partials are
// ordered by speaker id.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	partials := make([]models.Partial, 0, len(e.partials))
	for _, p := range e.partials {
		partials = append(partials, p)
	}
	slices.SortFunc(partials, func(a, b models.Partial) int {
		return strings.Compare(a.Speaker, b.Speaker)
	})

	return Snapshot{
		Segments:  slices.Clone(e.segments),
		Partials:  partials,
		Endpoints: e.endpoints.Entries(),
		Speakers:  e.registry.Assignments(),
	}
}

// Segments returns a copy of the segment log.
func (e *Engine) Segments() []models.Segment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.segments)
}

// Partial returns the in-progress utterance for speakerID.
func (e *Engine) Partial(speakerID string) (models.Partial, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.partials[speakerID]
	return p, ok
}

// SpeakerToken returns the palette token assigned to speakerID.
func (e *Engine) SpeakerToken(speakerID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Token(speakerID)
}
