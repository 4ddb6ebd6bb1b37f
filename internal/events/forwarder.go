package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-transcript-service/internal/models"
	"live-transcript-service/internal/observability/logging"
	"live-transcript-service/internal/observability/metrics"
	"live-transcript-service/internal/schema"
)

// PartialTranscriptEvent is the payload forwarded for an overlay update.
type PartialTranscriptEvent struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// FinalTranscriptEvent is the payload forwarded for an appended segment.
type FinalTranscriptEvent struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	SegmentID  string  `json:"segmentId"`
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Duration   float64 `json:"duration"`
	WordCount  int     `json:"wordCount"`
	Timestamp  int64   `json:"timestamp"`
}

// Fields implements schema.Event.
func (e PartialTranscriptEvent) Fields() schema.Fields {
	return schema.Fields{EventType: e.EventType, SessionID: e.SessionID, Speaker: e.Speaker, Confidence: e.Confidence}
}

// Fields implements schema.Event.
func (e FinalTranscriptEvent) Fields() schema.Fields {
	return schema.Fields{EventType: e.EventType, SessionID: e.SessionID, SegmentID: e.SegmentID, Speaker: e.Speaker, Confidence: e.Confidence, Final: true}
}

// Sink publishes forwarded events. *Publisher implements it.
type Sink interface {
	PublishPartial(ctx context.Context, key string, event any) error
	PublishFinal(ctx context.Context, key string, event any) error
}

// Forwarder receives engine notifications and publishes them from a single
// background goroutine. Notifications never block: when the queue is full
// the event is dropped and counted.
type Forwarder struct {
	sink      Sink
	queue     chan schema.Event
	sessionID func() string
	validator *schema.Validator

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// DefaultQueueSize is used when NewForwarder is given a size below 1.
const DefaultQueueSize = 256

// NewForwarder starts a forwarder publishing to sink. sessionID stamps each
// event with the live session.
func NewForwarder(sink Sink, queueSize int, sessionID func() string) *Forwarder {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	f := &Forwarder{
		sink:      sink,
		queue:     make(chan schema.Event, queueSize),
		sessionID: sessionID,
		validator: schema.New(),
		done:      make(chan struct{}),
		logger:    logging.WithComponent("forwarder"),
		metrics:   metrics.DefaultMetrics,
	}
	go f.run()
	return f
}

// OnPartial queues an overlay update.
func (f *Forwarder) OnPartial(p models.Partial) {
	f.enqueue(PartialTranscriptEvent{
		EventType:  "transcript.partial",
		SessionID:  f.sessionID(),
		Speaker:    p.Speaker,
		Text:       p.Text,
		Confidence: p.Confidence,
		Timestamp:  p.ReceivedAt.UnixMilli(),
	})
}

// OnSegment queues an appended segment.
func (f *Forwarder) OnSegment(s models.Segment) {
	f.enqueue(FinalTranscriptEvent{
		EventType:  "transcript.final",
		SessionID:  f.sessionID(),
		SegmentID:  s.ID,
		Speaker:    s.Speaker,
		Text:       s.Text,
		Confidence: s.Confidence,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Duration:   s.Duration,
		WordCount:  s.WordCount,
		Timestamp:  s.ReceivedAt.UnixMilli(),
	})
}

func (f *Forwarder) enqueue(ev schema.Event) {
	if err := f.validator.Validate(ev); err != nil {
		f.metrics.RecordForwardDropped()
		f.logger.Warn().Err(err).Msg("Dropping event that fails validation")
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.queue <- ev:
	default:
		f.metrics.RecordForwardDropped()
		f.logger.Warn().Msg("Forward queue full, dropping event")
	}
}

func (f *Forwarder) run() {
	defer close(f.done)
	for ev := range f.queue {
		f.publish(ev)
	}
}

func (f *Forwarder) publish(ev schema.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch e := ev.(type) {
	case PartialTranscriptEvent:
		err = f.sink.PublishPartial(ctx, e.SessionID, e)
	case FinalTranscriptEvent:
		err = f.sink.PublishFinal(ctx, e.SessionID, e)
	}
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to forward transcript event")
	}
}

// Close stops accepting events and waits until the queued ones are
// published.
func (f *Forwarder) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		<-f.done
		return
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()
	<-f.done
}
