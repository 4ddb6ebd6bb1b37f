package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-transcript-service/internal/models"
	"live-transcript-service/internal/service/transcript"
)

type recordingSink struct {
	mu       sync.Mutex
	partials []PartialTranscriptEvent
	finals   []FinalTranscriptEvent
	keys     []string
	block    chan struct{}
	err      error
}

func (r *recordingSink) PublishPartial(ctx context.Context, key string, event any) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partials = append(r.partials, event.(PartialTranscriptEvent))
	r.keys = append(r.keys, key)
	return r.err
}

func (r *recordingSink) PublishFinal(ctx context.Context, key string, event any) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals = append(r.finals, event.(FinalTranscriptEvent))
	r.keys = append(r.keys, key)
	return r.err
}

func fixedSession() string { return "sess-abc" }

func TestForwarder_PublishesInOrder(t *testing.T) {
	sink := &recordingSink{}
	f := NewForwarder(sink, 8, fixedSession)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.OnPartial(models.Partial{Speaker: "1", Text: "hel", Confidence: 0.4, ReceivedAt: now})
	f.OnSegment(models.Segment{ID: "sess-abc-seg-1", Speaker: "1", Text: "hello", Confidence: 0.9, Duration: 1.5, WordCount: 1, ReceivedAt: now})
	f.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.partials, 1)
	require.Len(t, sink.finals, 1)
	assert.Equal(t, "transcript.partial", sink.partials[0].EventType)
	assert.Equal(t, "hel", sink.partials[0].Text)
	assert.Equal(t, now.UnixMilli(), sink.partials[0].Timestamp)
	assert.Equal(t, "sess-abc-seg-1", sink.finals[0].SegmentID)
	assert.Equal(t, 1.5, sink.finals[0].Duration)
	assert.Equal(t, []string{"sess-abc", "sess-abc"}, sink.keys)
}

func TestForwarder_DropsWhenQueueFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	f := NewForwarder(sink, 1, fixedSession)

	// The worker holds one event while blocked; one more fits in the queue.
	for range 5 {
		f.OnSegment(models.Segment{ID: "sess-abc-seg-1", Speaker: "1", Text: "x"})
	}
	close(sink.block)
	f.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.LessOrEqual(t, len(sink.finals), 2)
	assert.GreaterOrEqual(t, len(sink.finals), 1)
}

func TestForwarder_SinkErrorDoesNotStopWorker(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	f := NewForwarder(sink, 4, fixedSession)

	f.OnSegment(models.Segment{ID: "sess-abc-seg-1", Speaker: "1", Text: "a"})
	f.OnSegment(models.Segment{ID: "sess-abc-seg-2", Speaker: "1", Text: "b"})
	f.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.finals, 2)
}

func TestForwarder_DropsInvalidEvents(t *testing.T) {
	sink := &recordingSink{}
	f := NewForwarder(sink, 4, fixedSession)

	f.OnPartial(models.Partial{Speaker: "", Text: "no speaker"})
	f.OnSegment(models.Segment{ID: "sess-abc-seg-1", Speaker: "1", Text: "bad", Confidence: 1.5})
	f.OnSegment(models.Segment{ID: "sess-abc-seg-2", Speaker: "1", Text: "good", Confidence: 0.5})
	f.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.partials)
	require.Len(t, sink.finals, 1)
	assert.Equal(t, "good", sink.finals[0].Text)
}

func TestForwarder_IgnoresEventsAfterClose(t *testing.T) {
	sink := &recordingSink{}
	f := NewForwarder(sink, 4, fixedSession)
	f.Close()

	f.OnSegment(models.Segment{ID: "sess-abc-seg-1", Speaker: "1", Text: "late"})
	f.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.finals)
}

func TestForwarder_ObservesEngine(t *testing.T) {
	sink := &recordingSink{}
	f := NewForwarder(sink, 8, fixedSession)
	engine := transcript.New(transcript.Config{}, "sess-abc")
	engine.SetObserver(f)

	require.NoError(t, engine.Apply(models.Event{Kind: models.KindPartial, Speaker: "1", Text: "hi"}))
	require.NoError(t, engine.Apply(models.Event{Kind: models.KindSegment, Speaker: "1", Text: "hi there", Status: models.StatusFinal}))
	f.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.partials, 1)
	require.Len(t, sink.finals, 1)
	assert.Equal(t, "sess-abc-seg-1", sink.finals[0].SegmentID)
}

func TestNewForwarder_DefaultQueueSize(t *testing.T) {
	f := NewForwarder(&recordingSink{}, 0, fixedSession)
	defer f.Close()

	assert.Equal(t, DefaultQueueSize, cap(f.queue))
}
