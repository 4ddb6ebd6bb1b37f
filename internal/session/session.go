// Package session owns the state of one live transcript session: its id, its
// start instant and the aggregation engine.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"live-transcript-service/internal/models"
	"live-transcript-service/internal/observability/metrics"
	"live-transcript-service/internal/service/stats"
	"live-transcript-service/internal/service/transcript"
)

// Session is the explicit owner of all per-session state. Clearing a session
// gives it a new id and empties every component.
type Session struct {
	mu        sync.RWMutex
	id        string
	startedAt time.Time
	engine    *transcript.Engine
	now       func() time.Time
	metrics   *metrics.Metrics
}

// New creates an empty session.
func New(cfg transcript.Config) *Session {
	id := newID()
	return &Session{
		id:      id,
		engine:  transcript.New(cfg, id),
		now:     time.Now,
		metrics: metrics.DefaultMetrics,
	}
}

func newID() string {
	return "sess-" + uuid.NewString()[:8]
}

// ID returns the current session id.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Engine returns the aggregation engine.
func (s *Session) Engine() *transcript.Engine {
	return s.engine
}

// SetClock replaces the time source used for stats and receipt timestamps.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	s.engine.SetClock(now)
}

// Apply forwards ev to the engine.
func (s *Session) Apply(ev models.Event) error {
	return s.engine.Apply(ev)
}

// MarkStarted records the start instant. Only the first call after creation
// or Clear has any effect; it reports whether this call recorded it.
func (s *Session) MarkStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.startedAt.IsZero() {
		return false
	}
	s.startedAt = s.now()
	s.metrics.RecordSessionStarted()
	return true
}

// StartedAt returns the start instant, zero if the session has not started.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Clear resets the session to empty state under a new id.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = newID()
	s.startedAt = time.Time{}
	s.engine.Reset(s.id)
}

// DiscardPartials drops in-flight partial utterances.
func (s *Session) DiscardPartials() int {
	return s.engine.DiscardPartials()
}

// Segments returns a copy of the finalized segment log.
func (s *Session) Segments() []models.Segment {
	return s.engine.Segments()
}

// Turns derives the conversation turns from the current log.
func (s *Session) Turns() []models.ConversationTurn {
	return transcript.DeriveTurns(s.engine.Segments())
}

// Stats computes the session aggregates at the current instant.
func (s *Session) Stats() models.SessionStats {
	s.mu.RLock()
	startedAt, now := s.startedAt, s.now()
	s.mu.RUnlock()
	return stats.Compute(s.engine.Segments(), startedAt, now)
}

// View builds the full read-side projection from a single engine snapshot.
func (s *Session) View() models.TranscriptView {
	s.mu.RLock()
	id, startedAt, now := s.id, s.startedAt, s.now()
	s.mu.RUnlock()

	snap := s.engine.Snapshot()
	view := models.TranscriptView{
		SessionID: id,
		Segments:  snap.Segments,
		Partials:  snap.Partials,
		Turns:     transcript.DeriveTurns(snap.Segments),
		Stats:     stats.Compute(snap.Segments, startedAt, now),
		Endpoints: snap.Endpoints,
		Speakers:  snap.Speakers,
	}
	if !startedAt.IsZero() {
		view.StartedAt = &startedAt
	}
	if view.Segments == nil {
		view.Segments = []models.Segment{}
	}
	if view.Turns == nil {
		view.Turns = []models.ConversationTurn{}
	}
	return view
}
