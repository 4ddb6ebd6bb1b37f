package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-transcript-service/internal/classifier"
	"live-transcript-service/internal/observability/logging"
	"live-transcript-service/internal/observability/metrics"
	"live-transcript-service/internal/service/transcript"
	"live-transcript-service/internal/session"
)

var (
	// ErrConnection wraps transport failures of the upstream stream.
	ErrConnection = errors.New("connection error")
	// ErrClosed is returned after the ingestor has been shut down.
	ErrClosed = errors.New("ingestor closed")
)

// ConnectionErrorMessage is the user-facing text for a transport failure.
func ConnectionErrorMessage(target string) string {
	return "Failed to connect to transcription service. Make sure your API server is running on " + target
}

// Status describes the connection as shown to users.
type Status struct {
	State     State      `json:"state"`
	SessionID string     `json:"sessionId"`
	Source    string     `json:"source"`
	Error     string     `json:"error,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Ingestor owns the single connection to the upstream stream and feeds its
// messages, one at a time and in arrival order, into the session.
//
// Every connection attempt gets its own generation number. Disconnect,
// Clear and delivery take the same lock, and a delivery whose generation is
// no longer current is dropped, so nothing is applied once teardown has
// begun.
type Ingestor struct {
	mu        sync.Mutex
	lifecycle *Lifecycle
	session   *session.Session
	source    Source

	base      context.Context
	stop      context.CancelFunc
	cancel    context.CancelFunc
	gen       uint64
	lastErr   string
	closed    bool
	listeners []func(State)
	wg        sync.WaitGroup

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates an idle ingestor for sess reading from src.
func New(sess *session.Session, src Source) *Ingestor {
	base, stop := context.WithCancel(context.Background())
	return &Ingestor{
		lifecycle: NewLifecycle(),
		session:   sess,
		source:    src,
		base:      base,
		stop:      stop,
		logger:    logging.WithSource("ingest", src.Kind(), src.Describe()),
		metrics:   metrics.DefaultMetrics,
	}
}

// OnStateChange registers fn to be called on every state transition. fn is
// called with the ingestor lock held and must not call back into it.
func (i *Ingestor) OnStateChange(fn func(State)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, fn)
}

func (i *Ingestor) notifyLocked(s State) {
	for _, fn := range i.listeners {
		fn(s)
	}
}

// State returns the connection state.
func (i *Ingestor) State() State {
	return i.lifecycle.State()
}

// Connect starts a new session and opens the stream in the background. It
// is a no-op while a connection is Connecting or Open. The connection
// outlives ctx; only ctx values are inherited.
func (i *Ingestor) Connect(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return ErrClosed
	}
	if err := i.lifecycle.Begin(); err != nil {
		i.logger.Debug().Str("state", i.lifecycle.State().String()).Msg("Connect ignored, connection already active")
		return nil
	}

	i.session.Clear()
	i.lastErr = ""
	i.gen++
	gen := i.gen

	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unlink := context.AfterFunc(i.base, cancel)
	i.cancel = func() {
		unlink()
		cancel()
	}

	i.metrics.RecordConnectStart()
	i.logger.Info().Str("sessionId", i.session.ID()).Msg("Connecting to transcript stream")
	i.notifyLocked(StateConnecting)

	i.wg.Add(1)
	go i.run(connCtx, gen)
	return nil
}

func (i *Ingestor) run(ctx context.Context, gen uint64) {
	defer i.wg.Done()

	stream, err := i.source.Open(ctx)
	if err != nil {
		if ctx.Err() == nil {
			i.fail(gen, err)
		}
		return
	}
	defer stream.Close()

	if !i.opened(gen) {
		return
	}
	openedAt := time.Now()
	defer func() {
		i.metrics.RecordConnectEnd(time.Since(openedAt).Seconds())
	}()

	for {
		raw, err := stream.Recv(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, io.EOF):
				i.end(gen)
			default:
				i.fail(gen, err)
			}
			return
		}
		i.deliver(gen, raw)
	}
}

func (i *Ingestor) opened(gen uint64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if gen != i.gen || i.lifecycle.Open() != nil {
		return false
	}
	i.session.MarkStarted()
	i.metrics.RecordConnectOpen()
	i.logger.Info().Str("sessionId", i.session.ID()).Msg("Transcript stream open")
	i.notifyLocked(StateOpen)
	return true
}

func (i *Ingestor) end(gen uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if gen != i.gen || i.lifecycle.End() != nil {
		return
	}
	i.cancelLocked()
	i.logger.Info().Str("sessionId", i.session.ID()).Msg("Transcript stream ended")
	i.notifyLocked(StateClosed)
}

func (i *Ingestor) fail(gen uint64, cause error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if gen != i.gen || i.lifecycle.Fail() != nil {
		return
	}
	i.cancelLocked()
	i.lastErr = ConnectionErrorMessage(i.source.Describe())
	i.metrics.RecordConnectFailure(i.source.Kind())
	i.logger.Error().Err(fmt.Errorf("%w: %w", ErrConnection, cause)).Msg("Transcript stream failed")
	i.notifyLocked(StateError)
}

// deliver classifies and applies one message.
func (i *Ingestor) deliver(gen uint64, raw []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if gen != i.gen || i.lifecycle.State() != StateOpen {
		i.metrics.RecordLateMessage()
		return
	}

	ev, ok := classifier.Classify(raw)
	i.metrics.RecordMessage(ok)
	if !ok {
		i.logger.Debug().Int("bytes", len(raw)).Msg("Discarded unrecognised message")
		return
	}

	var se *transcript.SessionError
	if err := i.session.Apply(ev); errors.As(err, &se) {
		i.lastErr = se.UserMessage()
		i.metrics.RecordSessionError()
		i.logger.Warn().Str("sessionId", i.session.ID()).Str("message", se.Message).Msg("Transcription error reported by stream")
	}
}

// Disconnect closes an active connection, discards in-flight partial
// utterances and returns to Idle. It is a no-op otherwise.
func (i *Ingestor) Disconnect() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.lifecycle.State().IsActive() {
		return
	}
	i.gen++
	i.cancelLocked()
	n := i.session.DiscardPartials()
	i.lifecycle.Reset()
	i.logger.Info().Str("sessionId", i.session.ID()).Int("partialsDiscarded", n).Msg("Disconnected from transcript stream")
	i.notifyLocked(StateIdle)
}

// Clear resets all session state. While the stream is Open the new session
// starts immediately.
func (i *Ingestor) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.session.Clear()
	i.lastErr = ""
	if i.lifecycle.State() == StateOpen {
		i.session.MarkStarted()
	}
	i.logger.Info().Str("sessionId", i.session.ID()).Msg("Session cleared")
}

// Status returns the connection status.
func (i *Ingestor) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	st := Status{
		State:     i.lifecycle.State(),
		SessionID: i.session.ID(),
		Source:    i.source.Describe(),
		Error:     i.lastErr,
	}
	if t := i.session.StartedAt(); !t.IsZero() {
		st.StartedAt = &t
	}
	return st
}

// Close stops any connection and waits for its reader to exit.
func (i *Ingestor) Close() {
	i.mu.Lock()
	if !i.closed {
		i.closed = true
		i.gen++
		i.cancelLocked()
		i.stop()
		if i.lifecycle.State().IsActive() {
			i.session.DiscardPartials()
			i.lifecycle.Reset()
			i.notifyLocked(StateIdle)
		}
	}
	i.mu.Unlock()

	i.wg.Wait()
}

func (i *Ingestor) cancelLocked() {
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
}
