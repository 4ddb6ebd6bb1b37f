package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ScriptedUtterance is one utterance replayed by the mock source.
type ScriptedUtterance struct {
	Speaker    string
	Partials   []string // progressive partial transcripts
	Final      string
	Confidence float64
	Seconds    float64 // spoken duration
}

// DefaultScript provides a short two-speaker conversation.
var DefaultScript = []ScriptedUtterance{
	{
		Speaker:    "1",
		Partials:   []string{"I want", "I want to", "I want to cancel"},
		Final:      "I want to cancel my subscription",
		Confidence: 0.94,
		Seconds:    2.1,
	},
	{
		Speaker:    "2",
		Partials:   []string{"Sure", "Sure I can"},
		Final:      "Sure I can help with that",
		Confidence: 0.88,
		Seconds:    1.6,
	},
	{
		Speaker:    "2",
		Partials:   []string{"Can you", "Can you confirm"},
		Final:      "Can you confirm the email on the account",
		Confidence: 0.72,
		Seconds:    2.4,
	},
	{
		Speaker:    "1",
		Partials:   []string{"Yes it's"},
		Final:      "Yes it's the one ending in example dot com",
		Confidence: 0.55,
		Seconds:    2.9,
	},
	{
		Speaker:    "1",
		Partials:   []string{"Thank you"},
		Final:      "Thank you very much",
		Confidence: 0.98,
		Seconds:    1.2,
	},
}

// MockConfig configures the mock source.
type MockConfig struct {
	Script   []ScriptedUtterance // DefaultScript when empty
	Interval time.Duration       // delay between messages
	Loop     bool                // replay the script forever
}

// MockSource replays a scripted conversation in the wire formats a real
// recognizer emits, including a legacy line and a malformed message. It
// needs no upstream service.
type MockSource struct {
	cfg MockConfig
}

// NewMockSource creates a mock source.
func NewMockSource(cfg MockConfig) *MockSource {
	if len(cfg.Script) == 0 {
		cfg.Script = DefaultScript
	}
	return &MockSource{cfg: cfg}
}

func (s *MockSource) Kind() string     { return KindMock }
func (s *MockSource) Describe() string { return "mock://scripted" }

// Open always succeeds.
func (s *MockSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &mockStream{
		cfg:    s.cfg,
		script: Render(s.cfg.Script),
		closed: make(chan struct{}),
	}, nil
}

// Render converts a script to the message sequence the mock stream emits.
func Render(script []ScriptedUtterance) [][]byte {
	var out [][]byte
	var clock float64

	for i, u := range script {
		out = append(out, mustJSON(map[string]any{
			"type":      "endpoint",
			"event":     "start_of_speech",
			"timestamp": fmt.Sprintf("%.2f", clock),
		}))
		for _, p := range u.Partials {
			out = append(out, mustJSON(map[string]any{
				"type":         "transcript",
				"speaker":      u.Speaker,
				"partial_text": p,
				"status":       "partial",
				"confidence":   u.Confidence,
			}))
		}
		start, end := clock, clock+u.Seconds
		out = append(out, mustJSON(map[string]any{
			"type":       "segment",
			"speaker":    u.Speaker,
			"text":       u.Final,
			"confidence": u.Confidence,
			"start_time": start,
			"end_time":   end,
			"duration":   u.Seconds,
			"word_count": len(strings.Fields(u.Final)),
		}))
		out = append(out, mustJSON(map[string]any{
			"type":      "endpoint",
			"event":     "end_of_speech",
			"timestamp": fmt.Sprintf("%.2f", end),
		}))
		clock = end + 0.5

		if i == 1 {
			out = append(out, mustJSON(map[string]any{"type": "heartbeat"}))
			out = append(out, []byte("not a transcript message"))
		}
	}

	out = append(out, []byte("Speaker 1: that covers everything"))
	return out
}

func mustJSON(v map[string]any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

type mockStream struct {
	cfg    MockConfig
	script [][]byte
	next   int

	mu        sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *mockStream) Recv(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.script) {
		if !s.cfg.Loop {
			return nil, io.EOF
		}
		s.next = 0
	}

	if s.cfg.Interval > 0 {
		timer := time.NewTimer(s.cfg.Interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			return nil, io.EOF
		case <-timer.C:
		}
	} else {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			return nil, io.EOF
		default:
		}
	}

	msg := s.script[s.next]
	s.next++
	return msg, nil
}

func (s *mockStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
