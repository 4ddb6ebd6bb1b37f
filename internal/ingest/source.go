// Package ingest owns the single connection to the upstream transcript
// stream and feeds its messages into the live session.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"live-transcript-service/internal/config"
)

// Source kinds.
const (
	KindSSE       = "sse"
	KindWebSocket = "websocket"
	KindKafka     = "kafka"
	KindNATS      = "nats"
	KindMock      = "mock"
)

// ErrUnknownSource is returned for an unsupported source kind.
var ErrUnknownSource = errors.New("unknown source kind")

// Source opens streams of raw transcript messages.
type Source interface {
	// Open establishes the stream. It returns once the stream is open.
	Open(ctx context.Context) (Stream, error)

	// Kind returns the source kind, used as a metrics label.
	Kind() string

	// Describe returns the upstream address shown to users.
	Describe() string
}

// Stream is an open upstream connection.
type Stream interface {
	// Recv blocks until the next message arrives. It returns io.EOF when
	// the upstream ended the stream cleanly.
	Recv(ctx context.Context) ([]byte, error)

	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// NewSource builds the source selected by cfg.Kind.
func NewSource(cfg config.Source) (Source, error) {
	switch cfg.Kind {
	case KindSSE, "":
		return NewSSESource(cfg.URL, cfg.DialTimeout), nil
	case KindWebSocket, "ws":
		return NewWebSocketSource(cfg.URL, cfg.DialTimeout), nil
	case KindKafka:
		return NewKafkaSource(cfg.Brokers, cfg.Topic), nil
	case KindNATS:
		return NewNATSSource(cfg.URL, cfg.Subject, cfg.DialTimeout), nil
	case KindMock:
		return NewMockSource(MockConfig{Interval: cfg.MockInterval, Loop: cfg.MockLoop}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Kind)
	}
}
