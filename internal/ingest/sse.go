package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"
)

// SSESource reads a server-sent event stream. Each event's data lines form
// one message.
type SSESource struct {
	url    string
	client *http.Client
}

// NewSSESource creates a source for the event stream at url.
func NewSSESource(url string, dialTimeout time.Duration) *SSESource {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if dialTimeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: dialTimeout}).DialContext
		transport.ResponseHeaderTimeout = dialTimeout
	}
	return &SSESource{
		url:    url,
		client: &http.Client{Transport: transport},
	}
}

func (s *SSESource) Kind() string     { return KindSSE }
func (s *SSESource) Describe() string { return s.url }

// Open subscribes to the stream and returns once the server has answered
// with 200. The client never reconnects; a dropped stream ends Recv.
func (s *SSESource) Open(ctx context.Context) (Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	st := &sseStream{
		events: make(chan []byte),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	connected := make(chan struct{})
	client := sse.NewClient(s.url)
	client.Connection = s.client
	client.ReconnectStrategy = &backoff.StopBackOff{}
	client.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		close(connected)
		return nil
	}

	go func() {
		defer close(st.done)
		st.err = client.SubscribeRawWithContext(streamCtx, func(msg *sse.Event) {
			if len(msg.Data) == 0 {
				return
			}
			select {
			case st.events <- msg.Data:
			case <-streamCtx.Done():
			}
		})
	}()

	select {
	case <-connected:
		return st, nil
	case <-st.done:
		select {
		case <-connected:
			// Answered 200 and ended at once; Recv reports the end.
			return st, nil
		default:
		}
		cancel()
		if st.err == nil {
			return nil, fmt.Errorf("open event stream: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("open event stream: %w", st.err)
	case <-ctx.Done():
		cancel()
		<-st.done
		return nil, ctx.Err()
	}
}

// sseStream hands events from the subscription goroutine to Recv. err is
// written before done is closed.
type sseStream struct {
	events chan []byte
	done   chan struct{}
	err    error

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Recv returns the data of the next event. Comment lines and events without
// data are skipped. A final event cut short by the end of the stream is still
// delivered.
func (s *sseStream) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-s.events:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		if s.err == nil {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read event stream: %w", s.err)
	}
}

func (s *sseStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
