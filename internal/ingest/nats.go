package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSource subscribes to a core NATS subject. Reconnects are disabled; a
// lost server connection ends the stream with an error.
type NATSSource struct {
	url     string
	subject string
	timeout time.Duration
}

// NewNATSSource creates a source for subject. A url without a NATS scheme
// falls back to the default local server.
func NewNATSSource(url, subject string, dialTimeout time.Duration) *NATSSource {
	if !strings.HasPrefix(url, "nats://") && !strings.HasPrefix(url, "tls://") {
		url = nats.DefaultURL
	}
	return &NATSSource{url: url, subject: subject, timeout: dialTimeout}
}

func (s *NATSSource) Kind() string     { return KindNATS }
func (s *NATSSource) Describe() string { return s.url + "/" + s.subject }

// Open connects and subscribes.
func (s *NATSSource) Open(ctx context.Context) (Stream, error) {
	st := &natsStream{
		msgs: make(chan *nats.Msg, 256),
		done: make(chan struct{}),
	}

	dialer := &ctxDialer{ctx: ctx, dialer: net.Dialer{Timeout: s.timeout}}
	defer dialer.release()

	opts := []nats.Option{
		nats.Name("live-transcript-service"),
		nats.NoReconnect(),
		nats.SetCustomDialer(dialer),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			st.setErr(err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			st.doneOnce.Do(func() { close(st.done) })
		}),
	}
	if s.timeout > 0 {
		opts = append(opts, nats.Timeout(s.timeout))
	}

	nc, err := nats.Connect(s.url, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	if ctx.Err() != nil {
		nc.Close()
		return nil, ctx.Err()
	}

	sub, err := nc.ChanSubscribe(s.subject, st.msgs)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}
	st.nc, st.sub = nc, sub
	return st, nil
}

// ctxDialer dials with ctx and closes the dialed connection if ctx ends
// before release, which aborts a pending handshake.
type ctxDialer struct {
	ctx    context.Context
	dialer net.Dialer

	mu    sync.Mutex
	stops []func() bool
}

func (d *ctxDialer) Dial(network, address string) (net.Conn, error) {
	conn, err := d.dialer.DialContext(d.ctx, network, address)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.stops = append(d.stops, context.AfterFunc(d.ctx, func() { conn.Close() }))
	d.mu.Unlock()
	return conn, nil
}

func (d *ctxDialer) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, stop := range d.stops {
		stop()
	}
	d.stops = nil
}

type natsStream struct {
	nc   *nats.Conn
	sub  *nats.Subscription
	msgs chan *nats.Msg

	mu       sync.Mutex
	err      error
	done     chan struct{}
	doneOnce sync.Once
	closed   bool
}

func (s *natsStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil && s.err == nil && !s.closed {
		s.err = err
	}
}

func (s *natsStream) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-s.msgs:
		return msg.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return nil, fmt.Errorf("nats connection lost: %w", s.err)
		}
		return nil, io.EOF
	}
}

func (s *natsStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.sub.Unsubscribe()
	s.nc.Close()
	return nil
}
