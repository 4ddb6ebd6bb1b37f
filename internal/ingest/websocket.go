package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSource reads text frames from a websocket endpoint.
type WebSocketSource struct {
	url    string
	dialer *websocket.Dialer
}

// NewWebSocketSource creates a source for the websocket endpoint at url.
func NewWebSocketSource(url string, dialTimeout time.Duration) *WebSocketSource {
	return &WebSocketSource{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
	}
}

func (s *WebSocketSource) Kind() string     { return KindWebSocket }
func (s *WebSocketSource) Describe() string { return s.url }

// Open performs the websocket handshake.
func (s *WebSocketSource) Open(ctx context.Context) (Stream, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// Recv returns the next data frame. A normal close from the peer ends the
// stream cleanly.
func (s *wsStream) Recv(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read websocket: %w", err)
	}
	return data, nil
}

func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
